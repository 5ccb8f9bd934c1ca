package merge

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tothovalab/tcga-processor/internal/extract"
	"github.com/tothovalab/tcga-processor/internal/manifest"
	"github.com/tothovalab/tcga-processor/internal/tabular"
)

// Columns the VAF derivation reads, and the ones the concatenation adds.
const (
	colAltCount = "t_alt_count"
	colDepth    = "t_depth"
	colFileID   = "File_ID"
	colVAF      = "VAF"
)

// MAFConfig controls the variant-call merge
type MAFConfig struct {
	RetainColumns []string
	CalculateVAF  bool
	OutputPath    string
}

// VariantCalls concatenates every sample's mutation table into one combined
// MAF. Rows are independent variant records, so this is a row-wise union in
// manifest order, not a keyed join; each row is tagged with its originating
// file identifier. The combined row count equals the sum of retained rows
// across samples.
func VariantCalls(sheet *manifest.Sheet, index extract.Index, cfg MAFConfig) (*Stats, error) {
	byName, err := sheet.ByFileName()
	if err != nil {
		return nil, err
	}

	stats := &Stats{OutputPath: cfg.OutputPath}

	columns := append([]string{}, cfg.RetainColumns...)
	columns = append(columns, colFileID)
	if cfg.CalculateVAF {
		columns = append(columns, colVAF)
	}
	combined := &tabular.Table{Columns: columns}

	for _, entry := range orderedEntries(sheet, byName) {
		path, ok := index[entry.FileName]
		if !ok {
			stats.SkippedFiles = append(stats.SkippedFiles, entry.FileName)
			continue
		}
		sample := entry.SampleIdentifier()

		table, err := tabular.ReadFile(path)
		if err != nil {
			return nil, &Error{Sample: sample, File: entry.FileName, Msg: err.Error()}
		}

		indices := make([]int, len(cfg.RetainColumns))
		var missing []string
		for i, name := range cfg.RetainColumns {
			idx, ok := table.ColumnIndex(name)
			if !ok {
				missing = append(missing, name)
				continue
			}
			indices[i] = idx
		}
		if len(missing) > 0 {
			return nil, &Error{
				Sample: sample,
				File:   entry.FileName,
				Msg:    fmt.Sprintf("required column(s) missing: %s", strings.Join(missing, ", ")),
			}
		}

		altIdx, hasAlt := table.ColumnIndex(colAltCount)
		depthIdx, hasDepth := table.ColumnIndex(colDepth)

		for _, row := range table.Rows {
			out := lo.Map(indices, func(idx int, _ int) string {
				return table.Cell(row, idx)
			})
			out = append(out, entry.FileID)

			if cfg.CalculateVAF {
				vaf := ""
				if hasAlt && hasDepth {
					vaf = deriveVAF(table.Cell(row, altIdx), table.Cell(row, depthIdx))
				}
				out = append(out, vaf)
			}
			combined.Rows = append(combined.Rows, out)
		}

		stats.FilesProcessed++
	}

	if stats.FilesProcessed == 0 {
		return nil, &Error{Sample: "-", File: "-", Msg: "no extracted MAF files matched the sample sheet"}
	}
	stats.Rows = len(combined.Rows)

	if err := combined.WriteFile(cfg.OutputPath); err != nil {
		return nil, err
	}
	return stats, nil
}

// deriveVAF computes variant allele frequency as alt / depth, rounded to
// four decimal places. Unparsable counts or zero depth give an empty value:
// the row stays, only the derived metric is missing.
func deriveVAF(altCount, depth string) string {
	alt, err := strconv.ParseFloat(altCount, 64)
	if err != nil {
		return ""
	}
	total, err := strconv.ParseFloat(depth, 64)
	if err != nil || total <= 0 {
		return ""
	}

	vaf := math.Round(alt/total*10000) / 10000
	return strconv.FormatFloat(vaf, 'g', -1, 64)
}
