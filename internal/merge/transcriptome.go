package merge

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/tothovalab/tcga-processor/internal/extract"
	"github.com/tothovalab/tcga-processor/internal/manifest"
	"github.com/tothovalab/tcga-processor/internal/tabular"
)

// Key columns shared by every RNA-Seq quantification file.
const (
	colGeneID   = "gene_id"
	colGeneName = "gene_name"
)

// TranscriptomeConfig controls the expression merge
type TranscriptomeConfig struct {
	// ExpressionColumns picks which quantification columns to carry per
	// sample. Empty means every non-key column not prefixed with "__".
	ExpressionColumns []string
	OutputPath        string
}

type geneKey struct {
	id   string
	name string
}

// Transcriptome merges every sample's expression table into one combined
// matrix keyed by (gene_id, gene_name). The gene universe is the union
// across samples: a gene absent from one sample yields empty cells for that
// sample's columns, not a dropped row. Row order is anchored on the first
// sample, with new genes appended as they are first seen.
func Transcriptome(sheet *manifest.Sheet, index extract.Index, cfg TranscriptomeConfig) (*Stats, error) {
	byName, err := sheet.ByFileName()
	if err != nil {
		return nil, err
	}

	stats := &Stats{OutputPath: cfg.OutputPath}

	combined := &tabular.Table{Columns: []string{colGeneID, colGeneName}}
	rowIndex := make(map[geneKey]int)

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

		idIdx, ok := table.ColumnIndex(colGeneID)
		if !ok {
			return nil, &Error{Sample: sample, File: entry.FileName, Msg: fmt.Sprintf("key column %q not found", colGeneID)}
		}
		nameIdx, ok := table.ColumnIndex(colGeneName)
		if !ok {
			return nil, &Error{Sample: sample, File: entry.FileName, Msg: fmt.Sprintf("key column %q not found", colGeneName)}
		}

		selected, err := selectExpressionColumns(table, cfg.ExpressionColumns, sample, entry.FileName)
		if err != nil {
			return nil, err
		}

		// widen the combined table with this sample's renamed columns
		base := len(combined.Columns)
		for _, col := range selected {
			combined.Columns = append(combined.Columns, fmt.Sprintf("%s_%s", col.name, sample))
		}

		for _, row := range table.Rows {
			id := table.Cell(row, idIdx)
			name := table.Cell(row, nameIdx)
			// summary rows (N_unmapped etc.) and unnamed genes are not
			// biological features
			if strings.HasPrefix(id, "N_") || name == "" {
				continue
			}

			key := geneKey{id: id, name: name}
			at, seen := rowIndex[key]
			if !seen {
				at = len(combined.Rows)
				rowIndex[key] = at
				combined.Rows = append(combined.Rows, padded([]string{id, name}, base))
			}

			out := padded(combined.Rows[at], base)
			if len(out) > base {
				continue // duplicate key within this sample, first row wins
			}
			for _, col := range selected {
				out = append(out, table.Cell(row, col.index))
			}
			combined.Rows[at] = out
		}

		stats.FilesProcessed++
	}

	if stats.FilesProcessed == 0 {
		return nil, &Error{Sample: "-", File: "-", Msg: "no extracted expression files matched the sample sheet"}
	}

	// square off rows for samples missing some genes
	width := len(combined.Columns)
	for i, row := range combined.Rows {
		combined.Rows[i] = padded(row, width)
	}
	stats.Rows = len(combined.Rows)

	if err := combined.WriteFile(cfg.OutputPath); err != nil {
		return nil, err
	}
	return stats, nil
}

type selectedColumn struct {
	name  string
	index int
}

// selectExpressionColumns resolves the configured column list against one
// sample's header. Explicitly configured columns must all exist.
func selectExpressionColumns(table *tabular.Table, configured []string, sample, file string) ([]selectedColumn, error) {
	if len(configured) > 0 {
		selected := make([]selectedColumn, 0, len(configured))
		for _, name := range configured {
			idx, ok := table.ColumnIndex(name)
			if !ok {
				return nil, &Error{Sample: sample, File: file, Msg: fmt.Sprintf("expression column %q not found", name)}
			}
			selected = append(selected, selectedColumn{name: name, index: idx})
		}
		return selected, nil
	}

	selected := make([]selectedColumn, 0, len(table.Columns))
	for i, name := range table.Columns {
		if name == colGeneID || name == colGeneName || strings.HasPrefix(name, "__") {
			continue
		}
		selected = append(selected, selectedColumn{name: name, index: i})
	}
	if len(selected) == 0 {
		return nil, &Error{Sample: sample, File: file, Msg: "no expression columns present"}
	}
	return selected, nil
}

// orderedEntries walks the sheet in manifest order, one entry per distinct
// file name.
func orderedEntries(sheet *manifest.Sheet, byName map[string]manifest.Entry) []manifest.Entry {
	seen := make(map[string]bool, len(byName))
	return lo.Filter(sheet.Entries, func(e manifest.Entry, _ int) bool {
		if seen[e.FileName] {
			return false
		}
		seen[e.FileName] = true
		return true
	})
}

// padded returns row extended with empty cells up to width.
func padded(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
