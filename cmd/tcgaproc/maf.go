package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tothovalab/tcga-processor/internal/extract"
	"github.com/tothovalab/tcga-processor/internal/manifest"
	"github.com/tothovalab/tcga-processor/internal/merge"
)

var mafCmd = &cobra.Command{
	Use:   "maf",
	Short: "Combine extracted MAF files into one variant table",
	Long: `Combine extracted TCGA MAF (Mutation Annotation Format) files into a
single concatenated variant table.

Each row is tagged with the file identifier it came from. Only the retained
column subset is kept; with --calculate-vaf the variant allele frequency is
derived per row as t_alt_count / t_depth, left empty where the depth is
zero or unavailable.`,
	Example: `  # Merge mutation calls with the default column set
  tcgaproc maf --sample-sheet gdc_sample_sheet.tsv

  # Derive VAF and keep a custom column subset
  tcgaproc maf --sample-sheet cohort.tsv --calculate-vaf --retain-columns Hugo_Symbol,t_depth,t_alt_count`,
	RunE: runMAF,
}

var (
	mafSampleSheet  string
	mafOutputsDir   string
	mafOutputDir    string
	mafOutputFile   string
	mafRetainCols   []string
	mafCalculateVAF bool
)

func init() {
	mafCmd.Flags().StringVar(&mafSampleSheet, "sample-sheet", "", "Path to the GDC sample sheet TSV (required)")
	mafCmd.Flags().StringVar(&mafOutputsDir, "outputs-dir", "", "Directory containing extracted files (default ./outputs)")
	mafCmd.Flags().StringVarP(&mafOutputDir, "output-directory", "o", "", "Directory for the combined table (default ./outputs)")
	mafCmd.Flags().StringVar(&mafOutputFile, "output-file", "", "Combined output file name (default combined_maf.tsv)")
	mafCmd.Flags().StringSliceVar(&mafRetainCols, "retain-columns", nil, "MAF columns to retain (default: common mutation-record set)")
	mafCmd.Flags().BoolVar(&mafCalculateVAF, "calculate-vaf", false, "Derive variant allele frequency per row")
	mafCmd.MarkFlagRequired("sample-sheet")
}

func runMAF(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outputsDir := cfg.Download.OutputDirectory
	if mafOutputsDir != "" {
		outputsDir = mafOutputsDir
	}
	if mafOutputDir != "" {
		cfg.Merge.OutputDirectory = mafOutputDir
	}
	if mafOutputFile != "" {
		cfg.Merge.MAFOutputFile = mafOutputFile
	}
	retain := cfg.Merge.RetainColumns
	if len(mafRetainCols) > 0 {
		retain = mafRetainCols
	}

	printInfo("Reading sample sheet from %s", mafSampleSheet)
	sheet, err := manifest.Read(mafSampleSheet)
	if err != nil {
		return err
	}
	if err := sheet.RequireMergeColumns(); err != nil {
		return err
	}

	printInfo("Indexing extracted MAF files in %s", outputsDir)
	index, err := extract.BuildIndex(outputsDir, ".maf", ".maf.gz")
	if err != nil {
		return err
	}
	printDebug("Indexed %d candidate file(s)", len(index))

	stats, err := merge.VariantCalls(sheet, index, merge.MAFConfig{
		RetainColumns: retain,
		CalculateVAF:  mafCalculateVAF,
		OutputPath:    filepath.Join(cfg.Merge.OutputDirectory, cfg.Merge.MAFOutputFile),
	})
	if err != nil {
		return err
	}

	for _, name := range stats.SkippedFiles {
		printWarning("File %q from the sample sheet has no extracted file, skipped", name)
	}
	printSuccess("Combined %d file(s), %d variant record(s) written to %s",
		stats.FilesProcessed, stats.Rows, stats.OutputPath)
	return nil
}
