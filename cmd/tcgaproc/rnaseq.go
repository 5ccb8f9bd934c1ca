package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tothovalab/tcga-processor/internal/extract"
	"github.com/tothovalab/tcga-processor/internal/manifest"
	"github.com/tothovalab/tcga-processor/internal/merge"
)

var rnaseqCmd = &cobra.Command{
	Use:   "rnaseq",
	Short: "Combine extracted RNA-Seq files into one expression matrix",
	Long: `Combine extracted TCGA RNA-Seq quantification files into a single
gene-by-sample table.

Each sample's expression columns are renamed with its sample identifier and
outer-joined on (gene_id, gene_name): the combined gene universe is the
union across samples, so a gene missing from one sample yields empty cells
for that sample rather than a dropped row.`,
	Example: `  # Merge all expression columns
  tcgaproc rnaseq --sample-sheet gdc_sample_sheet.tsv

  # Merge only TPM values
  tcgaproc rnaseq --sample-sheet cohort.tsv --expression-columns tpm_unstranded`,
	RunE: runRNASeq,
}

var (
	rnaseqSampleSheet string
	rnaseqOutputsDir  string
	rnaseqOutputDir   string
	rnaseqOutputFile  string
	rnaseqColumns     []string
)

func init() {
	rnaseqCmd.Flags().StringVar(&rnaseqSampleSheet, "sample-sheet", "", "Path to the GDC sample sheet TSV (required)")
	rnaseqCmd.Flags().StringVar(&rnaseqOutputsDir, "outputs-dir", "", "Directory containing extracted files (default ./outputs)")
	rnaseqCmd.Flags().StringVarP(&rnaseqOutputDir, "output-directory", "o", "", "Directory for the combined table (default ./outputs)")
	rnaseqCmd.Flags().StringVar(&rnaseqOutputFile, "output-file", "", "Combined output file name (default combined_data.tsv)")
	rnaseqCmd.Flags().StringSliceVar(&rnaseqColumns, "expression-columns", nil, "Expression columns to merge (default: all)")
	rnaseqCmd.MarkFlagRequired("sample-sheet")
}

func runRNASeq(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outputsDir := cfg.Download.OutputDirectory
	if rnaseqOutputsDir != "" {
		outputsDir = rnaseqOutputsDir
	}
	if rnaseqOutputDir != "" {
		cfg.Merge.OutputDirectory = rnaseqOutputDir
	}
	if rnaseqOutputFile != "" {
		cfg.Merge.DataOutputFile = rnaseqOutputFile
	}

	printInfo("Reading sample sheet from %s", rnaseqSampleSheet)
	sheet, err := manifest.Read(rnaseqSampleSheet)
	if err != nil {
		return err
	}
	if err := sheet.RequireMergeColumns(); err != nil {
		return err
	}

	printInfo("Indexing extracted files in %s", outputsDir)
	index, err := extract.BuildIndex(outputsDir, ".tsv")
	if err != nil {
		return err
	}
	printDebug("Indexed %d candidate file(s)", len(index))

	stats, err := merge.Transcriptome(sheet, index, merge.TranscriptomeConfig{
		ExpressionColumns: rnaseqColumns,
		OutputPath:        filepath.Join(cfg.Merge.OutputDirectory, cfg.Merge.DataOutputFile),
	})
	if err != nil {
		return err
	}

	for _, name := range stats.SkippedFiles {
		printWarning("File %q from the sample sheet has no extracted file, skipped", name)
	}
	printSuccess("Combined %d file(s), %d gene(s) written to %s",
		stats.FilesProcessed, stats.Rows, stats.OutputPath)
	return nil
}
