package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Global flags
var (
	cfgFile string
	noColor bool
	quiet   bool
	verbose bool
	debug   bool
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "tcgaproc",
	Short: "TCGA cohort download and merge pipeline",
	Long: `tcgaproc retrieves TCGA data files from the GDC portal using a sample
sheet and merges the per-sample files into unified analysis-ready tables.

Downloads are validated, batched, retried, and resumable; the merge stages
combine RNA-Seq expression tables into one gene-by-sample matrix and MAF
mutation tables into one concatenated variant table.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: `  # Download every file listed in a GDC sample sheet
  tcgaproc download --sample-sheet gdc_sample_sheet.tsv

  # Combine extracted RNA-Seq files into one expression matrix
  tcgaproc rnaseq --sample-sheet gdc_sample_sheet.tsv --outputs-dir ./outputs

  # Combine extracted MAF files, deriving variant allele frequency
  tcgaproc maf --sample-sheet gdc_sample_sheet.tsv --calculate-vaf`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(rnaseqCmd)
	rootCmd.AddCommand(mafCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
