package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"github.com/tothovalab/tcga-processor/internal/extract"
	"github.com/tothovalab/tcga-processor/internal/manifest"
	"github.com/tothovalab/tcga-processor/internal/portal"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the files listed in a GDC sample sheet",
	Long: `Download TCGA data files based on a sample sheet from the GDC portal.

Every file identifier is validated against the portal in one batched query
before anything is downloaded; unknown identifiers abort the run. Validated
identifiers are fetched in batches, each batch persisted as a tar.gz archive
and extracted into the output directory. Completed batches are recorded, so
an interrupted run resumes where it stopped.`,
	Example: `  # Download a cohort
  tcgaproc download --sample-sheet gdc_sample_sheet.tsv

  # Download into a specific directory, keeping the archives
  tcgaproc download --sample-sheet cohort.tsv --output-directory /data/tcga --keep-archives`,
	RunE: runDownload,
}

var (
	downloadSampleSheet  string
	downloadOutput       string
	downloadKeepArchives bool
)

func init() {
	downloadCmd.Flags().StringVar(&downloadSampleSheet, "sample-sheet", "", "Path to the GDC sample sheet TSV (required)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output-directory", "o", "", "Output directory (default ./outputs)")
	downloadCmd.Flags().BoolVar(&downloadKeepArchives, "keep-archives", false, "Keep batch archives after extraction")
	downloadCmd.MarkFlagRequired("sample-sheet")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if downloadOutput != "" {
		cfg.Download.OutputDirectory = downloadOutput
	}
	if downloadKeepArchives {
		cfg.Download.KeepArchives = true
	}
	outputDir := cfg.Download.OutputDirectory

	printInfo("Reading sample sheet from %s", downloadSampleSheet)
	sheet, err := manifest.Read(downloadSampleSheet)
	if err != nil {
		return err
	}

	fileIDs := sheet.FileIDs()
	if len(fileIDs) == 0 {
		return fmt.Errorf("sample sheet %s: no file identifiers", downloadSampleSheet)
	}
	printInfo("Found %d file identifier(s) in sample sheet", len(fileIDs))

	client := portal.NewClient(portal.Config{
		BaseURL:         cfg.Portal.BaseURL,
		OutputDir:       outputDir,
		BatchSize:       cfg.Download.BatchSize,
		RetryAttempts:   cfg.Download.RetryAttempts,
		BackoffBase:     time.Duration(cfg.Download.BackoffSeconds) * time.Second,
		ValidateTimeout: time.Duration(cfg.Portal.ValidateTimeoutSeconds) * time.Second,
		DownloadTimeout: time.Duration(cfg.Portal.DownloadTimeoutSeconds) * time.Second,
	})

	printDebug("Validating %d identifier(s) against %s", len(fileIDs), cfg.Portal.BaseURL)
	if err := client.Validate(ctx, fileIDs); err != nil {
		return err
	}
	printSuccess("All %d file identifier(s) are valid", len(fileIDs))

	batches := portal.Partition(fileIDs, cfg.Download.BatchSize)
	printInfo("Downloading %d batch(es) of up to %d file(s)", len(batches), cfg.Download.BatchSize)

	var bar *progressbar.ProgressBar
	if !quiet && !verbose {
		bar = progressbar.New(len(batches))
	}
	client.Progress = func(res portal.BatchResult) {
		if bar != nil {
			bar.Add(1)
			return
		}
		if res.Resumed {
			printInfo("[%d/%d] Batch already downloaded, skipping", res.Index, res.Total)
			return
		}
		printInfo("[%d/%d] Saved %s (%.2f MB, %d attempt(s))",
			res.Index, res.Total, res.Archive, float64(res.Size)/(1024*1024), res.Attempts)
	}

	results, err := client.Download(ctx, fileIDs)
	if bar != nil {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	archives := lo.Uniq(lo.Map(results, func(r portal.BatchResult, _ int) string {
		return r.Path
	}))
	printInfo("Extracting %d archive(s) into %s", len(archives), outputDir)
	extractErr := extract.Archives(archives, outputDir, cfg.Download.KeepArchives)

	if !quiet {
		printDownloadSummary(results)
	}
	printSuccess("Downloaded %d/%d batch(es) to %s", len(results), len(batches), outputDir)

	if extractErr != nil {
		// every archive was attempted; report the failures together
		return fmt.Errorf("extraction failed for one or more archives:\n%w", extractErr)
	}
	return nil
}

func printDownloadSummary(results []portal.BatchResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Batch", "Archive", "Files", "Size (MB)", "Attempts", "Resumed"})

	for _, res := range results {
		size := "-"
		attempts := "-"
		if !res.Resumed {
			size = fmt.Sprintf("%.2f", float64(res.Size)/(1024*1024))
			attempts = strconv.Itoa(res.Attempts)
		}
		table.Append([]string{
			strconv.Itoa(res.Index),
			res.Archive,
			strconv.Itoa(res.IDCount),
			size,
			attempts,
			strconv.FormatBool(res.Resumed),
		})
	}
	table.Render()
}
