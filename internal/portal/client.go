// Package portal talks to the GDC data portal: a batched identifier
// validation query and a batched archive download endpoint.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tothovalab/tcga-processor/internal/progress"
)

const (
	filesEndpoint = "/files"
	dataEndpoint  = "/data"
)

// Config holds configuration for the portal client
type Config struct {
	BaseURL         string
	OutputDir       string
	BatchSize       int
	RetryAttempts   int
	BackoffBase     time.Duration
	ValidateTimeout time.Duration
	DownloadTimeout time.Duration
}

// BatchResult contains information about one downloaded batch archive
type BatchResult struct {
	Index    int
	Total    int
	IDCount  int
	Archive  string
	Path     string
	Size     int64
	Attempts int
	Resumed  bool
	Duration time.Duration
}

// InvalidIdentifierError reports file identifiers the portal does not
// recognize. Nothing is downloaded when any identifier is invalid.
type InvalidIdentifierError struct {
	IDs    []string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("%d file identifier(s) %s: %s", len(e.IDs), e.Reason, strings.Join(e.IDs, ", "))
}

// DownloadError reports a batch whose retry budget is exhausted. Remaining
// batches are not attempted.
type DownloadError struct {
	Batch    int
	Total    int
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("batch %d/%d failed after %d attempt(s): %v", e.Batch, e.Total, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Client downloads archives from the data portal
type Client struct {
	config     Config
	httpClient *http.Client

	// Progress, when set, is called after every batch completes or is
	// skipped during Download.
	Progress func(result BatchResult)
}

// NewClient creates a new portal client
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 0, // per-request timeouts via context
		},
	}
}

// Validate checks every file identifier against the portal in one batched
// query. It fails before any network call when an identifier is not even
// syntactically valid, and fails without downloading anything when the
// portal does not recognize an identifier.
func (c *Client) Validate(ctx context.Context, fileIDs []string) error {
	var malformed []string
	for _, id := range fileIDs {
		if _, err := uuid.Parse(id); err != nil {
			malformed = append(malformed, id)
		}
	}
	if len(malformed) > 0 {
		return &InvalidIdentifierError{IDs: malformed, Reason: "are not well-formed"}
	}

	body := map[string]any{
		"filters": map[string]any{
			"op": "in",
			"content": map[string]any{
				"field": "file_id",
				"value": fileIDs,
			},
		},
		"fields": "file_id",
		"format": "JSON",
		"size":   len(fileIDs),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode validation query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.ValidateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+filesEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identifier validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identifier validation failed: HTTP %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Hits []struct {
				FileID string `json:"file_id"`
			} `json:"hits"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse validation response: %w", err)
	}

	known := make(map[string]bool, len(result.Data.Hits))
	for _, hit := range result.Data.Hits {
		known[hit.FileID] = true
	}

	var unknown []string
	for _, id := range fileIDs {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &InvalidIdentifierError{IDs: unknown, Reason: "not recognized by the portal"}
	}
	return nil
}

// Download partitions the validated identifiers into batches and fetches
// each batch archive into the output directory. Batches recorded as
// completed by a previous run are skipped. The first batch to exhaust its
// retry budget aborts the run.
func (c *Client) Download(ctx context.Context, fileIDs []string) ([]BatchResult, error) {
	if err := os.MkdirAll(c.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tracker, err := progress.Load(c.config.OutputDir)
	if err != nil {
		return nil, err
	}

	batches := Partition(fileIDs, c.config.BatchSize)
	results := make([]BatchResult, 0, len(batches))

	for i, batch := range batches {
		index := i + 1

		if rec, done := tracker.Completed(batch); done {
			path := filepath.Join(c.config.OutputDir, rec.Archive)
			if _, err := os.Stat(path); err == nil {
				result := BatchResult{
					Index:   index,
					Total:   len(batches),
					IDCount: len(batch),
					Archive: rec.Archive,
					Path:    path,
					Resumed: true,
				}
				results = append(results, result)
				c.report(result)
				continue
			}
			// Archive gone (extracted and removed, or deleted by hand):
			// nothing left to resume from, fetch again.
		}

		result, err := c.downloadBatch(ctx, index, len(batches), batch)
		if err != nil {
			if terr := tracker.MarkFailed(index, batch); terr != nil {
				return results, fmt.Errorf("%w (and failed to record state: %v)", err, terr)
			}
			return results, err
		}
		if err := tracker.MarkCompleted(index, batch, result.Archive); err != nil {
			return results, err
		}

		results = append(results, *result)
		c.report(*result)
	}

	return results, nil
}

// downloadBatch fetches one batch with bounded exponential backoff.
func (c *Client) downloadBatch(ctx context.Context, index, total int, ids []string) (*BatchResult, error) {
	start := time.Now()
	maxAttempts := c.config.RetryAttempts + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, retryable, err := c.fetchArchive(ctx, index, ids)
		if err == nil {
			result.Index = index
			result.Total = total
			result.IDCount = len(ids)
			result.Attempts = attempt
			result.Duration = time.Since(start)
			return result, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			break
		}

		delay := c.config.BackoffBase << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &DownloadError{Batch: index, Total: total, Attempts: attempt, Err: ctx.Err()}
		}
	}

	return nil, &DownloadError{Batch: index, Total: total, Attempts: maxAttempts, Err: lastErr}
}

// fetchArchive performs a single download attempt. It writes to a temporary
// path and renames on success, so a failed attempt leaves nothing at the
// final destination. The second return value reports whether the failure is
// transient.
func (c *Client) fetchArchive(ctx context.Context, index int, ids []string) (*BatchResult, bool, error) {
	payload, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode download request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+dataEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retryableStatus(resp.StatusCode), fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	archive := archiveName(resp.Header.Get("Content-Disposition"), index)
	finalPath := filepath.Join(c.config.OutputDir, archive)
	tmpPath := finalPath + ".partial"

	out, err := os.Create(tmpPath)
	if err != nil {
		return nil, false, err
	}

	size, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, true, fmt.Errorf("failed to persist archive: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, false, err
	}

	return &BatchResult{Archive: archive, Path: finalPath, Size: size}, false, nil
}

func (c *Client) report(result BatchResult) {
	if c.Progress != nil {
		c.Progress(result)
	}
}

// archiveName extracts the archive file name from a Content-Disposition
// header, falling back to a deterministic per-batch name.
func archiveName(disposition string, index int) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	return fmt.Sprintf("gdc_download_batch_%d.tar.gz", index)
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
