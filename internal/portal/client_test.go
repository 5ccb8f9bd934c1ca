package portal

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idAlpha = "11111111-1111-4111-8111-111111111111"
	idBeta  = "22222222-2222-4222-8222-222222222222"
	idGamma = "33333333-3333-4333-8333-333333333333"
)

// fakePortal serves the two portal endpoints the client uses.
type fakePortal struct {
	server *httptest.Server

	knownIDs     map[string]bool
	archive      []byte
	failuresLeft atomic.Int32 // /data requests to fail with 503 before succeeding
	filesCalls   atomic.Int32
	dataCalls    atomic.Int32
}

func newFakePortal(t *testing.T, known ...string) *fakePortal {
	t.Helper()

	fp := &fakePortal{
		knownIDs: make(map[string]bool, len(known)),
		archive:  makeArchive(t, map[string]string{"f/data.tsv": "gene_id\tgene_name\n"}),
	}
	for _, id := range known {
		fp.knownIDs[id] = true
	}

	r := mux.NewRouter()
	r.HandleFunc("/files", fp.handleFiles).Methods(http.MethodPost)
	r.HandleFunc("/data", fp.handleData).Methods(http.MethodPost)

	fp.server = httptest.NewServer(r)
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakePortal) handleFiles(w http.ResponseWriter, r *http.Request) {
	fp.filesCalls.Add(1)

	var query struct {
		Filters struct {
			Content struct {
				Value []string `json:"value"`
			} `json:"content"`
		} `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type hit struct {
		FileID string `json:"file_id"`
	}
	var hits []hit
	for _, id := range query.Filters.Content.Value {
		if fp.knownIDs[id] {
			hits = append(hits, hit{FileID: id})
		}
	}

	json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"hits": hits},
	})
}

func (fp *fakePortal) handleData(w http.ResponseWriter, r *http.Request) {
	fp.dataCalls.Add(1)

	if fp.failuresLeft.Add(-1) >= 0 {
		http.Error(w, "portal overloaded", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="gdc_download_20241022.tar.gz"`)
	w.Header().Set("Content-Type", "application/gzip")
	w.Write(fp.archive)
}

func makeArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func testClient(fp *fakePortal, dir string) *Client {
	return NewClient(Config{
		BaseURL:         fp.server.URL,
		OutputDir:       dir,
		BatchSize:       2,
		RetryAttempts:   3,
		BackoffBase:     time.Millisecond,
		ValidateTimeout: 5 * time.Second,
		DownloadTimeout: 5 * time.Second,
	})
}

func TestValidateAllKnown(t *testing.T) {
	fp := newFakePortal(t, idAlpha, idBeta)
	c := testClient(fp, t.TempDir())

	require.NoError(t, c.Validate(context.Background(), []string{idAlpha, idBeta}))
	assert.Equal(t, int32(1), fp.filesCalls.Load(), "validation must be a single batched query")
}

func TestValidateUnknownIdentifiers(t *testing.T) {
	fp := newFakePortal(t, idAlpha)
	c := testClient(fp, t.TempDir())

	err := c.Validate(context.Background(), []string{idAlpha, idBeta, idGamma})
	require.Error(t, err)

	var invErr *InvalidIdentifierError
	require.ErrorAs(t, err, &invErr)
	assert.ElementsMatch(t, []string{idBeta, idGamma}, invErr.IDs)
	assert.Equal(t, int32(0), fp.dataCalls.Load(), "no download may be issued")
}

func TestValidateMalformedIdentifiersSkipNetwork(t *testing.T) {
	fp := newFakePortal(t, idAlpha)
	c := testClient(fp, t.TempDir())

	err := c.Validate(context.Background(), []string{idAlpha, "not-a-uuid"})
	require.Error(t, err)

	var invErr *InvalidIdentifierError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, []string{"not-a-uuid"}, invErr.IDs)
	assert.Equal(t, int32(0), fp.filesCalls.Load())
}

func TestDownloadPersistsArchives(t *testing.T) {
	fp := newFakePortal(t, idAlpha, idBeta, idGamma)
	dir := t.TempDir()
	c := testClient(fp, dir)

	results, err := c.Download(context.Background(), []string{idAlpha, idBeta, idGamma})
	require.NoError(t, err)
	require.Len(t, results, 2, "three IDs at batch size 2 give two batches")

	for _, res := range results {
		data, err := os.ReadFile(res.Path)
		require.NoError(t, err)
		assert.Equal(t, fp.archive, data)
		assert.False(t, res.Resumed)
	}

	partials, err := filepath.Glob(filepath.Join(dir, "*.partial"))
	require.NoError(t, err)
	assert.Empty(t, partials)
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	fp := newFakePortal(t, idAlpha)
	dir := t.TempDir()
	c := testClient(fp, dir)
	fp.failuresLeft.Store(2) // fail twice, succeed on third attempt

	results, err := c.Download(context.Background(), []string{idAlpha})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 3, results[0].Attempts)
	data, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, fp.archive, data, "retried download must equal immediate success")
}

func TestDownloadExhaustedRetries(t *testing.T) {
	fp := newFakePortal(t, idAlpha)
	dir := t.TempDir()
	c := testClient(fp, dir)
	fp.failuresLeft.Store(100)

	_, err := c.Download(context.Background(), []string{idAlpha})
	require.Error(t, err)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, 1, dlErr.Batch)
	assert.Equal(t, 4, dlErr.Attempts) // 1 try + 3 retries

	// no partial or final archive left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tar.gz")
		assert.NotContains(t, e.Name(), ".partial")
	}
}

func TestDownloadResumesCompletedBatches(t *testing.T) {
	fp := newFakePortal(t, idAlpha, idBeta)
	dir := t.TempDir()
	c := testClient(fp, dir)

	_, err := c.Download(context.Background(), []string{idAlpha, idBeta})
	require.NoError(t, err)
	firstCalls := fp.dataCalls.Load()

	results, err := c.Download(context.Background(), []string{idAlpha, idBeta})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Resumed)
	assert.Equal(t, firstCalls, fp.dataCalls.Load(), "completed batch must not be re-fetched")
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"quoted filename", `attachment; filename="gdc_download_20241022.tar.gz"`, "gdc_download_20241022.tar.gz"},
		{"bare filename", `attachment; filename=archive.tar.gz`, "archive.tar.gz"},
		{"missing header", "", "gdc_download_batch_7.tar.gz"},
		{"path stripped", `attachment; filename="../../etc/passwd"`, "passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, archiveName(tt.disposition, 7))
		})
	}
}
