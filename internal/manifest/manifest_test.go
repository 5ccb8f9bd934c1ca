package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSheet = "File ID\tFile Name\tData Category\tProject ID\tCase ID\tSample ID\n" +
	"0a1b2c3d-0000-4000-8000-000000000001\tsampleA.rna_seq.tsv\tTranscriptome Profiling\tTCGA-LAML\tTCGA-AB-0001\tTCGA-AB-0001-03A\n" +
	"0a1b2c3d-0000-4000-8000-000000000002\tsampleB.rna_seq.tsv\tTranscriptome Profiling\tTCGA-LAML\tTCGA-AB-0002\tTCGA-AB-0002-03A\n" +
	"0a1b2c3d-0000-4000-8000-000000000001\tsampleA.rna_seq.tsv\tTranscriptome Profiling\tTCGA-LAML\tTCGA-AB-0001\tTCGA-AB-0001-03A\n"

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample_sheet.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRead(t *testing.T) {
	sheet, err := Read(writeSheet(t, sampleSheet))
	require.NoError(t, err)

	require.Len(t, sheet.Entries, 3)
	assert.Equal(t, "0a1b2c3d-0000-4000-8000-000000000001", sheet.Entries[0].FileID)
	assert.Equal(t, "sampleA.rna_seq.tsv", sheet.Entries[0].FileName)
	assert.Equal(t, "TCGA-LAML", sheet.Entries[0].ProjectID)
	require.NoError(t, sheet.RequireMergeColumns())
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "File ID\tFile Name\n"},
		{"missing file id column", "File Name\tCase ID\nf.tsv\tTCGA-AB-0001\n"},
		{"missing file name column", "File ID\tCase ID\nabc\tTCGA-AB-0001\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(writeSheet(t, tt.content))
			require.Error(t, err)

			var merr *Error
			assert.ErrorAs(t, err, &merr)
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.tsv"))

	var merr *Error
	require.ErrorAs(t, err, &merr)
}

func TestRequireMergeColumnsMissing(t *testing.T) {
	sheet, err := Read(writeSheet(t, "File ID\tFile Name\nabc\tf.tsv\n"))
	require.NoError(t, err)

	err = sheet.RequireMergeColumns()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Project ID")
}

func TestFileIDsDeduplicates(t *testing.T) {
	sheet, err := Read(writeSheet(t, sampleSheet))
	require.NoError(t, err)

	ids := sheet.FileIDs()
	assert.Equal(t, []string{
		"0a1b2c3d-0000-4000-8000-000000000001",
		"0a1b2c3d-0000-4000-8000-000000000002",
	}, ids)
}

func TestByFileName(t *testing.T) {
	sheet, err := Read(writeSheet(t, sampleSheet))
	require.NoError(t, err)

	byName, err := sheet.ByFileName()
	require.NoError(t, err)
	assert.Len(t, byName, 2)
	assert.Equal(t, "0a1b2c3d-0000-4000-8000-000000000002", byName["sampleB.rna_seq.tsv"].FileID)
}

func TestByFileNameDuplicate(t *testing.T) {
	content := "File ID\tFile Name\nid-one\tsame.tsv\nid-two\tsame.tsv\n"
	sheet, err := Read(writeSheet(t, content))
	require.NoError(t, err)

	_, err = sheet.ByFileName()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate file name")
}

func TestSampleIdentifier(t *testing.T) {
	e := Entry{
		FileID:    "abc-123",
		ProjectID: "TCGA-LAML",
		CaseID:    "TCGA-AB-0001",
		SampleID:  "TCGA-AB-0001-03A",
	}
	assert.Equal(t, "TCGA-LAML_TCGA-AB-0001_TCGA-AB-0001-03A_abc-123", e.SampleIdentifier())
}
