// Package manifest reads GDC portal sample sheets.
//
// A sample sheet is a tab-separated table with one row per data file. The
// download stage needs the file identifiers; the merge stages additionally
// need the project/case/sample metadata to label combined columns.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// Column names as they appear in sample sheets exported from the portal.
const (
	ColFileID       = "File ID"
	ColFileName     = "File Name"
	ColDataCategory = "Data Category"
	ColProjectID    = "Project ID"
	ColCaseID       = "Case ID"
	ColSampleID     = "Sample ID"
)

// downloadColumns are required for every run; mergeColumns are additionally
// required by the merge stages.
var (
	downloadColumns = []string{ColFileID, ColFileName}
	mergeColumns    = []string{ColFileID, ColFileName, ColProjectID, ColCaseID, ColSampleID}
)

// Entry is one row of the sample sheet.
type Entry struct {
	FileID       string
	FileName     string
	DataCategory string
	ProjectID    string
	CaseID       string
	SampleID     string
}

// SampleIdentifier returns the label used to disambiguate this entry's
// columns in combined tables. The File ID suffix keeps it unique even when
// one sample contributes several files.
func (e Entry) SampleIdentifier() string {
	return fmt.Sprintf("%s_%s_%s_%s", e.ProjectID, e.CaseID, e.SampleID, e.FileID)
}

// Sheet is a parsed sample sheet.
type Sheet struct {
	Path    string
	Entries []Entry

	columns map[string]int
}

// Error reports a structural problem with a sample sheet. These indicate
// operator error and are never retried.
type Error struct {
	Path string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sample sheet %s: %s", e.Path, e.Msg)
}

// Read parses the sample sheet at path. It fails when the file is missing,
// the file identifier or file name column is absent, or there are no data
// rows.
func Read(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Msg: fmt.Sprintf("cannot open: %v", err)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, &Error{Path: path, Msg: fmt.Sprintf("cannot parse: %v", err)}
	}
	if len(records) == 0 {
		return nil, &Error{Path: path, Msg: "file is empty"}
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.TrimSpace(name)] = i
	}

	for _, col := range downloadColumns {
		if _, ok := columns[col]; !ok {
			return nil, &Error{Path: path, Msg: fmt.Sprintf("required column %q not found", col)}
		}
	}

	sheet := &Sheet{Path: path, columns: columns}
	for _, rec := range records[1:] {
		entry := Entry{
			FileID:       field(rec, columns, ColFileID),
			FileName:     field(rec, columns, ColFileName),
			DataCategory: field(rec, columns, ColDataCategory),
			ProjectID:    field(rec, columns, ColProjectID),
			CaseID:       field(rec, columns, ColCaseID),
			SampleID:     field(rec, columns, ColSampleID),
		}
		if entry.FileID == "" && entry.FileName == "" {
			continue // blank line
		}
		sheet.Entries = append(sheet.Entries, entry)
	}

	if len(sheet.Entries) == 0 {
		return nil, &Error{Path: path, Msg: "no data rows"}
	}
	return sheet, nil
}

// RequireMergeColumns verifies the metadata columns the merge stages need.
func (s *Sheet) RequireMergeColumns() error {
	missing := lo.Filter(mergeColumns, func(col string, _ int) bool {
		_, ok := s.columns[col]
		return !ok
	})
	if len(missing) > 0 {
		return &Error{Path: s.Path, Msg: fmt.Sprintf("required columns missing: %s", strings.Join(missing, ", "))}
	}
	return nil
}

// FileIDs returns the unique file identifiers in sheet order.
func (s *Sheet) FileIDs() []string {
	ids := lo.FilterMap(s.Entries, func(e Entry, _ int) (string, bool) {
		return e.FileID, e.FileID != ""
	})
	return lo.Uniq(ids)
}

// ByFileName returns an exact base-name lookup from File Name to entry.
// Duplicate file names are an error: an ambiguous mapping would attribute
// merged rows to the wrong sample.
func (s *Sheet) ByFileName() (map[string]Entry, error) {
	byName := make(map[string]Entry, len(s.Entries))
	for _, e := range s.Entries {
		if prev, ok := byName[e.FileName]; ok && prev.FileID != e.FileID {
			return nil, &Error{Path: s.Path, Msg: fmt.Sprintf("duplicate file name %q", e.FileName)}
		}
		byName[e.FileName] = e
	}
	return byName, nil
}

func field(rec []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
