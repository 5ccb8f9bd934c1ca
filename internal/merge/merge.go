// Package merge combines extracted per-sample tables into single
// analysis-ready TSVs: an outer-union gene expression matrix and a
// concatenated variant-call table.
package merge

import "fmt"

// Error reports a structural problem in one sample's file. A single bad
// sample aborts the whole merge: the combined column set must reflect the
// complete requested sample set, never a surviving subset.
type Error struct {
	Sample string
	File   string
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("merge failed for sample %s (%s): %s", e.Sample, e.File, e.Msg)
}

// Stats summarizes a completed merge.
type Stats struct {
	FilesProcessed int
	Rows           int
	OutputPath     string
	SkippedFiles   []string // manifest entries with no extracted file
}
