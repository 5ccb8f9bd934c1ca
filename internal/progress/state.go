// Package progress persists per-batch download state so an interrupted run
// can be resumed without re-fetching completed batches.
package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StateFileName is the ledger file kept next to the downloaded archives.
const StateFileName = ".download_state.json"

// State represents the state of one download batch
type State string

const (
	StateDownloading State = "downloading"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// BatchRecord tracks one batch of file identifiers
type BatchRecord struct {
	Index       int        `json:"index"`
	IDsHash     string     `json:"ids_hash"`
	IDCount     int        `json:"id_count"`
	Archive     string     `json:"archive,omitempty"`
	State       State      `json:"state"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Tracker is the on-disk ledger of batch download state
type Tracker struct {
	path    string
	Batches map[string]BatchRecord `json:"batches"`
}

// Load reads the state ledger from dir, returning an empty tracker when no
// ledger exists yet.
func Load(dir string) (*Tracker, error) {
	t := &Tracker{
		path:    filepath.Join(dir, StateFileName),
		Batches: make(map[string]BatchRecord),
	}

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read download state: %w", err)
	}

	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse download state %s: %w", t.path, err)
	}
	if t.Batches == nil {
		t.Batches = make(map[string]BatchRecord)
	}
	return t, nil
}

// HashIDs returns the identity hash of a batch, independent of where the
// batch fell in a previous partitioning.
func HashIDs(ids []string) string {
	sum := sha256.Sum256([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(sum[:])
}

// Completed reports whether a batch with these identifiers already finished,
// and the archive it produced.
func (t *Tracker) Completed(ids []string) (BatchRecord, bool) {
	rec, ok := t.Batches[HashIDs(ids)]
	if !ok || rec.State != StateCompleted {
		return BatchRecord{}, false
	}
	return rec, true
}

// MarkCompleted records a successful batch and saves the ledger.
func (t *Tracker) MarkCompleted(index int, ids []string, archive string) error {
	now := time.Now().UTC()
	hash := HashIDs(ids)
	t.Batches[hash] = BatchRecord{
		Index:       index,
		IDsHash:     hash,
		IDCount:     len(ids),
		Archive:     archive,
		State:       StateCompleted,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	return t.save()
}

// MarkFailed records a failed batch and saves the ledger.
func (t *Tracker) MarkFailed(index int, ids []string) error {
	hash := HashIDs(ids)
	t.Batches[hash] = BatchRecord{
		Index:     index,
		IDsHash:   hash,
		IDCount:   len(ids),
		State:     StateFailed,
		UpdatedAt: time.Now().UTC(),
	}
	return t.save()
}

func (t *Tracker) save() error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal download state: %w", err)
	}

	// Write-then-rename so a crash never leaves a truncated ledger.
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write download state: %w", err)
	}
	return os.Rename(tmp, t.path)
}
