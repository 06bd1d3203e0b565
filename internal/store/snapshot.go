// Package store persists account snapshots as JSON documents on disk.
//
// A snapshot file carries the credential, the optional webhook URL, and
// the charge/payment lists from the last successful sync. Load validates
// the schema and fails fast; Save writes a temp file in the destination
// directory and renames it into place, so a reader never observes a
// partially written snapshot and an interrupted save leaves the original
// untouched.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jkowalik/billwatch/internal/common"
	"github.com/jkowalik/billwatch/internal/model"
)

const tempFilePattern = ".snapshot-*.json.tmp"

// FileStore reads and writes snapshot files. It is stateless; the path is
// supplied per call.
type FileStore struct{}

// NewFileStore creates a snapshot file store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// snapshotFile mirrors model.Snapshot with pointer fields so required
// fields can be distinguished from zero values during validation.
type snapshotFile struct {
	Username          *int64          `json:"username"`
	Password          *string         `json:"password"`
	DiscordWebhookURL string          `json:"discord_webhook_url"`
	Charges           []model.Charge  `json:"charges"`
	Payments          []model.Payment `json:"payments"`
}

// Load reads and validates a snapshot. Any structurally invalid or
// missing-required-field document fails with a validation error; there is
// no partial recovery.
func (FileStore) Load(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrValidation, path, err)
	}
	if file.Username == nil {
		return nil, fmt.Errorf("%w: %s: missing required field \"username\"", common.ErrValidation, path)
	}
	if file.Password == nil {
		return nil, fmt.Errorf("%w: %s: missing required field \"password\"", common.ErrValidation, path)
	}
	for i, charge := range file.Charges {
		if charge.DueDate.IsZero() {
			return nil, fmt.Errorf("%w: %s: charge %d has no due date", common.ErrValidation, path, i)
		}
	}
	for i, payment := range file.Payments {
		if payment.Date.IsZero() {
			return nil, fmt.Errorf("%w: %s: payment %d has no date", common.ErrValidation, path, i)
		}
	}

	return &model.Snapshot{
		Username:          *file.Username,
		Password:          *file.Password,
		DiscordWebhookURL: file.DiscordWebhookURL,
		Charges:           file.Charges,
		Payments:          file.Payments,
	}, nil
}

// Save writes the snapshot atomically: marshal, write to a temp file in
// the same directory, fsync, rename over the destination. If anything
// fails before the rename the destination file is untouched.
func (FileStore) Save(path string, snap *model.Snapshot) error {
	// Serialize empty lists as [], not null.
	out := *snap
	if out.Charges == nil {
		out.Charges = []model.Charge{}
	}
	if out.Payments == nil {
		out.Payments = []model.Payment{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	return nil
}
