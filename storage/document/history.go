// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/poiesic/taskvault/storage"
)

const (
	opPut    = "put"
	opRemove = "remove"
)

// HistoryEntry describes one committed change of a partition document.
type HistoryEntry struct {
	Seq  uint64    `json:"seq,omitempty"`
	Op   string    `json:"op"`
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

// History returns the change log of the handle's partition in commit order.
func (m *Manager) History(ctx context.Context, h *Handle) ([]HistoryEntry, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	changes, err := m.engine.Changes(ctx, h.partition)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(changes))
	for _, c := range changes {
		var entry HistoryEntry
		if err := storage.Unmarshal(c.Data, &entry); err != nil {
			return nil, storage.Conversion("document", "history", h.partition, err)
		}
		entry.Seq = c.Seq
		entries = append(entries, entry)
	}
	return entries, nil
}

// ExportHistory writes the handle's change log to <dir>/<partition>.history.json
// and returns the file path. A non-empty prefix keeps only changes at or below it.
func (m *Manager) ExportHistory(ctx context.Context, h *Handle, dir string, prefix Path) (string, error) {
	entries, err := m.History(ctx, h)
	if err != nil {
		return "", err
	}
	if len(prefix) > 0 {
		entries = slices.DeleteFunc(entries, func(e HistoryEntry) bool {
			return !ParsePath(e.Path).HasPrefix(prefix)
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, h.partition.String()+".history.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history: %w", err)
	}

	m.logger.Info("exported document history", "partition", h.partition, "entries", len(entries), "path", path)
	return path, nil
}
