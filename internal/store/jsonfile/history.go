package jsonfile

import (
	"time"

	"github.com/forgelabs/appforge/internal/models"
)

// maxHistoryRecords caps the retained build history per app. The newest
// record is always first; appending beyond the cap evicts the oldest.
const maxHistoryRecords = 50

type historyStore struct {
	root *Store
}

func (h *historyStore) load(projectID, appID string) ([]*models.BuildRecord, error) {
	var records []*models.BuildRecord
	if err := readJSON(h.root.historyFile(projectID, appID), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *historyStore) Append(projectID, appID string, record *models.BuildRecord) error {
	h.root.mu.Lock()
	defer h.root.mu.Unlock()

	records, err := h.load(projectID, appID)
	if err != nil {
		return err
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	records = append([]*models.BuildRecord{record}, records...)
	if len(records) > maxHistoryRecords {
		records = records[:maxHistoryRecords]
	}

	return writeJSON(h.root.historyFile(projectID, appID), records)
}

func (h *historyStore) List(projectID, appID string, limit int) ([]*models.BuildRecord, error) {
	h.root.mu.Lock()
	defer h.root.mu.Unlock()

	records, err := h.load(projectID, appID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
