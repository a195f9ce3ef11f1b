package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"NewsDesk/internal/domain"
)

func encodeArchive(records map[string]*domain.ArchiveRecord) ([]byte, error) {
	if records == nil {
		records = map[string]*domain.ArchiveRecord{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}
	return raw, nil
}

func decodeArchive(raw []byte) (map[string]*domain.ArchiveRecord, error) {
	records := map[string]*domain.ArchiveRecord{}
	if len(raw) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return records, nil
}

func snapshotLabel(label string) string {
	if label == "" {
		return time.Now().UTC().Format("20060102T150405Z")
	}
	return label
}
