package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// FilePersistence keeps the archive as one JSON document on disk.
type FilePersistence struct {
	path string
}

var _ ports.ArchivePersistence = (*FilePersistence)(nil)

// NewFilePersistence stores the archive at path.
func NewFilePersistence(path string) *FilePersistence {
	return &FilePersistence{path: path}
}

// Load reads the document; a missing file is an empty archive.
func (f *FilePersistence) Load(_ context.Context) (map[string]*domain.ArchiveRecord, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*domain.ArchiveRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", f.path, err)
	}
	return decodeArchive(raw)
}

// Save overwrites the document via a temp file and rename.
func (f *FilePersistence) Save(_ context.Context, records map[string]*domain.ArchiveRecord) error {
	raw, err := encodeArchive(records)
	if err != nil {
		return err
	}
	return writeAtomic(f.path, raw)
}

// Snapshot writes a sibling backup file and returns its path.
func (f *FilePersistence) Snapshot(_ context.Context, records map[string]*domain.ArchiveRecord, label string) (string, error) {
	raw, err := encodeArchive(records)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(f.path)
	target := fmt.Sprintf("%s_backup_%s%s", strings.TrimSuffix(f.path, ext), snapshotLabel(label), ext)
	if err := writeAtomic(target, raw); err != nil {
		return "", err
	}
	return target, nil
}

func writeAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
