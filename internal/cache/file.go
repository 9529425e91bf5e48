package cache

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/tn-tools/leasepay/internal/models"
)

// Summary lines can be large on busy heights.
const maxRecordSize = 16 * 1024 * 1024

// FileStore keeps one JSON summary per line in an append-only file.
//
// Instead of deleting the previous cache up front, Load renames it to
// a .old backup after reading it; the caller replays the loaded
// summaries through Append into a fresh file and Commit drops the
// backup once the full range is on disk. A crash at any point leaves
// either the backup or a valid prefix of the new file.
type FileStore struct {
	path string
	file *os.File
}

// NewFileStore returns a store over the given path. Nothing is touched
// on disk until Load or Append is called.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) backupPath() string {
	return s.path + ".old"
}

// Load reads the cache file (or, if a previous run crashed between
// rotation and commit, the .old backup) and rotates it out of the way.
func (s *FileStore) Load() ([]models.BlockSummary, error) {
	path := s.path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Recover from a run that rotated but never committed.
		if _, berr := os.Stat(s.backupPath()); berr != nil {
			return nil, nil
		}
		path = s.backupPath()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "opening cache file %s", path)
	}
	defer f.Close()

	var summaries []models.BlockSummary
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)
	line := 0
	for scanner.Scan() {
		line++
		var summary models.BlockSummary
		if err := json.Unmarshal(scanner.Bytes(), &summary); err != nil {
			return nil, errors.WithMessagef(err, "malformed cache record at %s line %d", path, line)
		}
		summaries = append(summaries, summary)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithMessagef(err, "reading cache file %s", path)
	}

	if path == s.path {
		if err := os.Rename(s.path, s.backupPath()); err != nil {
			return nil, errors.WithMessagef(err, "rotating cache file %s", s.path)
		}
	}
	return summaries, nil
}

// Append writes one summary line and syncs it to disk before returning.
func (s *FileStore) Append(summary models.BlockSummary) error {
	if s.file == nil {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.WithMessagef(err, "opening cache file %s", s.path)
		}
		s.file = f
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return errors.WithMessagef(err, "marshaling summary for height %d", summary.Height)
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return errors.WithMessagef(err, "appending summary for height %d", summary.Height)
	}
	if err := s.file.Sync(); err != nil {
		return errors.WithMessagef(err, "syncing cache file %s", s.path)
	}
	return nil
}

// Commit removes the rotated backup now that the new file is complete.
func (s *FileStore) Commit() error {
	if err := os.Remove(s.backupPath()); err != nil && !os.IsNotExist(err) {
		return errors.WithMessagef(err, "removing cache backup %s", s.backupPath())
	}
	return nil
}

// Close closes the underlying file handle.
func (s *FileStore) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
