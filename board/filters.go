package board

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

const filtersFile = "filters.json"

// FilterStore persists the active filter per board across runs. Reads never
// fail: missing or unreadable state means every board shows all tasks.
type FilterStore struct {
	dir string
}

// NewFilterStore creates a store rooted at dir.
func NewFilterStore(dir string) *FilterStore {
	return &FilterStore{dir: dir}
}

func (f *FilterStore) path() string {
	return filepath.Join(f.dir, filtersFile)
}

func (f *FilterStore) load() map[string]Filter {
	data, err := os.ReadFile(f.path())
	if err != nil {
		return map[string]Filter{}
	}

	var filters map[string]Filter
	if err := json.Unmarshal(data, &filters); err != nil || filters == nil {
		return map[string]Filter{}
	}
	return filters
}

// Get returns the active filter for a board, defaulting to FilterAll.
func (f *FilterStore) Get(boardID int) Filter {
	filter, ok := f.load()[strconv.Itoa(boardID)]
	if !ok || !filter.IsValid() {
		return FilterAll
	}
	return filter
}

// Set persists the active filter for a board immediately.
func (f *FilterStore) Set(boardID int, filter Filter) error {
	if !filter.IsValid() {
		filter = FilterAll
	}

	filters := f.load()
	filters[strconv.Itoa(boardID)] = filter
	return f.save(filters)
}

// Forget drops the persisted filter for a board, used when the board is
// deleted.
func (f *FilterStore) Forget(boardID int) error {
	filters := f.load()
	key := strconv.Itoa(boardID)
	if _, ok := filters[key]; !ok {
		return nil
	}
	delete(filters, key)
	return f.save(filters)
}

// save writes the filter map atomically: temp file in the same directory,
// then rename, so a crash never leaves a partial file.
func (f *FilterStore) save(filters map[string]Filter) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(filters, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(f.dir, filtersFile+".tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0o600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, f.path()); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
