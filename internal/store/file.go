package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"examPrepAPI/internal/types/progress"
)

// FileMedium persists the state as one JSON document, the same shape
// the original flat-file deployment used. Writes go through a temp
// file and rename so a crash mid-write leaves the previous state
// intact instead of a truncated file.
type FileMedium struct {
	path string
}

func NewFileMedium(path string) *FileMedium {
	return &FileMedium{path: path}
}

func (m *FileMedium) Load(_ context.Context) (map[string]*progress.UserProgress, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*progress.UserProgress), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", m.path, err)
	}

	state := make(map[string]*progress.UserProgress)
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt file is treated as absent. The next save replaces it.
		log.Printf("FileMedium: %s is not valid JSON, ignoring: %v", m.path, err)
		return make(map[string]*progress.UserProgress), nil
	}
	return state, nil
}

func (m *FileMedium) Save(_ context.Context, state map[string]*progress.UserProgress) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", m.path, err)
	}
	return nil
}
