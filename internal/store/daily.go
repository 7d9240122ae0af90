// Package store persists published payloads: one dated JSON file per day
// and a SQLite archive of every run.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// EncodeJSON encodes v as indented UTF-8 JSON. HTML characters and
// non-ASCII text are written as-is.
func EncodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// DailyPath returns <dir>/<date>.json.
func DailyPath(dir, dateKey string) string {
	return filepath.Join(dir, dateKey+".json")
}

// SaveDaily writes payload to its dated file and returns the path.
func SaveDaily(dir string, payload *types.DailyPayload) (string, error) {
	if _, err := types.ParseDateKey(payload.Date); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := EncodeJSON(payload)
	if err != nil {
		return "", err
	}

	path := DailyPath(dir, payload.Date)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}

	logging.Store("Saved %s (%d bytes)", path, len(data))
	return path, nil
}

// LoadDaily reads a payload written by SaveDaily.
func LoadDaily(path string) (*types.DailyPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var payload types.DailyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	logging.StoreDebug("Loaded %s", path)
	return &payload, nil
}
