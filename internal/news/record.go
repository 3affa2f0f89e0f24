// Package news holds the persisted news record and its JSON file format.
package news

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWrite marks failures to persist a record.
var ErrWrite = errors.New("writing news record")

// Record is the final output of one pipeline run.
type Record struct {
	Event    string   `json:"event"`
	Title    string   `json:"title"`
	Article  string   `json:"article"`
	Keywords []string `json:"keywords,omitempty"`
}

// Marshal encodes r as indented JSON without escaping non-ASCII or HTML characters.
func (r Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes r to path through a temporary file in the same directory,
// so an existing file is either fully replaced or left untouched.
func WriteFile(path string, r Record) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("%w: encoding: %v", ErrWrite, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// ReadFile loads a record written by WriteFile.
func ReadFile(path string) (Record, error) {
	var r Record
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decoding %s: %w", path, err)
	}
	return r, nil
}
