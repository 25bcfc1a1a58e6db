// Package scenefile reads and writes a page's elements as a JSON file and
// watches those files for edits made outside the app.
package scenefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"canvasnotes/internal/domain"
)

// Ext is the extension of scene files.
const Ext = ".json"

// Path returns the scene file of pageID inside dir.
func Path(dir, pageID string) string {
	return filepath.Join(dir, pageID+Ext)
}

// Encode renders els as an indented JSON array with a trailing newline.
func Encode(els []domain.Element) ([]byte, error) {
	raw, err := domain.EncodeElements(els)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent scene: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func Decode(data []byte) ([]domain.Element, error) {
	return domain.DecodeElements(bytes.TrimSpace(data))
}

// WriteFile replaces path atomically: the scene is written to a temp file in
// the same directory and renamed over the target.
func WriteFile(path string, els []domain.Element) error {
	data, err := Encode(els)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create scene directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".scene-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write scene: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close scene: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename scene: %w", err)
	}
	return nil
}

func ReadFile(path string) ([]domain.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	els, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return els, nil
}
