package jargon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile imports the pack document at path into c. A missing file imports
// nothing.
func (c *Catalog) LoadFile(path string) (ImportReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ImportReport{}, nil
	}
	if err != nil {
		return ImportReport{}, fmt.Errorf("read packs file: %w", err)
	}
	report, err := c.ImportPacks(data)
	if err != nil {
		return report, fmt.Errorf("import %s: %w", path, err)
	}
	return report, nil
}

// SaveFile writes the user profiles to path, as YAML when the extension is
// .yaml or .yml and JSON otherwise. The file is replaced atomically.
func (c *Catalog) SaveFile(path string) error {
	data, err := c.ExportPacks(FormatFor(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// FormatFor picks the pack document format from a file name.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
