package jargon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentVersion is the only pack document version understood.
const DocumentVersion = 1

var ErrUnsupportedVersion = errors.New("jargon: unsupported pack document version")

// Document is the import/export format for user profiles.
type Document struct {
	Version int    `json:"version" yaml:"version"`
	Packs   []Pack `json:"packs" yaml:"packs"`
}

type Pack struct {
	ID          string       `json:"id" yaml:"id"`
	Label       string       `json:"label" yaml:"label"`
	Terms       []string     `json:"terms" yaml:"terms"`
	Corrections []Correction `json:"corrections" yaml:"corrections"`
}

// Issue describes a skipped pack entry.
type Issue struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Imported []string `json:"imported"`
	Issues   []Issue  `json:"issues,omitempty"`
}

// DecodePacks parses a JSON or YAML pack document. Entries that fail
// validation are left out of the returned document and reported; only a
// malformed document or an unknown version is an error.
func DecodePacks(data []byte) (Document, ImportReport, error) {
	var report ImportReport
	entries, version, err := splitDocument(data)
	if err != nil {
		return Document{}, report, err
	}
	if version == nil {
		return Document{}, report, fmt.Errorf("%w: version is required", ErrUnsupportedVersion)
	}
	if *version != DocumentVersion {
		return Document{}, report, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *version)
	}

	doc := Document{Version: DocumentVersion}
	seen := make(map[string]bool)
	for i, decode := range entries {
		var pack Pack
		if err := decode(&pack); err != nil {
			report.Issues = append(report.Issues, Issue{Index: i, Reason: fmt.Sprintf("decode entry: %v", err)})
			continue
		}
		pack = normalizePack(pack)
		if reason := validatePack(pack); reason != "" {
			report.Issues = append(report.Issues, Issue{Index: i, ID: pack.ID, Reason: reason})
			continue
		}
		if seen[pack.ID] {
			report.Issues = append(report.Issues, Issue{Index: i, ID: pack.ID, Reason: "duplicate id in document"})
			continue
		}
		seen[pack.ID] = true
		doc.Packs = append(doc.Packs, pack)
	}
	return doc, report, nil
}

// EncodePacks writes doc as "json" (indented) or "yaml".
func EncodePacks(doc Document, format string) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Packs == nil {
		doc.Packs = []Pack{}
	}
	switch strings.ToLower(format) {
	case "", "json":
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode packs: %w", err)
		}
		return append(out, '\n'), nil
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode packs: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode packs: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown pack format %q", format)
	}
}

// splitDocument returns one decoder per pack entry so that a single bad
// entry does not fail the whole document.
func splitDocument(data []byte) ([]func(*Pack) error, *int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, errors.New("jargon: empty pack document")
	}

	if trimmed[0] == '{' {
		var raw struct {
			Version *int              `json:"version"`
			Packs   []json.RawMessage `json:"packs"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, nil, fmt.Errorf("parse pack document: %w", err)
		}
		entries := make([]func(*Pack) error, len(raw.Packs))
		for i, msg := range raw.Packs {
			msg := msg
			entries[i] = func(p *Pack) error { return json.Unmarshal(msg, p) }
		}
		return entries, raw.Version, nil
	}

	var raw struct {
		Version *int        `yaml:"version"`
		Packs   []yaml.Node `yaml:"packs"`
	}
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse pack document: %w", err)
	}
	entries := make([]func(*Pack) error, len(raw.Packs))
	for i := range raw.Packs {
		node := raw.Packs[i]
		entries[i] = func(p *Pack) error { return node.Decode(p) }
	}
	return entries, raw.Version, nil
}

func normalizePack(p Pack) Pack {
	p.ID = strings.TrimSpace(p.ID)
	p.Label = strings.TrimSpace(p.Label)
	terms := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	p.Terms = terms
	for i := range p.Corrections {
		p.Corrections[i].From = strings.TrimSpace(p.Corrections[i].From)
		p.Corrections[i].To = strings.TrimSpace(p.Corrections[i].To)
	}
	return p
}

func validatePack(p Pack) string {
	switch {
	case p.ID == "":
		return "missing id"
	case p.Label == "":
		return "missing label"
	}
	for i, c := range p.Corrections {
		if c.From == "" || c.To == "" {
			return fmt.Sprintf("correction %d needs from and to", i)
		}
	}
	return ""
}
