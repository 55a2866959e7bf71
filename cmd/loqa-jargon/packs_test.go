package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const infraPack = `version: 1
packs:
  - id: infra
    label: Infra
    terms: [Terraform, Kubernetes]
    corrections:
      - from: terra form
        to: Terraform
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	flags = packFlags{}
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	writeFile(t, good, infraPack)
	out, err := run(t, "validate", good)
	if err != nil || !strings.Contains(out, "1 valid, 0 skipped") {
		t.Fatalf("validate good: %v %q", err, out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "version: 1\npacks:\n  - id: \"\"\n    label: Nameless\n")
	if _, err := run(t, "validate", bad); !errors.Is(err, errInvalidPacks) {
		t.Fatalf("expected errInvalidPacks, got %v", err)
	}
}

func TestImportExportList(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "infra.yaml")
	writeFile(t, src, infraPack)
	packs := filepath.Join(dir, "user", "packs.yaml")

	out, err := run(t, "import", src, "--packs", packs)
	if err != nil || !strings.Contains(out, "imported infra") {
		t.Fatalf("import: %v %q", err, out)
	}
	if _, err := os.Stat(packs); err != nil {
		t.Fatalf("packs file not written: %v", err)
	}

	out, err = run(t, "export", "--packs", packs, "--format", "json")
	if err != nil || !strings.Contains(out, `"id": "infra"`) {
		t.Fatalf("export: %v %q", err, out)
	}

	out, err = run(t, "list", "--packs", packs)
	if err != nil || !strings.Contains(out, "infra") || strings.Contains(out, "business") {
		t.Fatalf("list: %v %q", err, out)
	}
	out, err = run(t, "list", "--packs", packs, "--builtins")
	if err != nil || !strings.Contains(out, "business") {
		t.Fatalf("list --builtins: %v %q", err, out)
	}
}
