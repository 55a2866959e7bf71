package jargon

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func builtinSnapshot() Snapshot {
	return NewCatalog().Snapshot()
}

func TestComputeMergesProfiles(t *testing.T) {
	dict := Compute(builtinSnapshot(), []string{"web_dev", "devops"}, Custom{})
	if !contains(dict.Terms, "TypeScript") || !contains(dict.Terms, "Terraform") {
		t.Fatalf("expected terms from both profiles, got %v", dict.Terms)
	}
}

func TestComputeCustomOverrides(t *testing.T) {
	dict := Compute(builtinSnapshot(), []string{"web_dev"}, Custom{
		Terms:       []string{"typescript"},
		Corrections: []Correction{{From: "next js", To: "NextJS"}},
	})

	var ts []string
	for _, term := range dict.Terms {
		if strings.EqualFold(term, "typescript") {
			ts = append(ts, term)
		}
	}
	if len(ts) != 1 || ts[0] != "typescript" {
		t.Fatalf("expected custom casing to win once, got %v", ts)
	}
	for _, c := range dict.Corrections {
		if strings.EqualFold(c.From, "next js") && c.To != "NextJS" {
			t.Fatalf("expected custom correction to override, got %+v", c)
		}
	}
}

func TestComputeOrdersLongestFirst(t *testing.T) {
	dict := Compute(builtinSnapshot(), nil, Custom{Corrections: []Correction{
		{From: "E C", To: "EC"},
		{From: "E C two", To: "EC2"},
	}})
	if dict.Corrections[0].From != "E C two" || dict.Corrections[1].From != "E C" {
		t.Fatalf("unexpected order %+v", dict.Corrections)
	}
}

func TestComputeIgnoresUnknownProfiles(t *testing.T) {
	dict := Compute(builtinSnapshot(), []string{"nope"}, Custom{})
	if len(dict.Terms) != 0 || len(dict.Corrections) != 0 {
		t.Fatalf("expected empty dictionary, got %+v", dict)
	}
}

func TestInitialPrompt(t *testing.T) {
	dict := Compute(builtinSnapshot(), []string{"web_dev"}, Custom{Terms: []string{"MyCustomTerm"}})
	prompt := InitialPrompt(dict.Terms)
	if !strings.HasPrefix(prompt, "Technical dictation. Common terms: ") || !strings.HasSuffix(prompt, ".") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if strings.Index(prompt, "MyCustomTerm") > strings.Index(prompt, "TypeScript") {
		t.Fatal("custom terms should come first")
	}

	var many []string
	for i := 0; i < 200; i++ {
		many = append(many, "VeryLongTermNumber"+strings.Repeat("x", i%7))
	}
	if got := InitialPrompt(many); len(got) > 1000 {
		t.Fatalf("prompt exceeds cap: %d", len(got))
	}
	if InitialPrompt(nil) != "" {
		t.Fatal("expected empty prompt for no terms")
	}
}

func TestCorrectorApply(t *testing.T) {
	ts := []Correction{{From: "type script", To: "TypeScript"}}
	cases := []struct {
		name  string
		rules []Correction
		in    string
		want  string
	}{
		{"at token", ts, "Check @file.rs for type script code", "Check @file.rs for TypeScript code"},
		{"backticks", ts, "Run `type script build` with type script", "Run `type script build` with TypeScript"},
		{"url", ts, "Visit https://type-script.org for type script docs", "Visit https://type-script.org for TypeScript docs"},
		{"path", ts, "Open /usr/local/bin/app and type script", "Open /usr/local/bin/app and TypeScript"},
		{"cli flag", ts, "Use --verbose and type script", "Use --verbose and TypeScript"},
		{"word boundary", ts, "This script is good", "This script is good"},
		{"case insensitive", ts, "I use Type Script and TYPE SCRIPT", "I use TypeScript and TypeScript"},
		{"whitespace tolerant", ts, "type   script", "TypeScript"},
		{"empty", ts, "", ""},
		{"no rules", nil, "Hello world", "Hello world"},
		{"multiple", []Correction{{From: "type script", To: "TypeScript"}, {From: "next js", To: "Next.js"}},
			"I use type script with next js", "I use TypeScript with Next.js"},
		{"longest wins", []Correction{{From: "data", To: "DATA"}, {From: "data base", To: "database"}},
			"the data base and the data", "the database and the DATA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewCorrector(tc.rules).Apply(tc.in); got != tc.want {
				t.Fatalf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCorrectorIsIdempotent(t *testing.T) {
	snap := builtinSnapshot()
	var ids []string
	for _, p := range snap.Profiles {
		ids = append(ids, p.ID)
	}
	dict := Compute(snap, ids, Custom{Corrections: []Correction{
		{From: "js", To: "JS"},
		{From: "cube control", To: "kubectl"},
	}})
	c := NewCorrector(dict.Corrections)

	inputs := []string{
		"we moved the next js app from post gres to mongo",
		"the E C two box talks over G R P C to E K S",
		"flash the S T M 32 over jay tag and check the you art",
		"log the chain of custody and the body cam footage, B O L O issued",
		"train it with pie torch and tensor flow then push to hugging face",
		"the A R R and M R R beat the K P I, go to market next quarter",
		"cube control apply with type script and java script",
		"Next.js and js and JS",
	}
	for _, in := range inputs {
		once := c.Apply(in)
		twice := c.Apply(once)
		if once != twice {
			t.Fatalf("not idempotent:\n in:    %q\n once:  %q\n twice: %q", in, once, twice)
		}
	}
}

func TestCorrectorKeepsOverlappingRules(t *testing.T) {
	c := NewCorrector([]Correction{
		{From: "node js", To: "Node.js"},
		{From: "js", To: "JavaScript"},
		{From: "react", To: "React"},
		{From: "react native", To: "React Native"},
	})
	if n := len(c.Rules()); n != 4 {
		t.Fatalf("expected every rule kept, got %d", n)
	}
	cases := []struct {
		in   string
		want string
	}{
		{"write some js in node js", "write some JavaScript in Node.js"},
		{"Node.js ships js", "Node.js ships JavaScript"},
		{"React native and react", "React Native and React"},
	}
	for _, tc := range cases {
		once := c.Apply(tc.in)
		if once != tc.want {
			t.Fatalf("Apply(%q) = %q, want %q", tc.in, once, tc.want)
		}
		if twice := c.Apply(once); twice != once {
			t.Fatalf("second Apply changed %q to %q", once, twice)
		}
	}
}

func TestFuzzyMatcher(t *testing.T) {
	cases := []struct {
		name  string
		terms []string
		in    string
		want  string
	}{
		{"exact recase", []string{"Hello", "World"}, "hello world", "Hello World"},
		{"near miss", []string{"hello", "world"}, "helo wrold", "hello world"},
		{"prefers longer span", []string{"OpenAI", "GPT"}, "Open AI GPT model", "OpenAI GPT model"},
		{"keeps punctuation", []string{"ChargeBee"}, "pay with Charge B, then", "pay with ChargeBee, then"},
		{"protected", []string{"hello"}, "see @helo now", "see @helo now"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFuzzyMatcher(tc.terms, 0.5)
			if got := f.Apply(tc.in); got != tc.want {
				t.Fatalf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
	if NewFuzzyMatcher([]string{"x"}, 0) != nil {
		t.Fatal("zero threshold should disable matching")
	}
}

func TestImportSkipsMalformedEntries(t *testing.T) {
	doc := `{
  "version": 1,
  "packs": [
    {"id": "broken", "terms": ["Foo"], "corrections": []},
    {"id": "acme", "label": "Acme Corp", "terms": ["Widgetron"], "corrections": [{"from": "widget tron", "to": "Widgetron"}]}
  ]
}`
	cat := NewCatalog()
	report, err := cat.ImportPacks([]byte(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Imported) != 1 || report.Imported[0] != "acme" {
		t.Fatalf("expected only acme imported, got %+v", report)
	}
	if len(report.Issues) != 1 || report.Issues[0].ID != "broken" || report.Issues[0].Reason != "missing label" {
		t.Fatalf("expected one issue for broken, got %+v", report.Issues)
	}
	if _, ok := cat.Get("broken"); ok {
		t.Fatal("malformed entry was imported")
	}
	p, ok := cat.Get("acme")
	if !ok || p.Provenance != ProvenanceUser || !p.Enabled {
		t.Fatalf("unexpected imported profile %+v", p)
	}
}

func TestImportRejectsDuplicatesAndBuiltinIDs(t *testing.T) {
	doc := `version: 1
packs:
  - id: acme
    label: Acme
    terms: [Widgetron]
  - id: acme
    label: Acme again
  - id: web_dev
    label: Shadow
  - id: typed
    label: Typed
    terms: 42
`
	cat := NewCatalog()
	report, err := cat.ImportPacks([]byte(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Imported) != 1 {
		t.Fatalf("expected one import, got %+v", report.Imported)
	}
	if len(report.Issues) != 3 {
		t.Fatalf("expected three issues, got %+v", report.Issues)
	}
	p, _ := cat.Get("acme")
	if p.Label != "Acme" {
		t.Fatalf("expected first duplicate kept, got %q", p.Label)
	}
	if web, _ := cat.Get("web_dev"); web.Label != "Web Development" || !web.ReadOnly() {
		t.Fatal("built-in profile was overwritten")
	}
}

func TestImportVersion(t *testing.T) {
	for _, doc := range []string{`{"version": 2, "packs": []}`, `{"packs": []}`} {
		if _, _, err := DecodePacks([]byte(doc)); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("expected ErrUnsupportedVersion for %s, got %v", doc, err)
		}
	}
	if _, _, err := DecodePacks([]byte(`{"version": 1, "packs": [`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExportRoundTrip(t *testing.T) {
	src := NewCatalog()
	if err := src.Put(Profile{ID: "acme", Label: "Acme", Terms: []string{"Widgetron"},
		Corrections: []Correction{{From: "widget tron", To: "Widgetron"}}}); err != nil {
		t.Fatal(err)
	}
	for _, format := range []string{"json", "yaml"} {
		data, err := src.ExportPacks(format)
		if err != nil {
			t.Fatalf("%s export: %v", format, err)
		}
		if strings.Contains(string(data), "web_dev") {
			t.Fatalf("%s export leaked built-ins", format)
		}
		dst := NewCatalog()
		report, err := dst.ImportPacks(data)
		if err != nil || len(report.Imported) != 1 {
			t.Fatalf("%s re-import: %+v, %v", format, report, err)
		}
		got, _ := dst.Get("acme")
		if got.Corrections[0].To != "Widgetron" {
			t.Fatalf("%s export lost corrections: %+v", format, got)
		}
	}
}

func TestCatalogGuardsBuiltins(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Put(Profile{ID: "coding", Label: "Mine"}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := cat.Remove("coding"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly on remove, got %v", err)
	}
	if err := cat.Put(Profile{ID: "x", Label: "X", Corrections: []Correction{{From: "a"}}}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := cat.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	cat := NewCatalog()
	snap := cat.Snapshot()
	if err := cat.Put(Profile{ID: "late", Label: "Late", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetEnabled("coding", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := snap.Get("late"); ok {
		t.Fatal("snapshot observed a later insert")
	}
	coding, _ := snap.Get("coding")
	if !coding.Enabled {
		t.Fatal("snapshot observed a later toggle")
	}
	if len(cat.Snapshot().Enabled()) != len(snap.Enabled()) {
		t.Fatal("expected one profile disabled and one added")
	}
	if len(Builtins()) != 7 {
		t.Fatalf("expected seven built-in profiles, got %d", len(Builtins()))
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestCatalogFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := NewCatalog()
	if err := src.Put(Profile{ID: "infra", Label: "Infra", Terms: []string{"Terraform"}}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"packs.yaml", "packs.json"} {
		path := filepath.Join(dir, "nested", name)
		if err := src.SaveFile(path); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		dst := NewCatalog()
		report, err := dst.LoadFile(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if len(report.Imported) != 1 || report.Imported[0] != "infra" {
			t.Fatalf("%s: unexpected report %+v", name, report)
		}
	}

	report, err := NewCatalog().LoadFile(filepath.Join(dir, "missing.yaml"))
	if err != nil || len(report.Imported) != 0 {
		t.Fatalf("missing file should import nothing: %+v %v", report, err)
	}
	if FormatFor("x.YML") != "yaml" || FormatFor("x.txt") != "json" {
		t.Fatal("unexpected format detection")
	}
}
