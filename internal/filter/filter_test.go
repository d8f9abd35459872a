package filter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIgnore_Patterns(t *testing.T) {
	pred, err := Ignore([]string{
		"*.tmp",
		"*.log",
		"node_modules/",
		".git/",
		"docs/*.md",
	})
	if err != nil {
		t.Fatalf("Ignore failed: %v", err)
	}

	files := map[string]bool{
		"file1.txt":                 true,
		"file2.tmp":                 false,
		"sub/file3.log":             false,
		"node_modules/lib.js":       false,
		"a/b/node_modules/x/lib.js": false,
		".git/config":               false,
		"src/main.go":               true,
		"docs/readme.md":            false,
		"other/docs/readme.md":      true,
		"node_modules":              true,
	}

	for f, want := range files {
		if got := pred(f); got != want {
			t.Errorf("pred(%q) = %v, want %v", f, got, want)
		}
	}
}

func TestIgnore_Empty(t *testing.T) {
	pred, err := Ignore(nil)
	if err != nil {
		t.Fatalf("Ignore failed: %v", err)
	}
	if !pred("anything/at/all.txt") {
		t.Error("empty ignore list should admit everything")
	}
}

func TestIgnore_BadPattern(t *testing.T) {
	if _, err := Ignore([]string{"[a-"}); err == nil {
		t.Error("Ignore should reject a malformed pattern")
	}
}

func TestRegex(t *testing.T) {
	pred, err := Regex(`\.jpe?g$`)
	if err != nil {
		t.Fatalf("Regex failed: %v", err)
	}

	if !pred("photos/a.jpg") || !pred("b.jpeg") {
		t.Error("regex should admit jpeg files")
	}
	if pred("notes.txt") {
		t.Error("regex should reject notes.txt")
	}

	// unanchored, applies to the whole relative path
	pred, err = Regex("^photos/")
	if err != nil {
		t.Fatalf("Regex failed: %v", err)
	}
	if !pred("photos/a.txt") || pred("x/photos/a.txt") {
		t.Error("anchored directory regex matched the wrong paths")
	}
}

func TestRegex_Invalid(t *testing.T) {
	if _, err := Regex("(unclosed"); err == nil {
		t.Error("Regex should reject invalid expression")
	}
}

func TestReadPatterns(t *testing.T) {
	input := `# build output
*.o

  dist/
# trailing comment
*.swp
`
	patterns, err := ReadPatterns(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPatterns failed: %v", err)
	}

	expected := []string{"*.o", "dist/", "*.swp"}
	if len(patterns) != len(expected) {
		t.Fatalf("Expected %d patterns, got %d: %v", len(expected), len(patterns), patterns)
	}
	for i := range expected {
		if patterns[i] != expected[i] {
			t.Errorf("patterns[%d]: expected %q, got %q", i, expected[i], patterns[i])
		}
	}
}

func TestRules_Build(t *testing.T) {
	tmpDir := t.TempDir()
	ignoreFile := filepath.Join(tmpDir, "ignore")
	if err := os.WriteFile(ignoreFile, []byte("cache/\n"), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}

	pred, err := Rules{
		Ignore:     []string{"*.tmp"},
		IgnoreFile: ignoreFile,
		Regex:      `\.txt$|\.tmp$`,
	}.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	cases := map[string]bool{
		"a.txt":       true,
		"a.tmp":       false,
		"a.bin":       false,
		"cache/a.txt": false,
	}
	for f, want := range cases {
		if got := pred(f); got != want {
			t.Errorf("pred(%q) = %v, want %v", f, got, want)
		}
	}
}

func TestRules_MissingIgnoreFile(t *testing.T) {
	_, err := Rules{IgnoreFile: "/nonexistent/ignore"}.Build()
	if err == nil {
		t.Error("Build should fail for a missing ignore file")
	}
}

func TestAnd_Not(t *testing.T) {
	isA := func(p string) bool { return p == "a" }
	pred := And(nil, All, Not(isA))
	if pred("a") {
		t.Error("And(Not(isA)) admitted a")
	}
	if !pred("b") {
		t.Error("And(Not(isA)) rejected b")
	}
	if !And()("anything") {
		t.Error("empty And should admit everything")
	}
}
