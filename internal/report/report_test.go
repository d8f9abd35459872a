package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bjtn1/doopie/internal/group"
	"github.com/bjtn1/doopie/internal/hash"
)

func sampleResult() *group.Result {
	r := group.Group([]group.Entry{
		{Path: "/data/a.txt", Size: 2048, Fingerprint: "aaaaaaaaaaaaaaaaaaaaaaaa"},
		{Path: "/data/b.txt", Size: 2048, Fingerprint: "aaaaaaaaaaaaaaaaaaaaaaaa"},
		{Path: "/data/c.txt", Size: 10, Fingerprint: "cc"},
	})
	r.Errors = append(r.Errors, errors.New("failed to open /data/locked: permission denied"))
	return r
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.00 KB",
		1536:            "1.50 KB",
		5 * 1024 * 1024: "5.00 MB",
		3 << 30:         "3.00 GB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResult())

	if s.Files != 3 || s.DuplicateFiles != 2 || s.UniqueFiles != 1 {
		t.Errorf("Unexpected file counts: %+v", s)
	}
	if s.Bytes != 4106 || s.DuplicateBytes != 4096 || s.UniqueBytes != 10 {
		t.Errorf("Unexpected byte counts: %+v", s)
	}
	if s.Reclaimable != 2048 || s.Groups != 1 || s.Skipped != 1 {
		t.Errorf("Unexpected totals: %+v", s)
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, "/data", sampleResult()); err != nil {
		t.Fatalf("Text failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Report of scanning /data",
		"Number of duplicate files",
		"DUPLICATES (1 groups)",
		"aaaaaaaaaaaaaaaa...",
		"    /data/a.txt\n    /data/b.txt\n",
		"SKIPPED (1 files)",
		"permission denied",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "/data/c.txt") {
		t.Error("Unique file should not be listed")
	}
}

func TestText_NoDuplicatesAndPartial(t *testing.T) {
	r := group.Group(nil)
	r.Partial = true

	var buf bytes.Buffer
	if err := Text(&buf, "/empty", r); err != nil {
		t.Fatalf("Text failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "No duplicates found.") {
		t.Errorf("Expected empty message, got:\n%s", out)
	}
	if !strings.Contains(out, "incomplete") {
		t.Errorf("Partial scan should be flagged, got:\n%s", out)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, "/data", hash.SHA256, sampleResult()); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if doc.Root != "/data" || doc.Algorithm != "sha256" || !doc.Complete {
		t.Errorf("Unexpected header: %+v", doc)
	}
	if len(doc.Groups) != 1 || len(doc.Groups[0].Paths) != 2 {
		t.Errorf("Unexpected groups: %+v", doc.Groups)
	}
	if len(doc.Skipped) != 1 {
		t.Errorf("Expected 1 skipped entry, got %v", doc.Skipped)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "xml", "/data", hash.SHA256, sampleResult()); err == nil {
		t.Error("Write should reject unknown format")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out", "dupes.json")

	if err := Save(path, FormatJSON, "/data", hash.SHA256, sampleResult()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if !json.Valid(data) {
		t.Error("Saved report is not valid JSON")
	}
}
