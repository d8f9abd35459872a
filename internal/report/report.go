// Package report renders scan results for people and for programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bjtn1/doopie/internal/group"
	"github.com/bjtn1/doopie/internal/hash"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Summary holds the totals shown above the group listing.
type Summary struct {
	Files          int   `json:"files"`
	Bytes          int64 `json:"bytes"`
	UniqueFiles    int   `json:"unique_files"`
	UniqueBytes    int64 `json:"unique_bytes"`
	DuplicateFiles int   `json:"duplicate_files"`
	DuplicateBytes int64 `json:"duplicate_bytes"`
	Groups         int   `json:"groups"`
	Reclaimable    int64 `json:"reclaimable_bytes"`
	Skipped        int   `json:"skipped"`
}

func Summarize(r *group.Result) Summary {
	s := Summary{
		Files:          r.Scanned,
		Bytes:          r.ScannedBytes,
		DuplicateFiles: r.DuplicateFiles(),
		DuplicateBytes: r.DuplicateBytes(),
		Groups:         len(r.Groups),
		Reclaimable:    r.Wasted(),
		Skipped:        len(r.Errors),
	}
	s.UniqueFiles = s.Files - s.DuplicateFiles
	s.UniqueBytes = s.Bytes - s.DuplicateBytes
	return s
}

// Text writes a human readable report.
func Text(w io.Writer, root string, r *group.Result) error {
	s := Summarize(r)

	var b strings.Builder
	fmt.Fprintf(&b, "Report of scanning %s\n\n", root)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Number of files\t%d\n", s.Files)
	fmt.Fprintf(tw, "Size of files\t%s\n", FormatSize(s.Bytes))
	fmt.Fprintf(tw, "Number of unique files\t%d\n", s.UniqueFiles)
	fmt.Fprintf(tw, "Size of unique files\t%s\n", FormatSize(s.UniqueBytes))
	fmt.Fprintf(tw, "Number of duplicate files\t%d\n", s.DuplicateFiles)
	fmt.Fprintf(tw, "Size of duplicate files\t%s\n", FormatSize(s.DuplicateBytes))
	fmt.Fprintf(tw, "Reclaimable\t%s\n", FormatSize(s.Reclaimable))
	if err := tw.Flush(); err != nil {
		return err
	}
	b.WriteString("\n")

	if len(r.Groups) == 0 {
		b.WriteString("No duplicates found.\n")
	} else {
		fmt.Fprintf(&b, "DUPLICATES (%d groups):\n", len(r.Groups))
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "\n  %s (%d files, %s each)\n", shortFingerprint(g.Fingerprint), len(g.Paths), FormatSize(g.Size))
			for _, p := range g.Paths {
				fmt.Fprintf(&b, "    %s\n", p)
			}
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nSKIPPED (%d files):\n", len(r.Errors))
		for _, err := range r.Errors {
			fmt.Fprintf(&b, "  ! %v\n", err)
		}
	}

	if r.Partial {
		b.WriteString("\nScan was interrupted: this report is incomplete.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortFingerprint(fp hash.Fingerprint) string {
	if len(fp) > 16 {
		return string(fp[:16]) + "..."
	}
	return string(fp)
}

// Document is the JSON form of a report.
type Document struct {
	Generator string                 `json:"generator"`
	Created   time.Time              `json:"created"`
	Root      string                 `json:"root"`
	Algorithm string                 `json:"algorithm"`
	Complete  bool                   `json:"complete"`
	Summary   Summary                `json:"summary"`
	Groups    []group.DuplicateGroup `json:"groups"`
	Skipped   []string               `json:"skipped"`
}

func NewDocument(root string, algo hash.Algorithm, r *group.Result) Document {
	skipped := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		skipped = append(skipped, err.Error())
	}
	return Document{
		Generator: "doopie",
		Created:   time.Now().UTC(),
		Root:      root,
		Algorithm: string(algo),
		Complete:  !r.Partial,
		Summary:   Summarize(r),
		Groups:    r.Groups,
		Skipped:   skipped,
	}
}

// JSON writes the report as an indented JSON document.
func JSON(w io.Writer, root string, algo hash.Algorithm, r *group.Result) error {
	data, err := json.MarshalIndent(NewDocument(root, algo, r), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Write renders r in the given format.
func Write(w io.Writer, format, root string, algo hash.Algorithm, r *group.Result) error {
	switch format {
	case "", FormatText:
		return Text(w, root, r)
	case FormatJSON:
		return JSON(w, root, algo, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Save writes the report to path, creating parent directories.
func Save(path, format, root string, algo hash.Algorithm, r *group.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := Write(f, format, root, algo, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
