// Package filter builds admission predicates that decide which discovered
// files take part in a scan.
//
// Every predicate receives the slash-separated path of a file relative to
// the scan root, e.g. "photos/2021/img.jpg".
package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
)

// Predicate reports whether a file is admitted to the scan.
type Predicate func(relPath string) bool

// All admits every file.
func All(string) bool { return true }

// And admits a file only when every predicate admits it. Nil predicates are
// ignored.
func And(preds ...Predicate) Predicate {
	var active []Predicate
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return All
	}
	if len(active) == 1 {
		return active[0]
	}
	return func(relPath string) bool {
		for _, p := range active {
			if !p(relPath) {
				return false
			}
		}
		return true
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(relPath string) bool { return !p(relPath) }
}

// Ignore returns a predicate that rejects files matching any of the glob
// patterns.
//
// Patterns follow path.Match syntax:
//   - "name/" matches when any parent directory of the file matches name
//   - a pattern containing "/" is matched against the whole relative path
//   - anything else is matched against the base name
func Ignore(patterns []string) (Predicate, error) {
	for _, p := range patterns {
		if _, err := path.Match(strings.TrimSuffix(p, "/"), ""); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
	}
	if len(patterns) == 0 {
		return All, nil
	}

	patterns = append([]string(nil), patterns...)
	return func(relPath string) bool {
		return !matchAny(relPath, patterns)
	}, nil
}

func matchAny(relPath string, patterns []string) bool {
	parts := strings.Split(relPath, "/")
	dirs := parts[:len(parts)-1]
	base := parts[len(parts)-1]

	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			for _, dir := range dirs {
				if matched, _ := path.Match(dirPattern, dir); matched {
					return true
				}
			}
			continue
		}

		if strings.Contains(pattern, "/") {
			if matched, _ := path.Match(pattern, relPath); matched {
				return true
			}
			continue
		}

		if matched, _ := path.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Regex returns a predicate that admits only files whose relative path
// matches expr. The match is unanchored; use ^ and $ to anchor it. An empty
// expression admits everything.
func Regex(expr string) (Predicate, error) {
	if expr == "" {
		return All, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", expr, err)
	}
	return re.MatchString, nil
}

// ReadPatterns parses an ignore list: one pattern per line, blank lines and
// lines starting with # are skipped.
func ReadPatterns(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore patterns: %w", err)
	}
	return patterns, nil
}

// LoadPatterns reads an ignore file from disk.
func LoadPatterns(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer f.Close()

	return ReadPatterns(f)
}

// Rules is the declarative form of a predicate, as it comes from flags and
// the config file.
type Rules struct {
	Ignore     []string
	IgnoreFile string
	Regex      string
}

// Build compiles the rules into a single predicate: a file is admitted when
// it matches Regex (if set) and no ignore pattern.
func (r Rules) Build() (Predicate, error) {
	patterns := append([]string(nil), r.Ignore...)
	if r.IgnoreFile != "" {
		fromFile, err := LoadPatterns(r.IgnoreFile)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, fromFile...)
	}

	ignore, err := Ignore(patterns)
	if err != nil {
		return nil, err
	}
	include, err := Regex(r.Regex)
	if err != nil {
		return nil, err
	}
	return And(include, ignore), nil
}
