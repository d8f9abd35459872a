// Package group partitions fingerprinted files into duplicate groups.
package group

import (
	"sort"
	"sync"

	"github.com/bjtn1/doopie/internal/hash"
)

// Entry is one fingerprinted file. Seq is the file's position in the
// enumeration order and defines "first seen" within a group.
type Entry struct {
	Seq         uint64
	Path        string
	Size        int64
	Fingerprint hash.Fingerprint
}

// DuplicateGroup is a set of two or more files with the same fingerprint.
type DuplicateGroup struct {
	Fingerprint hash.Fingerprint `json:"fingerprint"`
	Size        int64            `json:"size"`
	Paths       []string         `json:"paths"`
}

// Wasted returns the number of bytes held by all copies but one.
func (g DuplicateGroup) Wasted() int64 {
	return g.Size * int64(len(g.Paths)-1)
}

// Result is the outcome of a scan.
type Result struct {
	// Groups holds only fingerprints shared by at least two files, ordered
	// by the position of their first member.
	Groups []DuplicateGroup
	// Files is the number of files that were fingerprinted.
	Files int
	// Bytes is the total size of the fingerprinted files.
	Bytes int64
	// Scanned is the number of admitted files that were not skipped,
	// whether or not they had to be fingerprinted. It equals Files unless
	// candidates were ruled out before fingerprinting.
	Scanned int
	// ScannedBytes is the total size of the Scanned files.
	ScannedBytes int64
	// Errors lists files that were skipped.
	Errors []error
	// Partial is set when the scan stopped before every file was seen.
	Partial bool

	index map[hash.Fingerprint]int
}

// Lookup returns the paths sharing fp, or nil when fp is not a duplicate.
func (r *Result) Lookup(fp hash.Fingerprint) []string {
	if i, ok := r.index[fp]; ok {
		return r.Groups[i].Paths
	}
	return nil
}

// Map returns the fingerprint to paths mapping of the duplicate groups.
func (r *Result) Map() map[hash.Fingerprint][]string {
	m := make(map[hash.Fingerprint][]string, len(r.Groups))
	for _, g := range r.Groups {
		m[g.Fingerprint] = g.Paths
	}
	return m
}

// DuplicateFiles counts the files that belong to some group.
func (r *Result) DuplicateFiles() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Paths)
	}
	return n
}

// DuplicateBytes is the total size of the files that belong to some group.
func (r *Result) DuplicateBytes() int64 {
	var n int64
	for _, g := range r.Groups {
		n += g.Size * int64(len(g.Paths))
	}
	return n
}

// Wasted is the number of bytes that could be reclaimed by keeping a single
// copy of every group.
func (r *Result) Wasted() int64 {
	var n int64
	for _, g := range r.Groups {
		n += g.Wasted()
	}
	return n
}

// Clean reports whether the scan completed without skipping anything.
func (r *Result) Clean() bool {
	return !r.Partial && len(r.Errors) == 0
}

// Grouper aggregates entries by fingerprint. It is safe for concurrent use.
type Grouper struct {
	mu      sync.Mutex
	buckets map[hash.Fingerprint][]Entry
	files   int
	bytes   int64
}

func New() *Grouper {
	return &Grouper{
		buckets: make(map[hash.Fingerprint][]Entry),
	}
}

// Add records a fingerprinted file.
func (g *Grouper) Add(e Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.buckets[e.Fingerprint] = append(g.buckets[e.Fingerprint], e)
	g.files++
	g.bytes += e.Size
}

// Result builds the duplicate groups seen so far. Paths inside a group and
// the groups themselves are ordered by Seq, so the outcome does not depend
// on the order Add was called in.
func (g *Grouper) Result() *Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := &Result{
		Groups: make([]DuplicateGroup, 0),
		Files:        g.files,
		Bytes:        g.bytes,
		Scanned:      g.files,
		ScannedBytes: g.bytes,
		Errors:       make([]error, 0),
		index:        make(map[hash.Fingerprint]int),
	}

	type ordered struct {
		first uint64
		group DuplicateGroup
	}
	var dups []ordered

	for fp, entries := range g.buckets {
		if len(entries) < 2 {
			continue
		}

		sorted := append([]Entry(nil), entries...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

		paths := make([]string, len(sorted))
		for i, e := range sorted {
			paths[i] = e.Path
		}
		dups = append(dups, ordered{
			first: sorted[0].Seq,
			group: DuplicateGroup{Fingerprint: fp, Size: sorted[0].Size, Paths: paths},
		})
	}

	sort.Slice(dups, func(i, j int) bool {
		if dups[i].first != dups[j].first {
			return dups[i].first < dups[j].first
		}
		return dups[i].group.Fingerprint < dups[j].group.Fingerprint
	})

	for i, d := range dups {
		result.Groups = append(result.Groups, d.group)
		result.index[d.group.Fingerprint] = i
	}

	return result
}

// Group is the single-threaded form: entries without a Seq keep their
// slice order.
func Group(entries []Entry) *Result {
	g := New()
	for i, e := range entries {
		if e.Seq == 0 {
			e.Seq = uint64(i) + 1
		}
		g.Add(e)
	}
	return g.Result()
}
