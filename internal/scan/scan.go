// Package scan runs a duplicate scan: it enumerates the files below a root,
// fingerprints them on a bounded worker pool and groups them by
// fingerprint.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/bjtn1/doopie/internal/filter"
	"github.com/bjtn1/doopie/internal/group"
	"github.com/bjtn1/doopie/internal/hash"
	"github.com/bjtn1/doopie/internal/walker"
)

// Tracker receives fingerprinting progress.
type Tracker interface {
	SetTotal(total int64)
	Increment(path string, failed bool)
	Finish()
}

type Options struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Admit decides which files take part. Nil admits every file.
	Admit filter.Predicate

	Algorithm  hash.Algorithm
	BufferSize int
	// Workers is the number of files fingerprinted in parallel. Defaults to
	// twice the number of CPUs.
	Workers int

	// Strict aborts the scan on the first file that cannot be read instead
	// of skipping it.
	Strict bool
	// Quick skips files whose size is unique, then files whose first block
	// differs from every other candidate, before computing full
	// fingerprints. Unreadable files that are skipped this way are not
	// reported.
	Quick bool

	Progress Tracker
	Logger   *logrus.Entry
}

type Scanner struct {
	opts Options
	fp   *hash.Fingerprinter
	log  *logrus.Entry
}

func New(opts Options) (*Scanner, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Admit == nil {
		opts.Admit = filter.All
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU() * 2
	}

	fp, err := hash.New(opts.Fs, opts.Algorithm, opts.BufferSize)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = logrus.NewEntry(l)
	}

	return &Scanner{
		opts: opts,
		fp:   fp,
		log:  log.WithField("component", "scan"),
	}, nil
}

type candidate struct {
	seq  uint64
	file walker.FileInfo
}

type fileError struct {
	seq uint64
	err error
}

// run holds the state of one Run call.
type run struct {
	mu     sync.Mutex
	errors []fileError

	// skipped candidates, counted separately from walk errors
	skippedFiles int
	skippedBytes int64
}

func (r *run) fail(seq uint64, err error) {
	r.mu.Lock()
	r.errors = append(r.errors, fileError{seq: seq, err: err})
	r.mu.Unlock()
}

func (r *run) skip(c candidate, err error) {
	r.mu.Lock()
	r.errors = append(r.errors, fileError{seq: c.seq, err: err})
	r.skippedFiles++
	r.skippedBytes += c.file.Size
	r.mu.Unlock()
}

// Run scans root. Per-file read failures are skipped and listed in the
// result unless Strict is set. If ctx is cancelled, Run returns the groups
// found so far with Partial set, together with an error wrapping
// ctx.Err().
func (s *Scanner) Run(ctx context.Context, root string) (*group.Result, error) {
	if err := walker.CheckRoot(s.opts.Fs, root); err != nil {
		return nil, err
	}

	log := s.log.WithField("root", root)
	state := &run{}

	var candidates []candidate
	var seq uint64
	walkResult, err := walker.Walk(ctx, s.opts.Fs, root, s.opts.Admit, func(fi walker.FileInfo) error {
		seq++
		candidates = append(candidates, candidate{seq: seq, file: fi})
		return nil
	}, s.log)
	if walkResult != nil {
		for _, walkErr := range walkResult.Errors {
			state.fail(0, walkErr)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return s.partial(group.New(), state), err
		}
		return nil, err
	}

	var enumeratedBytes int64
	for _, c := range candidates {
		enumeratedBytes += c.file.Size
	}
	enumerated := len(candidates)
	log.WithField("files", enumerated).Debug("enumerated files")

	if s.opts.Quick {
		candidates, err = s.narrow(ctx, candidates, state)
		if err != nil {
			if ctx.Err() != nil {
				return s.partial(group.New(), state), fmt.Errorf("scan interrupted: %w", ctx.Err())
			}
			return nil, err
		}
		log.WithField("candidates", len(candidates)).Debug("narrowed candidates")
	}

	grouper := group.New()

	if s.opts.Progress != nil {
		s.opts.Progress.SetTotal(int64(len(candidates)))
		defer s.opts.Progress.Finish()
	}

	err = s.forEach(ctx, candidates, state, true, func(c candidate) error {
		fp, err := s.fp.File(c.file.Path)
		if err != nil {
			return err
		}
		grouper.Add(group.Entry{
			Seq:         c.seq,
			Path:        c.file.Path,
			Size:        c.file.Size,
			Fingerprint: fp,
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return s.partial(grouper, state), fmt.Errorf("scan interrupted: %w", ctx.Err())
		}
		return nil, err
	}

	result := s.finish(grouper, state)
	// Files ruled out by narrowing are still part of the scan.
	result.Scanned = enumerated - state.skippedFiles
	result.ScannedBytes = enumeratedBytes - state.skippedBytes
	log.WithFields(logrus.Fields{
		"files":   result.Scanned,
		"hashed":  result.Files,
		"groups":  len(result.Groups),
		"skipped": len(result.Errors),
	}).Debug("scan complete")
	return result, nil
}

// forEach applies fn to every candidate on the worker pool. A failing
// candidate is recorded and skipped, or aborts the pool in strict mode.
// Dispatch stops as soon as ctx is done. track reports each candidate to
// the progress tracker.
func (s *Scanner) forEach(ctx context.Context, candidates []candidate, state *run, track bool, fn func(candidate) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		c := c
		g.Go(func() error {
			err := fn(c)
			if track && s.opts.Progress != nil {
				s.opts.Progress.Increment(c.file.Path, err != nil)
			}
			if err == nil {
				return nil
			}
			if s.opts.Strict {
				return err
			}
			s.log.WithField("path", c.file.Path).WithError(err).Warn("skipping file")
			state.skip(c, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// narrow drops candidates that cannot have a duplicate: first by size,
// then by a hash of the first block.
func (s *Scanner) narrow(ctx context.Context, candidates []candidate, state *run) ([]candidate, error) {
	bySize := make(map[int64][]candidate)
	for _, c := range candidates {
		bySize[c.file.Size] = append(bySize[c.file.Size], c)
	}

	var sameSize []candidate
	for _, c := range candidates {
		if len(bySize[c.file.Size]) > 1 {
			sameSize = append(sameSize, c)
		}
	}

	type key struct {
		size  int64
		quick uint64
	}
	var mu sync.Mutex
	quick := make(map[uint64]uint64, len(sameSize)) // seq -> quick hash
	err := s.forEach(ctx, sameSize, state, false, func(c candidate) error {
		h, err := s.fp.QuickHash(c.file.Path)
		if err != nil {
			return err
		}
		mu.Lock()
		quick[c.seq] = h
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	byKey := make(map[key]int)
	for _, c := range sameSize {
		if h, ok := quick[c.seq]; ok {
			byKey[key{c.file.Size, h}]++
		}
	}

	narrowed := make([]candidate, 0, len(sameSize))
	for _, c := range sameSize {
		h, ok := quick[c.seq]
		if ok && byKey[key{c.file.Size, h}] > 1 {
			narrowed = append(narrowed, c)
		}
	}
	return narrowed, nil
}

func (s *Scanner) finish(grouper *group.Grouper, state *run) *group.Result {
	result := grouper.Result()

	state.mu.Lock()
	defer state.mu.Unlock()

	sort.SliceStable(state.errors, func(i, j int) bool { return state.errors[i].seq < state.errors[j].seq })
	for _, fe := range state.errors {
		result.Errors = append(result.Errors, fe.err)
	}
	return result
}

func (s *Scanner) partial(grouper *group.Grouper, state *run) *group.Result {
	result := s.finish(grouper, state)
	result.Partial = true
	s.log.WithField("files", result.Files).Warn("scan interrupted, result is partial")
	return result
}

// IsFileError reports whether err is a per-file failure that a non-strict
// scan would have skipped.
func IsFileError(err error) bool {
	var ioErr *hash.IOError
	var entryErr *walker.EntryError
	return errors.As(err, &ioErr) || errors.As(err, &entryErr)
}
