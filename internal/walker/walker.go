package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/bjtn1/doopie/internal/filter"
)

// ErrInvalidRoot is returned when the scan root is missing or is not a
// directory.
var ErrInvalidRoot = errors.New("invalid root")

type FileInfo struct {
	Path    string
	RelPath string // slash separated, relative to the root
	Size    int64
	ModTime time.Time
}

// EntryError records an entry that was skipped because it could not be
// inspected.
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("skipped %s: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

type WalkResult struct {
	Files  []FileInfo // only filled by Collect
	Errors []error
}

// CheckRoot verifies that root exists and is a directory. The root is
// inspected without following symbolic links, the same way Walk reads it,
// so a link to a directory is rejected.
func CheckRoot(fs afero.Fs, root string) error {
	var info os.FileInfo
	var err error
	if lst, ok := fs.(afero.Lstater); ok {
		info, _, err = lst.LstatIfPossible(root)
	} else {
		info, err = fs.Stat(root)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%w: %s is a symbolic link", ErrInvalidRoot, root)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	return nil
}

// Walk visits every regular file below root that admit accepts. Symbolic
// links and other non-regular entries are not followed or reported.
// Entries that cannot be inspected are recorded in the result and skipped.
// An error returned by visit stops the walk and is returned as is.
func Walk(ctx context.Context, fs afero.Fs, root string, admit filter.Predicate, visit func(FileInfo) error, log *logrus.Entry) (*WalkResult, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if admit == nil {
		admit = filter.All
	}
	if log == nil {
		log = discardLogger()
	}
	if err := CheckRoot(fs, root); err != nil {
		return nil, err
	}

	result := &WalkResult{
		Errors: make([]error, 0),
	}

	var visitErr error
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return err
			}
			log.WithField("path", path).WithError(err).Debug("skipping unreadable entry")
			result.Errors = append(result.Errors, &EntryError{Path: path, Err: err})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			result.Errors = append(result.Errors, &EntryError{Path: path, Err: err})
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if !admit(relPath) {
			return nil
		}

		if err := visit(FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}); err != nil {
			visitErr = err
			return err
		}
		return nil
	})

	if visitErr != nil {
		return result, visitErr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, fmt.Errorf("walk interrupted: %w", err)
		}
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return result, nil
}

// Collect walks root and returns every admitted file.
func Collect(ctx context.Context, fs afero.Fs, root string, admit filter.Predicate) (*WalkResult, error) {
	var files []FileInfo
	result, err := Walk(ctx, fs, root, admit, func(fi FileInfo) error {
		files = append(files, fi)
		return nil
	}, nil)
	if result != nil {
		result.Files = files
		if result.Files == nil {
			result.Files = make([]FileInfo, 0)
		}
	}
	return result, err
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}
