package hash

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	gohash "hash"
	"io"
	"sort"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// DefaultBufferSize is the chunk size used for streaming reads.
const DefaultBufferSize = 4096

// Fingerprint is the lower-case hex digest of a file's content.
type Fingerprint string

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	SHA512  Algorithm = "sha512"
	SHA3512 Algorithm = "sha3-512"
	BLAKE3  Algorithm = "blake3"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = SHA256

var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

var algorithms = map[Algorithm]func() gohash.Hash{
	SHA256:  sha256.New,
	SHA512:  sha512.New,
	SHA3512: sha3.New512,
	BLAKE3:  func() gohash.Hash { return blake3.New() },
}

// Algorithms lists the supported algorithm names in sorted order.
func Algorithms() []Algorithm {
	names := make([]Algorithm, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	newHash, ok := algorithms[a]
	if !ok {
		return 0
	}
	return newHash().Size()
}

func (a Algorithm) newHash() (gohash.Hash, error) {
	newHash, ok := algorithms[a]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
	return newHash(), nil
}

// ParseAlgorithm validates an algorithm name. The empty string selects
// DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return DefaultAlgorithm, nil
	}
	a := Algorithm(name)
	if _, ok := algorithms[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

// IOError reports a file that could not be opened or read.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Fingerprinter computes content fingerprints of files on a filesystem.
// It is safe for concurrent use; every call allocates its own buffer.
type Fingerprinter struct {
	fs         afero.Fs
	algo       Algorithm
	bufferSize int
}

// New returns a Fingerprinter. A nil fs means the OS filesystem and a
// non-positive bufferSize means DefaultBufferSize.
func New(fs afero.Fs, algo Algorithm, bufferSize int) (*Fingerprinter, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if algo == "" {
		algo = DefaultAlgorithm
	}
	if _, err := algo.newHash(); err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Fingerprinter{fs: fs, algo: algo, bufferSize: bufferSize}, nil
}

// Algorithm returns the configured digest algorithm.
func (f *Fingerprinter) Algorithm() Algorithm { return f.algo }

// File streams the file at path through the digest and returns its
// fingerprint. Failures are returned as *IOError.
func (f *Fingerprinter) File(path string) (Fingerprint, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return "", &IOError{Path: path, Op: "open", Err: err}
	}
	defer file.Close()

	fp, err := Sum(file, f.algo, f.bufferSize)
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			ioErr.Path = path
		}
		return "", err
	}
	return fp, nil
}

// Sum reads r to the end in chunks of bufferSize bytes and returns the
// digest of everything read. Memory use is bounded by bufferSize.
func Sum(r io.Reader, algo Algorithm, bufferSize int) (Fingerprint, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	buf := make([]byte, bufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &IOError{Op: "read", Err: err}
		}
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
