package hash

import (
	"errors"
	"io"

	"github.com/cespare/xxhash/v2"
)

// QuickBlockSize is how much of a file QuickHash reads.
const QuickBlockSize = 4096

// QuickHash returns the xxHash of the first QuickBlockSize bytes of a file.
// It is not collision resistant and only narrows down candidates before
// full fingerprinting.
func (f *Fingerprinter) QuickHash(path string) (uint64, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return 0, &IOError{Path: path, Op: "open", Err: err}
	}
	defer file.Close()

	buf := make([]byte, QuickBlockSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, &IOError{Path: path, Op: "read", Err: err}
	}

	return xxhash.Sum64(buf[:n]), nil
}
