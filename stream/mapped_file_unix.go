//go:build unix

package stream

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// mmapSource maps a sliding, page-aligned view of a file.
type mmapSource struct {
	f         *os.File
	size      int64
	viewSize  int64
	data      []byte
	dataStart int64
}

func (s *mmapSource) view(pos int64, n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if s.data != nil && pos >= s.dataStart && pos+int64(n) <= s.dataStart+int64(len(s.data)) {
		off := pos - s.dataStart
		return s.data[off : off+int64(n)], nil
	}
	if err := s.remap(pos, n); err != nil {
		return nil, err
	}
	off := pos - s.dataStart

	return s.data[off : off+int64(n)], nil
}

func (s *mmapSource) remap(pos int64, n int) error {
	if err := s.unmap(); err != nil {
		return err
	}

	page := int64(os.Getpagesize())
	start := pos / page * page
	length := s.viewSize
	if need := pos - start + int64(n); need > length {
		length = need
	}
	if start+length > s.size {
		length = s.size - start
	}

	data, err := unix.Mmap(int(s.f.Fd()), start, int(length), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrapf(err, "mmap %d bytes at %d", length, start)
	}
	s.data = data
	s.dataStart = start

	return nil
}

func (s *mmapSource) unmap() error {
	if s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(err, "munmap")
	}

	return nil
}

func (s *mmapSource) length() int64 { return s.size }

func (s *mmapSource) close() error {
	unmapErr := s.unmap()
	closeErr := s.f.Close()

	return errors.CombineErrors(unmapErr, closeErr)
}

// MappedFileReader reads a file through a sliding memory-mapped view.
// A read that does not fit the current view remaps the file around it.
type MappedFileReader struct {
	primitiveReader
	src mmapSource
}

var _ Reader = (*MappedFileReader)(nil)

// OpenMappedFile opens path for memory-mapped reading.
// WithLabelWidth applies; WithWindowSize sets the view size, rounded up to whole pages.
func OpenMappedFile(path string, opts ...Option) (Reader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	page := os.Getpagesize()
	viewSize := (cfg.windowSize + page - 1) / page * page

	r := &MappedFileReader{src: mmapSource{f: f, size: st.Size(), viewSize: int64(viewSize)}}
	r.init(&r.src, cfg.labelWidth)

	return r, nil
}
