//go:build !unix

package stream

// OpenMappedFile opens path for reading. Platforms without mmap support use a CachedReader.
func OpenMappedFile(path string, opts ...Option) (Reader, error) {
	r, err := OpenCachedFile(path, opts...)
	if err != nil {
		return nil, err
	}

	return r, nil
}
