package settings

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultImageSize matches a 1 KiB EEPROM.
const DefaultImageSize = 1024

// FileMedium is an EEPROM image file. Bytes never written read as Erased.
type FileMedium struct {
	f    *os.File
	path string
}

// OpenFile opens or creates an image of at least size bytes.
func OpenFile(path string, size int64) (*FileMedium, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat settings image: %w", err)
	}
	if pad := size - info.Size(); pad > 0 {
		if _, err := f.WriteAt(bytes.Repeat([]byte{Erased}, int(pad)), info.Size()); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to initialize settings image: %w", err)
		}
	}

	return &FileMedium{f: f, path: path}, nil
}

func (m *FileMedium) ReadAt(p []byte, off int64) (int, error) { return m.f.ReadAt(p, off) }
func (m *FileMedium) WriteAt(p []byte, off int64) (int, error) { return m.f.WriteAt(p, off) }
func (m *FileMedium) Sync() error                               { return m.f.Sync() }
func (m *FileMedium) Close() error                              { return m.f.Close() }
func (m *FileMedium) Path() string                              { return m.path }

// MemoryMedium is an in-memory image for the simulator and tests.
type MemoryMedium struct {
	mu   sync.Mutex
	data []byte

	// Writes counts WriteAt calls.
	Writes int
}

// NewMemoryMedium returns an erased image of size bytes.
func NewMemoryMedium(size int) *MemoryMedium {
	if size <= 0 {
		size = DefaultImageSize
	}
	return &MemoryMedium{data: bytes.Repeat([]byte{Erased}, size)}
}

func (m *MemoryMedium) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryMedium) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if off < 0 || off >= int64(len(m.data)) {
		return 0, fmt.Errorf("offset %d outside %d byte image: %w", off, len(m.data), ErrShortRecord)
	}
	n := copy(m.data[off:], p)
	if n < len(p) {
		return n, ErrShortRecord
	}
	return n, nil
}

// Bytes returns a copy of the image.
func (m *MemoryMedium) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
