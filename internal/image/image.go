// Package image loads firmware images for patching. A raw binary is its own
// image; an ELF file is flattened into the byte sequence a flash programmer
// would produce, while keeping the mapping needed to push patched record
// bytes back into the underlying file.
package image

import (
	"bytes"
	"fmt"
)

// Kind identifies the source file format.
type Kind int

const (
	// Raw means the file bytes are the image bytes.
	Raw Kind = iota
	// ELF means the image was flattened from the loadable sections of an
	// ELF object.
	ELF
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case ELF:
		return "elf"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// IsELF reports whether data starts with the ELF magic.
func IsELF(data []byte) bool {
	return len(data) >= len(elfMagic) && bytes.Equal(data[:len(elfMagic)], elfMagic)
}

// Section is one loadable chunk of an ELF image. Data aliases the file
// buffer, so writes through it land in the bytes that get saved.
type Section struct {
	Name string
	LMA  uint64
	Data []byte
}

// Image is a firmware image prepared for patching. Bytes() is the buffer the
// checksum is computed over; File() is the buffer that gets written to disk.
// For raw images the two are the same slice.
type Image struct {
	kind     Kind
	file     []byte
	flat     []byte
	base     uint64
	sections []Section
}

// LoadRaw wraps a flat binary file. The image buffer is the file buffer.
func LoadRaw(file []byte) *Image {
	return &Image{kind: Raw, file: file, flat: file}
}

// Kind returns the source file format.
func (im *Image) Kind() Kind { return im.kind }

// Bytes returns the image buffer the CRC32 scan runs over.
func (im *Image) Bytes() []byte { return im.flat }

// File returns the file contents to persist after patching.
func (im *Image) File() []byte { return im.file }

// Start returns the load address of the first image byte. Zero for raw
// images.
func (im *Image) Start() uint64 { return im.base }

// Size returns the image length in bytes, gaps included.
func (im *Image) Size() int { return len(im.flat) }

// Sections returns the loadable sections of an ELF image, ordered by load
// address. Nil for raw images.
func (im *Image) Sections() []Section { return im.sections }

// Commit copies the patched image bytes [off, off+n) back into the file
// buffer. For raw images the buffers alias and this is a no-op. For ELF
// images every byte of the range must fall inside a section: a record that
// straddles an inter-section gap has no home in the file.
func (im *Image) Commit(off, n int) error {
	if off < 0 || n < 0 || off+n > len(im.flat) {
		return fmt.Errorf("image: commit range %d+%d exceeds image (%d bytes)", off, n, len(im.flat))
	}
	if im.kind == Raw {
		return nil
	}

	covered := 0
	for _, s := range im.sections {
		sOff := int(s.LMA - im.base)
		lo, hi := max(off, sOff), min(off+n, sOff+len(s.Data))
		if lo >= hi {
			continue
		}
		copy(s.Data[lo-sOff:hi-sOff], im.flat[lo:hi])
		covered += hi - lo
	}
	if covered != n {
		return fmt.Errorf("image: record at offset %d spans a gap between sections (%d of %d bytes mapped)",
			off, covered, n)
	}
	return nil
}
