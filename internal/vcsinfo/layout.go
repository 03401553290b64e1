// Package vcsinfo locates and fills the fixed-layout version info record that
// firmware images carry between two magic markers. The record shape is
// configuration: a Layout lists each field's record-relative offset, width
// and kind, and must match the struct compiled into the firmware exactly.
package vcsinfo

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Marker values for the version 2 record layout.
const (
	StartMarker = "VCSINFO2_START->"
	EndMarker   = "<---VCSINFO2_END"
)

// Field names used by the default layout.
const (
	FieldImageCRC   = "image_crc"
	FieldImageStart = "image_start"
	FieldImageSize  = "image_size"
	FieldVCSID      = "vcs_id"
	FieldBuildUser  = "build_user"
	FieldBuildHost  = "build_host"
	FieldBuildDate  = "build_date"
	FieldBuildTime  = "build_time"
)

// FieldKind selects the wire encoding of a record field.
type FieldKind int

const (
	// KindU32 is a little-endian 32-bit unsigned integer.
	KindU32 FieldKind = iota
	// KindText is a fixed-width, NUL-padded byte string.
	KindText
	// KindCRC32 is the reserved little-endian checksum field. Exactly one
	// per layout; its value is forged, never supplied by the caller.
	KindCRC32
)

func (k FieldKind) String() string {
	switch k {
	case KindU32:
		return "u32"
	case KindText:
		return "text"
	case KindCRC32:
		return "crc32"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

func parseKind(s string) (FieldKind, error) {
	switch s {
	case "u32":
		return KindU32, nil
	case "text":
		return KindText, nil
	case "crc32":
		return KindCRC32, nil
	default:
		return 0, fmt.Errorf("%w: unknown field kind %q", ErrBadLayout, s)
	}
}

// Field describes one record field. Offset is relative to the record start,
// which is the first byte of the start marker.
type Field struct {
	Name   string
	Offset int
	Size   int
	Kind   FieldKind
}

// Layout describes the on-disk record shape.
type Layout struct {
	StartMarker []byte
	EndMarker   []byte
	Fields      []Field
}

// DefaultLayout returns the layout matching the version_info struct compiled
// into the firmware. The compile-time region (product name and version
// numbers) is deliberately not listed: the patcher must never touch it.
func DefaultLayout() Layout {
	return Layout{
		StartMarker: []byte(StartMarker),
		EndMarker:   []byte(EndMarker),
		Fields: []Field{
			{Name: FieldImageCRC, Offset: 16, Size: 4, Kind: KindCRC32},
			{Name: FieldImageStart, Offset: 20, Size: 4, Kind: KindU32},
			{Name: FieldImageSize, Offset: 24, Size: 4, Kind: KindU32},
			{Name: FieldVCSID, Offset: 28, Size: 32, Kind: KindText},
			{Name: FieldBuildUser, Offset: 60, Size: 16, Kind: KindText},
			{Name: FieldBuildHost, Offset: 76, Size: 16, Kind: KindText},
			{Name: FieldBuildDate, Offset: 92, Size: 16, Kind: KindText},
			{Name: FieldBuildTime, Offset: 108, Size: 16, Kind: KindText},
		},
	}
}

// Checksum returns the layout's checksum field.
func (l Layout) Checksum() (Field, bool) {
	for _, f := range l.Fields {
		if f.Kind == KindCRC32 {
			return f, true
		}
	}
	return Field{}, false
}

// MinRecordSize returns the smallest start-to-end-marker distance that can
// hold every declared field.
func (l Layout) MinRecordSize() int {
	size := len(l.StartMarker)
	for _, f := range l.Fields {
		if end := f.Offset + f.Size; end > size {
			size = end
		}
	}
	return size
}

// Validate checks the structural invariants of the layout: non-empty distinct
// markers, exactly one 4-byte checksum field, and fields that sit between the
// markers without overlapping them or each other.
func (l Layout) Validate() error {
	if len(l.StartMarker) == 0 || len(l.EndMarker) == 0 {
		return fmt.Errorf("%w: empty marker", ErrBadLayout)
	}
	if string(l.StartMarker) == string(l.EndMarker) {
		return fmt.Errorf("%w: start and end markers are identical", ErrBadLayout)
	}

	checksums := 0
	for i, f := range l.Fields {
		if f.Size <= 0 {
			return fmt.Errorf("%w: field %q has size %d", ErrBadLayout, f.Name, f.Size)
		}
		if f.Offset < len(l.StartMarker) {
			return fmt.Errorf("%w: field %q overlaps the start marker (offset %d)",
				ErrBadLayout, f.Name, f.Offset)
		}
		switch f.Kind {
		case KindU32:
			if f.Size != 4 {
				return fmt.Errorf("%w: u32 field %q has size %d, want 4", ErrBadLayout, f.Name, f.Size)
			}
		case KindCRC32:
			if f.Size != 4 {
				return fmt.Errorf("%w: crc32 field %q has size %d, want 4", ErrBadLayout, f.Name, f.Size)
			}
			checksums++
		case KindText:
		default:
			return fmt.Errorf("%w: field %q has unknown kind %d", ErrBadLayout, f.Name, int(f.Kind))
		}
		for _, g := range l.Fields[i+1:] {
			if f.Offset < g.Offset+g.Size && g.Offset < f.Offset+f.Size {
				return fmt.Errorf("%w: fields %q and %q overlap", ErrBadLayout, f.Name, g.Name)
			}
		}
	}
	if checksums != 1 {
		return fmt.Errorf("%w: %d checksum fields, want exactly 1", ErrBadLayout, checksums)
	}
	return nil
}

// layoutFile is the YAML form of a Layout. Markers are plain strings so a
// layout file can spell them the same way the firmware source does.
type layoutFile struct {
	StartMarker string `yaml:"start_marker"`
	EndMarker   string `yaml:"end_marker"`
	Fields      []struct {
		Name   string `yaml:"name"`
		Offset int    `yaml:"offset"`
		Size   int    `yaml:"size"`
		Kind   string `yaml:"kind"`
	} `yaml:"fields"`
}

// LoadLayout reads and validates a layout descriptor from a YAML file.
func LoadLayout(path string) (Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("load layout: %w", err)
	}
	var lf layoutFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return Layout{}, fmt.Errorf("load layout %s: %w", path, err)
	}

	l := Layout{
		StartMarker: []byte(lf.StartMarker),
		EndMarker:   []byte(lf.EndMarker),
	}
	for _, f := range lf.Fields {
		kind, err := parseKind(f.Kind)
		if err != nil {
			return Layout{}, fmt.Errorf("load layout %s: field %q: %w", path, f.Name, err)
		}
		l.Fields = append(l.Fields, Field{Name: f.Name, Offset: f.Offset, Size: f.Size, Kind: kind})
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("load layout %s: %w", path, err)
	}
	return l, nil
}
