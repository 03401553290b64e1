package vcsinfo

import "errors"

var (
	// ErrMarkerNotFound indicates a marker sequence was missing from the image.
	ErrMarkerNotFound = errors.New("vcsinfo: marker not found")
	// ErrMarkerAmbiguous indicates a marker sequence occurred more than once.
	ErrMarkerAmbiguous = errors.New("vcsinfo: marker found more than once")
	// ErrRecordTooShort indicates the marker-bounded span cannot hold all fields.
	ErrRecordTooShort = errors.New("vcsinfo: record too short for layout")
	// ErrFieldTooLong indicates a text value exceeded its declared field width.
	ErrFieldTooLong = errors.New("vcsinfo: value too long for field")
	// ErrAlreadyPatched indicates the checksum field is already filled out.
	ErrAlreadyPatched = errors.New("vcsinfo: record already filled out")
	// ErrBadLayout indicates an invalid record layout descriptor.
	ErrBadLayout = errors.New("vcsinfo: invalid layout")
)
