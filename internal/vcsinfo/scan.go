package vcsinfo

import (
	"bytes"
	"fmt"
)

// RecordOffsets is the resolved location of the record inside an image
// buffer. Start is the absolute offset of the first start-marker byte; End is
// the absolute offset one past the last end-marker byte. All field writes use
// Start as their base.
type RecordOffsets struct {
	Start int
	End   int
}

// Len returns the total record length including both markers.
func (r RecordOffsets) Len() int { return r.End - r.Start }

// Locate finds the record bounded by the layout's markers inside data.
//
// A firmware image that happens to contain a marker sequence in unrelated
// data cannot be patched safely, so any marker that occurs more than once
// fails with ErrMarkerAmbiguous instead of silently picking an occurrence.
func Locate(data []byte, l Layout) (RecordOffsets, error) {
	if n := bytes.Count(data, l.StartMarker); n == 0 {
		return RecordOffsets{}, fmt.Errorf("%w: start marker %q", ErrMarkerNotFound, l.StartMarker)
	} else if n > 1 {
		return RecordOffsets{}, fmt.Errorf("%w: start marker %q occurs %d times",
			ErrMarkerAmbiguous, l.StartMarker, n)
	}
	if n := bytes.Count(data, l.EndMarker); n == 0 {
		return RecordOffsets{}, fmt.Errorf("%w: end marker %q", ErrMarkerNotFound, l.EndMarker)
	} else if n > 1 {
		return RecordOffsets{}, fmt.Errorf("%w: end marker %q occurs %d times",
			ErrMarkerAmbiguous, l.EndMarker, n)
	}

	start := bytes.Index(data, l.StartMarker)
	end := bytes.Index(data, l.EndMarker)
	if end < start+len(l.StartMarker) {
		return RecordOffsets{}, fmt.Errorf("%w: end marker at offset %d precedes start marker at %d",
			ErrMarkerNotFound, end, start)
	}

	off := RecordOffsets{Start: start, End: end + len(l.EndMarker)}
	if need := l.MinRecordSize(); end-start < need {
		return RecordOffsets{}, fmt.Errorf("%w: %d bytes between markers at offset %d, layout needs %d",
			ErrRecordTooShort, end-start, start, need)
	}
	return off, nil
}
