package vcsinfo

import (
	"errors"
	"testing"
)

// record returns a buffer of n bytes carrying a full default-layout record at
// the given offset.
func record(n, off int) []byte {
	buf := make([]byte, n)
	copy(buf[off:], StartMarker)
	copy(buf[off+168:], EndMarker)
	return buf
}

func TestLocate(t *testing.T) {
	buf := record(512, 100)

	off, err := Locate(buf, DefaultLayout())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if off.Start != 100 || off.End != 100+184 {
		t.Fatalf("unexpected offsets: %+v", off)
	}
	if off.Len() != 184 {
		t.Fatalf("record length = %d, want 184", off.Len())
	}
}

func TestLocateNotFound(t *testing.T) {
	_, err := Locate(make([]byte, 256), DefaultLayout())
	if !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}

	// Start marker present, end marker missing.
	buf := make([]byte, 256)
	copy(buf[10:], StartMarker)
	if _, err := Locate(buf, DefaultLayout()); !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}
}

func TestLocateEndBeforeStart(t *testing.T) {
	buf := make([]byte, 256)
	copy(buf[0:], EndMarker)
	copy(buf[100:], StartMarker)

	if _, err := Locate(buf, DefaultLayout()); !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}
}

func TestLocateAmbiguousStart(t *testing.T) {
	// An image that accidentally contains the marker bytes twice must never
	// be patched by picking the first occurrence.
	buf := record(512, 100)
	copy(buf[400:], StartMarker)

	_, err := Locate(buf, DefaultLayout())
	if !errors.Is(err, ErrMarkerAmbiguous) {
		t.Fatalf("expected ErrMarkerAmbiguous, got %v", err)
	}
}

func TestLocateAmbiguousEnd(t *testing.T) {
	buf := record(512, 100)
	copy(buf[400:], EndMarker)

	_, err := Locate(buf, DefaultLayout())
	if !errors.Is(err, ErrMarkerAmbiguous) {
		t.Fatalf("expected ErrMarkerAmbiguous, got %v", err)
	}
}

func TestLocateRecordTooShort(t *testing.T) {
	buf := make([]byte, 256)
	copy(buf[8:], StartMarker)
	copy(buf[64:], EndMarker) // 56 bytes between markers, layout needs 124

	_, err := Locate(buf, DefaultLayout())
	if !errors.Is(err, ErrRecordTooShort) {
		t.Fatalf("expected ErrRecordTooShort, got %v", err)
	}
}
