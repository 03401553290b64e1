// Package patch applies version info and a forged CRC32 to a loaded firmware
// image. The sequence is fixed: locate the record, write the metadata fields
// with a zeroed checksum field, forge the checksum, verify the result, then
// commit the record bytes back to the file buffer. Each step depends on the
// previous one's completed mutation, so nothing here runs concurrently.
package patch

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/thomask77/add-version-info/internal/buildmeta"
	"github.com/thomask77/add-version-info/internal/crc32forge"
	"github.com/thomask77/add-version-info/internal/image"
	"github.com/thomask77/add-version-info/internal/vcsinfo"
)

// Options controls a single patch run.
type Options struct {
	// Layout describes the record shape. Zero value means DefaultLayout.
	Layout vcsinfo.Layout
	// Target is the CRC32 the whole image must hash to after patching.
	// The conventional value 0x00000000 lets the bootloader check the
	// image with a plain full-scan compare.
	Target uint32
	// Force overwrites a record whose checksum field is already filled.
	Force bool
}

// Report summarizes what was written, for logs and machine-readable output.
type Report struct {
	RecordOffset int    `json:"record_offset"`
	RecordSize   int    `json:"record_size"`
	ImageStart   uint32 `json:"image_start"`
	ImageSize    uint32 `json:"image_size"`
	ImageCRC     uint32 `json:"image_crc"`
	TargetCRC    uint32 `json:"target_crc"`
}

// Apply patches img in place and returns what it wrote. On error the caller
// must treat the image as not patched; no partial result is committed.
func Apply(img *image.Image, meta buildmeta.Info, opts Options) (*Report, error) {
	lay := opts.Layout
	if lay.StartMarker == nil && lay.EndMarker == nil && lay.Fields == nil {
		lay = vcsinfo.DefaultLayout()
	}
	if err := lay.Validate(); err != nil {
		return nil, err
	}
	ck, ok := lay.Checksum()
	if !ok {
		return nil, fmt.Errorf("%w: no checksum field", vcsinfo.ErrBadLayout)
	}

	data := img.Bytes()
	off, err := vcsinfo.Locate(data, lay)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"offset": off.Start,
		"size":   off.Len(),
	}).Debug("version info record found")

	if cur := vcsinfo.ReadU32(data, off, ck); cur != 0 && !opts.Force {
		return nil, fmt.Errorf("%w: image_crc = 0x%08X at offset %d (use force to overwrite)",
			vcsinfo.ErrAlreadyPatched, cur, off.Start+ck.Offset)
	}

	if uint64(img.Size()) > math.MaxUint32 {
		return nil, fmt.Errorf("patch: image size %d does not fit the 32-bit size field", img.Size())
	}
	values := vcsinfo.Values{
		vcsinfo.FieldVCSID:     {Text: meta.VCSID},
		vcsinfo.FieldBuildUser: {Text: meta.User},
		vcsinfo.FieldBuildHost: {Text: meta.Host},
		vcsinfo.FieldBuildDate: {Text: meta.Date},
		vcsinfo.FieldBuildTime: {Text: meta.Time},
		vcsinfo.FieldImageSize: {U32: uint32(img.Size())},
	}
	// Raw images keep whatever start address the firmware compiled in;
	// only an ELF knows where it loads.
	if img.Kind() == image.ELF {
		if img.Start() > math.MaxUint32 {
			return nil, fmt.Errorf("patch: image start 0x%X does not fit the 32-bit start field", img.Start())
		}
		values[vcsinfo.FieldImageStart] = vcsinfo.Value{U32: uint32(img.Start())}
	}

	if err := vcsinfo.WriteFields(data, off, lay, values); err != nil {
		return nil, err
	}

	crc, err := crc32forge.Forge(data, off.Start+ck.Offset, opts.Target)
	if err != nil {
		return nil, err
	}
	if err := crc32forge.Verify(data, opts.Target); err != nil {
		return nil, err
	}
	if err := img.Commit(off.Start, off.Len()); err != nil {
		return nil, err
	}

	rep := &Report{
		RecordOffset: off.Start,
		RecordSize:   off.Len(),
		ImageStart:   uint32(img.Start()),
		ImageSize:    uint32(img.Size()),
		ImageCRC:     crc,
		TargetCRC:    opts.Target,
	}
	log.WithFields(log.Fields{
		"image_crc":  fmt.Sprintf("0x%08X", rep.ImageCRC),
		"image_size": rep.ImageSize,
	}).Debug("checksum forged")
	return rep, nil
}
