package vcsinfo

import (
	"fmt"

	"github.com/thomask77/add-version-info/internal/buf"
)

// Value is the datum for one record field. Text is used for KindText fields,
// U32 for KindU32 fields.
type Value struct {
	Text string
	U32  uint32
}

// Values maps field names to the data to write. Fields without an entry keep
// whatever bytes the firmware compiled in; the checksum field is always
// zeroed regardless.
type Values map[string]Value

// WriteFields encodes values into the record at off and zeroes the checksum
// field, establishing the baseline the forging step computes against.
//
// Text values longer than their field fail with ErrFieldTooLong: a silently
// truncated version string is worse than a failed build.
func WriteFields(data []byte, off RecordOffsets, l Layout, values Values) error {
	for _, f := range l.Fields {
		dst, ok := buf.Slice(data, off.Start+f.Offset, f.Size)
		if !ok {
			return fmt.Errorf("vcsinfo: field %q at offset %d+%d exceeds buffer (%d bytes)",
				f.Name, off.Start, f.Offset, len(data))
		}

		if f.Kind == KindCRC32 {
			for i := range dst {
				dst[i] = 0
			}
			continue
		}

		v, ok := values[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case KindU32:
			buf.PutU32LE(dst, v.U32)
		case KindText:
			if len(v.Text) > f.Size {
				return fmt.Errorf("%w: field %q holds %d bytes, value %q needs %d",
					ErrFieldTooLong, f.Name, f.Size, v.Text, len(v.Text))
			}
			n := copy(dst, v.Text)
			for i := n; i < len(dst); i++ {
				dst[i] = 0
			}
		}
	}
	return nil
}

// ReadU32 returns the current value of a u32 or crc32 field.
func ReadU32(data []byte, off RecordOffsets, f Field) uint32 {
	b, ok := buf.Slice(data, off.Start+f.Offset, 4)
	if !ok {
		return 0
	}
	return buf.U32LE(b)
}
