// Package crc32forge computes the value for a reserved 4-byte field such
// that the CRC32 of the whole containing buffer equals a chosen target.
//
// CRC32 is linear over GF(2) for a fixed message length: replacing the
// zeroed field with value P changes the final checksum by L(P), where L is a
// 32x32 bit matrix that depends only on how many bytes follow the field.
// Deriving L column by column and solving L*P = target^crc0 with Gaussian
// elimination yields the unique patch value.
package crc32forge

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/thomask77/add-version-info/internal/buf"
)

// ErrUnsolvable indicates the bit matrix was singular. This cannot happen
// with the standard CRC32 polynomial at any tail length; seeing it means the
// layout descriptor is corrupt or a non-standard CRC variant is in play.
var ErrUnsolvable = errors.New("crc32forge: no field value reaches the target checksum")

// MismatchError reports a failed post-forge verification.
type MismatchError struct {
	Want uint32
	Got  uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("crc32forge: checksum mismatch: want 0x%08X, got 0x%08X", e.Want, e.Got)
}

var ieee = crc32.MakeTable(crc32.IEEE)

// Checksum returns the IEEE CRC32 of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, ieee)
}

// Forge computes the little-endian 32-bit value that, written at fieldOff,
// makes Checksum(data) equal target, writes it in place, and returns it.
// The current content of the 4 field bytes is irrelevant and overwritten.
func Forge(data []byte, fieldOff int, target uint32) (uint32, error) {
	if !buf.Has(data, fieldOff, 4) {
		return 0, fmt.Errorf("crc32forge: field at offset %d exceeds buffer (%d bytes)",
			fieldOff, len(data))
	}

	// CRC state up to the field is shared by the baseline and all 32
	// columns; only the field bytes and the tail are rehashed per column.
	prefix := crc32.Update(0, ieee, data[:fieldOff])
	tail := data[fieldOff+4:]

	var zero [4]byte
	crc0 := crc32.Update(crc32.Update(prefix, ieee, zero[:]), ieee, tail)

	var cols [32]uint32
	for i := range cols {
		var field [4]byte
		field[i/8] = 1 << (i % 8)
		cols[i] = crc32.Update(crc32.Update(prefix, ieee, field[:]), ieee, tail) ^ crc0
	}

	p, err := solve(cols, target^crc0)
	if err != nil {
		return 0, fmt.Errorf("%w (field offset %d, target 0x%08X)", err, fieldOff, target)
	}
	buf.PutU32LE(data[fieldOff:], p)
	return p, nil
}

// solve finds p with cols[0]*p0 ^ cols[1]*p1 ^ ... == want over GF(2),
// eliminating from the highest bit down. comb tracks which input bits make
// up each reduced column, so pivots can be folded straight into p.
func solve(cols [32]uint32, want uint32) (uint32, error) {
	var comb [32]uint32
	for i := range comb {
		comb[i] = 1 << i
	}

	var p uint32
	var used [32]bool
	for bit := 31; bit >= 0; bit-- {
		piv := -1
		for j := range cols {
			if !used[j] && cols[j]&(1<<bit) != 0 {
				piv = j
				break
			}
		}
		if piv < 0 {
			if want&(1<<bit) != 0 {
				return 0, ErrUnsolvable
			}
			continue
		}
		used[piv] = true
		for j := range cols {
			if j != piv && cols[j]&(1<<bit) != 0 {
				cols[j] ^= cols[piv]
				comb[j] ^= comb[piv]
			}
		}
		if want&(1<<bit) != 0 {
			want ^= cols[piv]
			p ^= comb[piv]
		}
	}
	if want != 0 {
		return 0, ErrUnsolvable
	}
	return p, nil
}

// Verify recomputes the CRC32 of the patched buffer and fails loudly when it
// missed the target. A correct Forge never trips this; it exists to turn a
// silent logic bug into a visible failure before the image ships.
func Verify(data []byte, target uint32) error {
	if got := Checksum(data); got != target {
		return &MismatchError{Want: target, Got: got}
	}
	return nil
}
