package crc32forge

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture returns a 256-byte image with the start marker at offset 8, the
// end marker at offset 64, and the checksum field at record-relative offset
// 16 (absolute 24).
func fixture() ([]byte, int) {
	buf := make([]byte, 256)
	copy(buf[8:], "VCSINFO2_START->")
	copy(buf[64:], "<---VCSINFO2_END")
	return buf, 24
}

func TestForgeGolden(t *testing.T) {
	buf, fieldOff := fixture()

	p, err := Forge(buf, fieldOff, 0x00000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x52CB4FF4), p)
	assert.Equal(t, uint32(0x00000000), Checksum(buf))
	assert.NoError(t, Verify(buf, 0x00000000))
}

func TestForgeArbitraryTarget(t *testing.T) {
	buf, fieldOff := fixture()

	p, err := Forge(buf, fieldOff, 0xDEADBEEF)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x9FF0A6B3), p)
	assert.Equal(t, uint32(0xDEADBEEF), Checksum(buf))
}

func TestForgeRandomBuffers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		size := 16 + rng.Intn(4096)
		buf := make([]byte, size)
		rng.Read(buf)
		fieldOff := rng.Intn(size - 4)
		target := rng.Uint32()

		_, err := Forge(buf, fieldOff, target)
		require.NoError(t, err, "size=%d fieldOff=%d target=0x%08X", size, fieldOff, target)
		require.Equal(t, target, Checksum(buf), "size=%d fieldOff=%d", size, fieldOff)
	}
}

// The CRC delta caused by the field value must compose linearly over GF(2):
// delta(a) ^ delta(b) == delta(a^b).
func TestFieldDeltaLinearity(t *testing.T) {
	buf, fieldOff := fixture()
	base := Checksum(buf)

	delta := func(v uint32) uint32 {
		tmp := make([]byte, len(buf))
		copy(tmp, buf)
		tmp[fieldOff] = byte(v)
		tmp[fieldOff+1] = byte(v >> 8)
		tmp[fieldOff+2] = byte(v >> 16)
		tmp[fieldOff+3] = byte(v >> 24)
		return Checksum(tmp) ^ base
	}

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		a, b := rng.Uint32(), rng.Uint32()
		assert.Equal(t, delta(a)^delta(b), delta(a^b), "a=0x%08X b=0x%08X", a, b)
	}
}

func TestForgeIdempotent(t *testing.T) {
	buf, fieldOff := fixture()

	p1, err := Forge(buf, fieldOff, 0x12345678)
	require.NoError(t, err)

	// Forging an already-forged buffer with the same target must reproduce
	// the same field bytes and final CRC.
	p2, err := Forge(buf, fieldOff, 0x12345678)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, uint32(0x12345678), Checksum(buf))
}

func TestForgeFieldOutOfBounds(t *testing.T) {
	buf := make([]byte, 16)

	_, err := Forge(buf, 14, 0)
	assert.Error(t, err)
	_, err = Forge(buf, -1, 0)
	assert.Error(t, err)
}

func TestSolveSingular(t *testing.T) {
	var cols [32]uint32 // all-zero matrix

	_, err := solve(cols, 1)
	assert.ErrorIs(t, err, ErrUnsolvable)

	p, err := solve(cols, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p)
}

func TestVerifyMismatch(t *testing.T) {
	buf, _ := fixture()
	got := Checksum(buf)

	err := Verify(buf, got^1)
	require.Error(t, err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, got^1, mismatch.Want)
	assert.Equal(t, got, mismatch.Got)
}
