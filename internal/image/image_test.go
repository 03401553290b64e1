package image

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomask77/add-version-info/internal/testutil"
)

func TestLoadRaw(t *testing.T) {
	file := []byte{1, 2, 3, 4}
	img := LoadRaw(file)

	assert.Equal(t, Raw, img.Kind())
	assert.Equal(t, uint64(0), img.Start())
	assert.Equal(t, 4, img.Size())
	assert.Nil(t, img.Sections())

	// Image bytes and file bytes are the same backing store.
	img.Bytes()[0] = 0xAA
	assert.Equal(t, byte(0xAA), img.File()[0])
	assert.NoError(t, img.Commit(0, 4))
}

func TestIsELF(t *testing.T) {
	assert.True(t, IsELF([]byte{0x7f, 'E', 'L', 'F', 0, 0}))
	assert.False(t, IsELF([]byte("ELF")))
	assert.False(t, IsELF([]byte("firmware")))
}

func TestLoadELFNotELF(t *testing.T) {
	_, err := LoadELF([]byte("this is not an elf file at all .........."))
	assert.Error(t, err)
}

func TestLoadELFFlatten(t *testing.T) {
	text := bytes.Repeat([]byte{0xAA}, 16)
	data := bytes.Repeat([]byte{0xBB}, 8)

	// Linked to run at 0x2000_0000 but load at 0x0800_0000:
	// paddr = vaddr + delta (mod 2^32).
	const delta = uint32(0xE8000000)
	file := testutil.MakeELF32(delta, []testutil.Sect{
		{Name: ".text", Addr: 0x20000000, Data: text},
		{Name: ".data", Addr: 0x20000020, Data: data},
		{Name: ".bss", Addr: 0x20000030, Type: 8, Data: make([]byte, 64)}, // SHT_NOBITS
		{Name: ".comment", Addr: 0, Flags: 0x1, Data: []byte("gcc")},      // not SHF_ALLOC
	})

	img, err := LoadELF(file)
	require.NoError(t, err)

	assert.Equal(t, ELF, img.Kind())
	assert.Equal(t, uint64(0x08000000), img.Start())
	require.Equal(t, 0x28, img.Size())

	flat := img.Bytes()
	assert.Equal(t, text, flat[:16])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 16), flat[16:32], "gap must be 0xFF filled")
	assert.Equal(t, data, flat[32:40])

	// NOBITS and non-alloc sections are excluded from the image.
	require.Len(t, img.Sections(), 2)
	assert.Equal(t, ".text", img.Sections()[0].Name)
	assert.Equal(t, uint64(0x08000020), img.Sections()[1].LMA)
}

func TestCommitELF(t *testing.T) {
	text := bytes.Repeat([]byte{0xAA}, 16)
	data := bytes.Repeat([]byte{0xBB}, 16)
	file := testutil.MakeELF32(0, []testutil.Sect{
		{Name: ".text", Addr: 0x8000, Data: text},
		{Name: ".data", Addr: 0x8020, Data: data},
	})

	img, err := LoadELF(file)
	require.NoError(t, err)

	// Patch bytes inside .data via the flattened image and commit.
	flat := img.Bytes()
	copy(flat[0x24:], "PATCH")
	require.NoError(t, img.Commit(0x24, 5))
	assert.Equal(t, []byte("PATCH"), img.Sections()[1].Data[4:9])
	assert.Contains(t, string(img.File()), "PATCH")

	// A range that touches the inter-section gap has no home in the file.
	err = img.Commit(0x0E, 8)
	assert.Error(t, err)

	// Out-of-range commits are rejected.
	assert.Error(t, img.Commit(-1, 4))
	assert.Error(t, img.Commit(0x30, 64))
}
