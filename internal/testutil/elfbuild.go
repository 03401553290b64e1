// Package testutil builds small ELF fixtures in memory so image-loading
// tests do not depend on checked-in binaries or a cross toolchain.
package testutil

import (
	"bytes"
	"encoding/binary"
)

// Sect describes one section of a synthetic ELF. Type and Flags default to
// SHT_PROGBITS and SHF_ALLOC|SHF_EXECINSTR when zero.
type Sect struct {
	Name  string
	Addr  uint32
	Type  uint32
	Flags uint32
	Data  []byte
}

const (
	ehSize  = 52
	phSize  = 32
	shSize  = 40
	dataOff = 96 // first section blob, past ehdr+phdr
)

// MakeELF32 assembles a little-endian ELF32 executable with one PT_LOAD
// segment covering all sections. paddrDelta is added to every virtual
// address to form the segment's physical (load) address, mimicking firmware
// linked to run from RAM but load from flash.
func MakeELF32(paddrDelta uint32, sects []Sect) []byte {
	le := binary.LittleEndian

	type placed struct {
		Sect
		off     uint32
		nameOff uint32
	}

	// Section blobs, then .shstrtab, then section headers.
	var strtab bytes.Buffer
	strtab.WriteByte(0)

	var ps []placed
	off := uint32(dataOff)
	for _, s := range sects {
		p := placed{Sect: s, off: off, nameOff: uint32(strtab.Len())}
		if p.Type == 0 {
			p.Type = 1 // SHT_PROGBITS
		}
		if p.Flags == 0 {
			p.Flags = 0x2 | 0x4 // SHF_ALLOC | SHF_EXECINSTR
		}
		strtab.WriteString(s.Name)
		strtab.WriteByte(0)
		if p.Type != 8 { // SHT_NOBITS has no file data
			off += uint32(len(s.Data))
		}
		ps = append(ps, p)
	}
	strtabNameOff := uint32(strtab.Len())
	strtab.WriteString(".shstrtab")
	strtab.WriteByte(0)

	strtabOff := off
	shoff := strtabOff + uint32(strtab.Len())
	shnum := uint16(len(ps) + 2) // null + sections + .shstrtab

	// Segment bounds over allocated sections.
	var minAddr, maxEnd uint32
	first := true
	for _, p := range ps {
		if p.Flags&0x2 == 0 {
			continue
		}
		end := p.Addr + uint32(len(p.Data))
		if first || p.Addr < minAddr {
			minAddr = p.Addr
		}
		if first || end > maxEnd {
			maxEnd = end
		}
		first = false
	}

	out := make([]byte, shoff+uint32(shnum)*shSize)

	// ELF header
	copy(out, []byte{0x7f, 'E', 'L', 'F', 1, 1, 1})
	le.PutUint16(out[16:], 2)  // e_type: ET_EXEC
	le.PutUint16(out[18:], 40) // e_machine: EM_ARM
	le.PutUint32(out[20:], 1)  // e_version
	le.PutUint32(out[24:], minAddr+paddrDelta)
	le.PutUint32(out[28:], ehSize) // e_phoff
	le.PutUint32(out[32:], shoff)  // e_shoff
	le.PutUint16(out[40:], ehSize)
	le.PutUint16(out[42:], phSize)
	le.PutUint16(out[44:], 1) // e_phnum
	le.PutUint16(out[46:], shSize)
	le.PutUint16(out[48:], shnum)
	le.PutUint16(out[50:], shnum-1) // e_shstrndx

	// Program header: one PT_LOAD spanning every allocated section.
	ph := out[ehSize:]
	le.PutUint32(ph[0:], 1) // p_type: PT_LOAD
	le.PutUint32(ph[4:], dataOff)
	le.PutUint32(ph[8:], minAddr)
	le.PutUint32(ph[12:], minAddr+paddrDelta)
	le.PutUint32(ph[16:], maxEnd-minAddr) // p_filesz
	le.PutUint32(ph[20:], maxEnd-minAddr) // p_memsz
	le.PutUint32(ph[24:], 7)              // p_flags: rwx
	le.PutUint32(ph[28:], 4)              // p_align

	// Section data and string table
	for _, p := range ps {
		if p.Type != 8 {
			copy(out[p.off:], p.Data)
		}
	}
	copy(out[strtabOff:], strtab.Bytes())

	// Section headers: index 0 stays zero.
	shdr := func(i int) []byte { return out[shoff+uint32(i)*shSize:] }
	for i, p := range ps {
		h := shdr(i + 1)
		le.PutUint32(h[0:], p.nameOff)
		le.PutUint32(h[4:], p.Type)
		le.PutUint32(h[8:], p.Flags)
		le.PutUint32(h[12:], p.Addr)
		le.PutUint32(h[16:], p.off)
		le.PutUint32(h[20:], uint32(len(p.Data)))
		le.PutUint32(h[32:], 1) // sh_addralign
	}
	h := shdr(len(ps) + 1)
	le.PutUint32(h[0:], strtabNameOff)
	le.PutUint32(h[4:], 3) // SHT_STRTAB
	le.PutUint32(h[16:], strtabOff)
	le.PutUint32(h[20:], uint32(strtab.Len()))
	le.PutUint32(h[32:], 1)

	return out
}
