package image

import (
	"bytes"
	"debug/elf"
	"fmt"
	"sort"

	"github.com/thomask77/add-version-info/internal/buf"
)

// gapFill is the value programmed into flash gaps between sections, matching
// what objcopy -O binary emits for erased flash.
const gapFill = 0xFF

// LoadELF flattens the loadable sections of an ELF object into a raw image.
//
// Sections are kept when they are allocated and carry file data (SHF_ALLOC,
// not SHT_NOBITS). Each section's load memory address is its sh_addr shifted
// by the paddr-vaddr delta of the PT_LOAD segment containing it, so images
// linked with separate load and run addresses (flash vs. RAM) flatten at
// their flash location.
func LoadELF(file []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	defer f.Close()

	var sections []Section
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS || s.Size == 0 {
			continue
		}
		data, ok := buf.Slice(file, int(s.Offset), int(s.Size))
		if !ok {
			return nil, fmt.Errorf("image: section %s: file range %d+%d exceeds file (%d bytes)",
				s.Name, s.Offset, s.Size, len(file))
		}

		lma := s.Addr
		for _, p := range f.Progs {
			if p.Type == elf.PT_LOAD && p.Vaddr <= s.Addr && s.Addr+s.Size <= p.Vaddr+p.Memsz {
				lma = s.Addr + p.Paddr - p.Vaddr
				break
			}
		}
		sections = append(sections, Section{Name: s.Name, LMA: lma, Data: data})
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("image: no loadable sections")
	}

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].LMA < sections[j].LMA })
	base := sections[0].LMA

	var flat []byte
	for _, s := range sections {
		off := int(s.LMA - base)
		if off < len(flat) {
			return nil, fmt.Errorf("image: section %s at 0x%X overlaps previous section", s.Name, s.LMA)
		}
		for len(flat) < off {
			flat = append(flat, gapFill)
		}
		flat = append(flat, s.Data...)
	}

	return &Image{kind: ELF, file: file, flat: flat, base: base, sections: sections}, nil
}
