package binfmt

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// parseELFSections reads the ELF section header table.
//
// .rodata is treated as data alongside .data since it is the ELF counterpart
// of PE's .rdata and is where string constants are actually emitted.
func parseELFSections(data []byte) ([]Section, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSectionTable, err)
	}
	defer f.Close()

	var sections []Section
	for _, s := range f.Sections {
		// SHT_NOBITS sections (.bss) and the null section have no file bytes.
		if s.Type == elf.SHT_NULL || s.Type == elf.SHT_NOBITS || s.FileSize == 0 {
			continue
		}

		if err := checkBounds(s.Name, s.Offset, s.FileSize, uint64(len(data))); err != nil {
			return nil, err
		}

		sections = append(sections, Section{
			Name:   s.Name,
			Offset: s.Offset,
			Size:   s.FileSize,
			Kind:   classifyELFSection(s.Name),
		})
	}
	return sections, nil
}

func classifyELFSection(name string) SectionKind {
	switch name {
	case ".text":
		return KindCode
	case ".data", ".rodata":
		return KindData
	default:
		return KindOther
	}
}
