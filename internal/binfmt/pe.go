package binfmt

import (
	"bytes"
	"debug/pe"
	"fmt"
)

// parsePESections reads the COFF section table of a PE image.
//
// Only .text (code) and .rdata/.data (data) matter for patching; everything
// else is recorded as KindOther so overlap checks still see it.
func parsePESections(data []byte) ([]Section, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSectionTable, err)
	}
	defer f.Close()

	var sections []Section
	for _, s := range f.Sections {
		// Sections with no raw data (e.g. .bss) occupy no file bytes.
		if s.Size == 0 {
			continue
		}

		offset := uint64(s.Offset)
		size := uint64(s.Size)
		if err := checkBounds(s.Name, offset, size, uint64(len(data))); err != nil {
			return nil, err
		}

		sections = append(sections, Section{
			Name:   s.Name,
			Offset: offset,
			Size:   size,
			Kind:   classifyPESection(s.Name),
		})
	}
	return sections, nil
}

func classifyPESection(name string) SectionKind {
	switch name {
	case ".text":
		return KindCode
	case ".rdata", ".data":
		return KindData
	default:
		return KindOther
	}
}
