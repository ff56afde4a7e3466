package binfmt

import (
	"bytes"
	"debug/macho"
	"fmt"
)

// parseMachOSections walks the load commands of a Mach-O image and flattens
// the per-segment section lists into the format-agnostic Section slice.
//
// Classification follows how Blizzard's clients actually lay out their
// constants: everything under __TEXT is code except __TEXT.__const, which is
// read-only data and historically where the RSA modulus lives. __DATA and
// __DATA_CONST are data.
func parseMachOSections(data []byte) ([]Section, error) {
	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSectionTable, err)
	}
	defer f.Close()

	var sections []Section
	for _, s := range f.Sections {
		// Zero-fill sections (e.g. __DATA.__bss) have no file presence.
		if s.Size == 0 || s.Offset == 0 {
			continue
		}

		offset := uint64(s.Offset)
		name := s.Seg + "." + s.Name
		if err := checkBounds(name, offset, s.Size, uint64(len(data))); err != nil {
			return nil, err
		}

		sections = append(sections, Section{
			Name:   name,
			Offset: offset,
			Size:   s.Size,
			Kind:   classifyMachOSection(s.Seg, s.Name),
		})
	}
	return sections, nil
}

func classifyMachOSection(segment, section string) SectionKind {
	switch segment {
	case "__TEXT":
		if section == "__const" {
			return KindData
		}
		return KindCode
	case "__DATA", "__DATA_CONST":
		return KindData
	default:
		return KindOther
	}
}
