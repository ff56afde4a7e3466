// Package binfmt provides a thin, format-agnostic view of the three
// executable container formats the patcher supports (PE, Mach-O, and ELF).
// The rest of the engine only ever sees the Section list produced here, so
// all of the per-format parsing quirks stay within this package.
package binfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedFormat indicates the buffer does not start with any of
	// the known executable magic numbers.
	ErrUnrecognizedFormat = errors.New("unrecognized executable format")
	// ErrMalformedSectionTable indicates the container's section (or load
	// command) table is truncated or references bytes outside the file.
	ErrMalformedSectionTable = errors.New("malformed section table")
)

// Format identifies the container format of an executable file.
type Format int

const (
	FormatUnknown Format = iota
	FormatPE
	FormatMachO
	FormatELF
)

func (f Format) String() string {
	switch f {
	case FormatPE:
		return "PE"
	case FormatMachO:
		return "Mach-O"
	case FormatELF:
		return "ELF"
	default:
		return "unknown"
	}
}

// Mach-O magic numbers in both widths and byte orders, as they appear when
// read little-endian from the start of the file.
const (
	machoMagic32  = 0xfeedface
	machoMagic64  = 0xfeedfacf
	machoCigam32  = 0xcefaedfe
	machoCigam64  = 0xcffaedfe
	machoFatMagic = 0xcafebabe
	machoFatCigam = 0xbebafeca
)

// DetectFormat classifies a byte buffer by its magic header.
//
// Fat (universal) Mach-O binaries are rejected: the patcher operates on a
// single architecture slice and expects callers to thin the binary first.
func DetectFormat(data []byte) (Format, error) {
	if len(data) >= 2 && data[0] == 'M' && data[1] == 'Z' {
		return FormatPE, nil
	}
	if len(data) >= 4 && data[0] == 0x7f && data[1] == 'E' && data[2] == 'L' && data[3] == 'F' {
		return FormatELF, nil
	}
	if len(data) >= 4 {
		switch binary.LittleEndian.Uint32(data) {
		case machoMagic32, machoMagic64, machoCigam32, machoCigam64:
			return FormatMachO, nil
		case machoFatMagic, machoFatCigam:
			return FormatUnknown, fmt.Errorf("%w: fat Mach-O binaries are not supported", ErrUnrecognizedFormat)
		}
	}
	return FormatUnknown, ErrUnrecognizedFormat
}

// SectionKind classifies a section as holding executable code, initialized
// data, or something the patcher has no business touching.
type SectionKind int

const (
	// KindOther covers sections we record for overlap checks but never patch.
	// Unknown or ambiguous sections land here rather than in KindData.
	KindOther SectionKind = iota
	KindCode
	KindData
)

func (k SectionKind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindData:
		return "data"
	default:
		return "other"
	}
}

// Section describes one named region of an executable's file layout.
type Section struct {
	Name   string
	Offset uint64
	Size   uint64
	Kind   SectionKind
}

// Contains reports whether the byte range [offset, offset+length) lies
// entirely within the section.
func (s *Section) Contains(offset, length uint64) bool {
	return offset >= s.Offset && offset+length <= s.Offset+s.Size
}

// Index is the parsed section table of one executable.
type Index struct {
	Format   Format
	Sections []Section
}

// Parse detects the buffer's format and builds its section Index.
func Parse(data []byte) (*Index, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}

	var sections []Section
	switch format {
	case FormatPE:
		sections, err = parsePESections(data)
	case FormatMachO:
		sections, err = parseMachOSections(data)
	case FormatELF:
		sections, err = parseELFSections(data)
	}
	if err != nil {
		return nil, err
	}
	if err := checkOverlap(sections); err != nil {
		return nil, err
	}

	return &Index{Format: format, Sections: sections}, nil
}

// checkOverlap rejects section tables whose entries claim overlapping file
// ranges. Sections in a well-formed binary never share bytes; an overlap
// would let a data-section lookup answer for bytes a code section also owns.
func checkOverlap(sections []Section) error {
	for i := range sections {
		for j := i + 1; j < len(sections); j++ {
			a, b := &sections[i], &sections[j]
			if a.Offset < b.Offset+b.Size && b.Offset < a.Offset+a.Size {
				return fmt.Errorf("%w: sections %s [0x%x, 0x%x) and %s [0x%x, 0x%x) overlap",
					ErrMalformedSectionTable, a.Name, a.Offset, a.Offset+a.Size,
					b.Name, b.Offset, b.Offset+b.Size)
			}
		}
	}
	return nil
}

// SectionAt returns the section containing the file offset, or nil if the
// offset falls outside every recorded section.
func (idx *Index) SectionAt(offset uint64) *Section {
	for i := range idx.Sections {
		if idx.Sections[i].Contains(offset, 1) {
			return &idx.Sections[i]
		}
	}
	return nil
}

// DataSectionAt returns the data section fully containing the byte range
// [offset, offset+length), or nil if no such section exists.
func (idx *Index) DataSectionAt(offset, length uint64) *Section {
	for i := range idx.Sections {
		s := &idx.Sections[i]
		if s.Kind == KindData && s.Contains(offset, length) {
			return s
		}
	}
	return nil
}

// checkBounds guards against section tables that claim bytes beyond the end
// of the file, which is the telltale sign of a truncated or corrupt binary.
func checkBounds(name string, offset, size, fileSize uint64) error {
	if offset+size < offset || offset+size > fileSize {
		return fmt.Errorf("%w: section %s claims [0x%x, 0x%x) beyond file size 0x%x",
			ErrMalformedSectionTable, name, offset, offset+size, fileSize)
	}
	return nil
}
