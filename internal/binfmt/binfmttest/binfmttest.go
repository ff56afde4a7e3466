// Package binfmttest builds minimal synthetic PE, Mach-O, and ELF images
// for tests. The images are just valid enough for the standard library's
// debug packages to parse their section tables; they are not runnable.
package binfmttest

import (
	"encoding/binary"
	"strings"
)

// Region places named bytes at a fixed file offset in a synthetic image.
// For Mach-O images Name must be "SEGMENT.section" (e.g. "__DATA.__data");
// for PE and ELF it is the section name.
type Region struct {
	Name   string
	Offset uint32
	Data   []byte
}

var le = binary.LittleEndian

// PE builds a synthetic 64-bit PE image of the given total size containing
// one section per region.
func PE(regions []Region, total int) []byte {
	const (
		peSigOffset  = 0x40
		coffOffset   = peSigOffset + 4
		optOffset    = coffOffset + 20
		optSize      = 240 // standard PE32+ optional header
		sectionTable = optOffset + optSize
	)

	buf := make([]byte, total)
	copy(buf, "MZ")
	le.PutUint32(buf[0x3c:], peSigOffset)
	copy(buf[peSigOffset:], "PE\x00\x00")

	coff := buf[coffOffset:]
	le.PutUint16(coff[0:], 0x8664) // AMD64
	le.PutUint16(coff[2:], uint16(len(regions)))
	le.PutUint16(coff[16:], optSize)
	le.PutUint16(coff[18:], 0x0022) // executable image, large address aware

	opt := buf[optOffset:]
	le.PutUint16(opt[0:], 0x20b) // PE32+ magic
	le.PutUint32(opt[108:], 16)  // NumberOfRvaAndSizes

	for i, r := range regions {
		h := buf[sectionTable+i*40:]
		copy(h[0:8], r.Name)
		le.PutUint32(h[8:], uint32(len(r.Data)))        // VirtualSize
		le.PutUint32(h[12:], uint32(0x1000*(i+1)))      // VirtualAddress
		le.PutUint32(h[16:], uint32(len(r.Data)))       // SizeOfRawData
		le.PutUint32(h[20:], r.Offset)                  // PointerToRawData
		copy(buf[r.Offset:], r.Data)
	}
	return buf
}

// ELF builds a synthetic 64-bit little-endian ELF image of the given total
// size containing one section per region plus the mandatory null section and
// string table.
func ELF(regions []Region, total int) []byte {
	// String table laid out first so section headers can reference names.
	var names strings.Builder
	names.WriteByte(0)
	nameOffsets := make([]uint32, len(regions))
	for i, r := range regions {
		nameOffsets[i] = uint32(names.Len())
		names.WriteString(r.Name)
		names.WriteByte(0)
	}
	shstrtabName := uint32(names.Len())
	names.WriteString(".shstrtab")
	names.WriteByte(0)
	strtab := names.String()

	shnum := len(regions) + 2 // null + regions + .shstrtab
	shoff := total - shnum*64
	strtabOff := shoff - len(strtab)

	buf := make([]byte, total)
	copy(buf, "\x7fELF")
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	le.PutUint16(buf[16:], 2)  // ET_EXEC
	le.PutUint16(buf[18:], 62) // EM_X86_64
	le.PutUint32(buf[20:], 1)
	le.PutUint64(buf[40:], uint64(shoff))
	le.PutUint16(buf[52:], 64) // ehsize
	le.PutUint16(buf[58:], 64) // shentsize
	le.PutUint16(buf[60:], uint16(shnum))
	le.PutUint16(buf[62:], uint16(shnum-1)) // shstrndx

	copy(buf[strtabOff:], strtab)

	writeShdr := func(index int, name uint32, typ uint32, offset, size uint64) {
		h := buf[shoff+index*64:]
		le.PutUint32(h[0:], name)
		le.PutUint32(h[4:], typ)
		le.PutUint64(h[24:], offset)
		le.PutUint64(h[32:], size)
		le.PutUint64(h[48:], 1) // addralign
	}

	for i, r := range regions {
		const shtProgbits = 1
		writeShdr(i+1, nameOffsets[i], shtProgbits, uint64(r.Offset), uint64(len(r.Data)))
		copy(buf[r.Offset:], r.Data)
	}
	const shtStrtab = 3
	writeShdr(shnum-1, shstrtabName, shtStrtab, uint64(strtabOff), uint64(len(strtab)))
	return buf
}

// MachO builds a synthetic 64-bit little-endian Mach-O image of the given
// total size, with one LC_SEGMENT_64 per region. When codeSigSize is
// nonzero, an LC_CODE_SIGNATURE command pointing at [codeSigOff,
// codeSigOff+codeSigSize) is appended and that blob region is filled with
// 0xCC bytes.
func MachO(regions []Region, total int, codeSigOff, codeSigSize uint32) []byte {
	const (
		headerSize   = 32
		segCmdSize   = 72 + 80 // segment_command_64 + one section_64
		lcSegment64  = 0x19
		lcCodeSig    = 0x1d
		codeSigCmdSz = 16
	)

	sizeofcmds := len(regions) * segCmdSize
	ncmds := len(regions)
	if codeSigSize > 0 {
		sizeofcmds += codeSigCmdSz
		ncmds++
	}

	buf := make([]byte, total)
	le.PutUint32(buf[0:], 0xfeedfacf)
	le.PutUint32(buf[4:], 0x01000007) // CPU_TYPE_X86_64
	le.PutUint32(buf[8:], 3)
	le.PutUint32(buf[12:], 2) // MH_EXECUTE
	le.PutUint32(buf[16:], uint32(ncmds))
	le.PutUint32(buf[20:], uint32(sizeofcmds))

	off := headerSize
	for i, r := range regions {
		parts := strings.SplitN(r.Name, ".", 2)
		segname, sectname := parts[0], parts[1]

		cmd := buf[off:]
		le.PutUint32(cmd[0:], lcSegment64)
		le.PutUint32(cmd[4:], segCmdSize)
		copy(cmd[8:24], segname)
		vmaddr := uint64(0x100000000 + 0x1000*(i+1))
		le.PutUint64(cmd[24:], vmaddr)
		le.PutUint64(cmd[32:], uint64(len(r.Data)))
		le.PutUint64(cmd[40:], uint64(r.Offset))
		le.PutUint64(cmd[48:], uint64(len(r.Data)))
		le.PutUint32(cmd[56:], 7) // maxprot
		le.PutUint32(cmd[60:], 3) // initprot
		le.PutUint32(cmd[64:], 1) // nsects

		sect := cmd[72:]
		copy(sect[0:16], sectname)
		copy(sect[16:32], segname)
		le.PutUint64(sect[32:], vmaddr)
		le.PutUint64(sect[40:], uint64(len(r.Data)))
		le.PutUint32(sect[48:], r.Offset)

		copy(buf[r.Offset:], r.Data)
		off += segCmdSize
	}

	if codeSigSize > 0 {
		cmd := buf[off:]
		le.PutUint32(cmd[0:], lcCodeSig)
		le.PutUint32(cmd[4:], codeSigCmdSz)
		le.PutUint32(cmd[8:], codeSigOff)
		le.PutUint32(cmd[12:], codeSigSize)
		for i := codeSigOff; i < codeSigOff+codeSigSize; i++ {
			buf[i] = 0xCC
		}
	}
	return buf
}
