package binfmt

import (
	"encoding/binary"
	"fmt"
)

// LC_CODE_SIGNATURE marks the load command that points at the embedded code
// signature blob. Patched binaries must have it removed or macOS will refuse
// to launch them once their pages no longer hash to the signed values.
const lcCodeSignature = 0x1d

const (
	machoHeaderSize32 = 28
	machoHeaderSize64 = 32

	machoNCmdsOffset      = 16
	machoSizeOfCmdsOffset = 20
)

// machoHeader carries just enough of the Mach-O header to edit the load
// command table in place.
type machoHeader struct {
	order      binary.ByteOrder
	size       uint32
	ncmds      uint32
	sizeofcmds uint32
}

func parseMachoHeader(data []byte) (*machoHeader, error) {
	if len(data) < machoHeaderSize32 {
		return nil, fmt.Errorf("%w: buffer smaller than Mach-O header", ErrMalformedSectionTable)
	}

	h := &machoHeader{}
	switch binary.LittleEndian.Uint32(data) {
	case machoMagic32:
		h.order, h.size = binary.LittleEndian, machoHeaderSize32
	case machoMagic64:
		h.order, h.size = binary.LittleEndian, machoHeaderSize64
	case machoCigam32:
		h.order, h.size = binary.BigEndian, machoHeaderSize32
	case machoCigam64:
		h.order, h.size = binary.BigEndian, machoHeaderSize64
	default:
		return nil, ErrUnrecognizedFormat
	}

	h.ncmds = h.order.Uint32(data[machoNCmdsOffset:])
	h.sizeofcmds = h.order.Uint32(data[machoSizeOfCmdsOffset:])

	end := uint64(h.size) + uint64(h.sizeofcmds)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: load commands extend beyond file", ErrMalformedSectionTable)
	}
	return h, nil
}

// findLoadCommand walks the load command table looking for the given command
// type and returns its offset and size within the buffer.
func findLoadCommand(data []byte, h *machoHeader, want uint32) (offset, size uint32, ok bool, err error) {
	off := h.size
	end := h.size + h.sizeofcmds

	for i := uint32(0); i < h.ncmds && off+8 <= end; i++ {
		cmd := h.order.Uint32(data[off:])
		cmdsize := h.order.Uint32(data[off+4:])
		if cmdsize < 8 || off+cmdsize > end {
			return 0, 0, false, fmt.Errorf("%w: load command %d has size %d", ErrMalformedSectionTable, i, cmdsize)
		}
		if cmd == want {
			return off, cmdsize, true, nil
		}
		off += cmdsize
	}
	return 0, 0, false, nil
}

// HasCodeSignature reports whether a Mach-O buffer carries an
// LC_CODE_SIGNATURE load command.
func HasCodeSignature(data []byte) (bool, error) {
	h, err := parseMachoHeader(data)
	if err != nil {
		return false, err
	}
	_, _, ok, err := findLoadCommand(data, h, lcCodeSignature)
	return ok, err
}

// StripCodeSignature removes the LC_CODE_SIGNATURE load command from a
// Mach-O buffer in place: the signature blob is zeroed, the remaining load
// commands are shifted up over the removed entry, and the header's command
// count and size are adjusted. The buffer length never changes.
//
// Returns false if the binary carries no code signature.
func StripCodeSignature(data []byte) (bool, error) {
	h, err := parseMachoHeader(data)
	if err != nil {
		return false, err
	}

	off, cmdsize, ok, err := findLoadCommand(data, h, lcCodeSignature)
	if err != nil || !ok {
		return false, err
	}

	// The linkedit_data_command payload is two uint32s: the blob's file
	// offset and size. Zero the blob so no stale signature bytes remain.
	if cmdsize >= 16 {
		dataOff := h.order.Uint32(data[off+8:])
		dataSize := h.order.Uint32(data[off+12:])
		blobEnd := uint64(dataOff) + uint64(dataSize)
		if blobEnd <= uint64(len(data)) {
			for i := uint64(dataOff); i < blobEnd; i++ {
				data[i] = 0
			}
		}
	}

	// Shift the remaining commands up and zero the vacated tail so the
	// command table stays contiguous.
	cmdsEnd := h.size + h.sizeofcmds
	copy(data[off:cmdsEnd-cmdsize], data[off+cmdsize:cmdsEnd])
	for i := cmdsEnd - cmdsize; i < cmdsEnd; i++ {
		data[i] = 0
	}

	h.order.PutUint32(data[machoNCmdsOffset:], h.ncmds-1)
	h.order.PutUint32(data[machoSizeOfCmdsOffset:], h.sizeofcmds-cmdsize)
	return true, nil
}
