package patcher

import (
	"errors"
	"fmt"
)

// ErrKeyRegionOutOfBounds indicates an anchor matched but the key region it
// points at runs past the end of the anchor's data section, meaning the
// displacement table does not fit this build and writing would clobber
// unrelated bytes.
var ErrKeyRegionOutOfBounds = errors.New("key region out of bounds")

// KeyRegion is a located key replacement target: the anchor match plus the
// resolved offset of the fixed-size key itself.
type KeyRegion struct {
	Match
	KeyOffset uint64
	KeyLength int
}

// LocateKey resolves a key pattern to the concrete byte region holding the
// key. Anchors are tried in candidate order; the key starts at the anchor
// offset plus the candidate's displacement and must lie entirely within the
// same data section as the anchor.
func (s *Scanner) LocateKey(p Pattern) (*KeyRegion, error) {
	match := s.Find(p)
	if match == nil {
		return nil, nil
	}

	keyOffset := match.Offset + uint64(match.Candidate.KeyDisplacement)
	if !match.Section.Contains(keyOffset, uint64(p.KeyLength)) {
		return nil, fmt.Errorf("%w: %s anchor %s at 0x%x puts a %d byte key at 0x%x outside section %s",
			ErrKeyRegionOutOfBounds, p.ID, match.Candidate.Name, match.Offset,
			p.KeyLength, keyOffset, match.Section.Name)
	}

	return &KeyRegion{Match: *match, KeyOffset: keyOffset, KeyLength: p.KeyLength}, nil
}
