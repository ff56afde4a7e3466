package patcher

import (
	"bytes"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/wowpatch/internal/binfmt"
)

// Scanner searches one loaded binary for pattern candidates and filters the
// hits through the section index so that only data-section matches survive.
// It never mutates the buffer it scans.
type Scanner struct {
	data   []byte
	index  *binfmt.Index
	logger *logrus.Logger
}

func NewScanner(data []byte, index *binfmt.Index, logger *logrus.Logger) *Scanner {
	return &Scanner{data: data, index: index, logger: logger}
}

// Match is one accepted pattern hit.
type Match struct {
	Candidate Candidate
	Offset    uint64
	Section   *binfmt.Section
}

// Find tries the pattern's candidates in order and returns the first one
// with a match inside a data section, using the lowest file offset when a
// candidate matches more than once. Hits inside code sections are dropped
// and logged: patching executable code corrupts the client at runtime, so
// the section filter is the engine's hard safety boundary.
//
// A nil return with nil error means the pattern simply is not present.
func (s *Scanner) Find(p Pattern) *Match {
	for _, cand := range p.Candidates {
		var match *Match
		dataHits := 0

		for _, offset := range findAll(s.data, cand.Bytes) {
			section := s.index.DataSectionAt(offset, uint64(len(cand.Bytes)))
			if section == nil {
				s.logDiscarded(p, cand, offset)
				continue
			}

			dataHits++
			if match == nil {
				match = &Match{Candidate: cand, Offset: offset, Section: section}
			}
		}

		if match == nil {
			continue
		}
		if dataHits > 1 {
			s.logger.Warnf("pattern %s (%s) matched %d data locations, using lowest offset 0x%x",
				p.ID, cand.Name, dataHits, match.Offset)
		}
		s.logger.Debugf("pattern %s (%s) found at 0x%x in %s",
			p.ID, cand.Name, match.Offset, match.Section.Name)
		return match
	}
	return nil
}

func (s *Scanner) logDiscarded(p Pattern, cand Candidate, offset uint64) {
	section := s.index.SectionAt(offset)
	name := "unmapped region"
	if section != nil {
		name = section.Name + " (" + section.Kind.String() + ")"
	}
	s.logger.Warnf("pattern %s (%s) hit at 0x%x discarded: %s is not patchable",
		p.ID, cand.Name, offset, name)
}

// findAll returns every offset at which needle occurs in data.
func findAll(data, needle []byte) []uint64 {
	if len(needle) == 0 {
		return nil
	}

	var offsets []uint64
	for start := 0; start+len(needle) <= len(data); {
		i := bytes.Index(data[start:], needle)
		if i < 0 {
			break
		}
		offsets = append(offsets, uint64(start+i))
		start += i + 1
	}
	return offsets
}
