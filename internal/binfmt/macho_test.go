package binfmt

import (
	"testing"

	"github.com/dcrodman/wowpatch/internal/binfmt/binfmttest"
)

func TestParseMachO(t *testing.T) {
	image := binfmttest.MachO([]binfmttest.Region{
		{Name: "__TEXT.__text", Offset: 0x400, Data: make([]byte, 0x100)},
		{Name: "__TEXT.__const", Offset: 0x500, Data: make([]byte, 0x200)},
		{Name: "__DATA.__data", Offset: 0x700, Data: make([]byte, 0x300)},
		{Name: "__DATA_CONST.__const", Offset: 0xa00, Data: make([]byte, 0x100)},
		{Name: "__LINKEDIT.__junk", Offset: 0xb00, Data: make([]byte, 0x80)},
	}, 0x1000, 0, 0)

	idx, err := Parse(image)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if idx.Format != FormatMachO {
		t.Errorf("Parse() format = %v, want %v", idx.Format, FormatMachO)
	}

	wantKinds := map[string]SectionKind{
		"__TEXT.__text":        KindCode,
		"__TEXT.__const":       KindData,
		"__DATA.__data":        KindData,
		"__DATA_CONST.__const": KindData,
		"__LINKEDIT.__junk":    KindOther,
	}
	if len(idx.Sections) != len(wantKinds) {
		t.Fatalf("Parse() found %d sections, want %d", len(idx.Sections), len(wantKinds))
	}
	for _, s := range idx.Sections {
		want, ok := wantKinds[s.Name]
		if !ok {
			t.Errorf("unexpected section %q", s.Name)
			continue
		}
		if s.Kind != want {
			t.Errorf("section %q kind = %v, want %v", s.Name, s.Kind, want)
		}
	}
}

func TestParseMachOSectionOffsets(t *testing.T) {
	image := binfmttest.MachO([]binfmttest.Region{
		{Name: "__DATA.__data", Offset: 0x600, Data: make([]byte, 0x240)},
	}, 0x1000, 0, 0)

	idx, err := Parse(image)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	s := idx.DataSectionAt(0x700, 0x20)
	if s == nil {
		t.Fatal("DataSectionAt(0x700, 0x20) = nil, want __DATA.__data")
	}
	if s.Offset != 0x600 || s.Size != 0x240 {
		t.Errorf("section bounds = (0x%x, 0x%x), want (0x600, 0x240)", s.Offset, s.Size)
	}
}
