package patcher

import (
	"errors"
	"testing"

	"github.com/dcrodman/wowpatch/internal/binfmt/binfmttest"
)

var (
	rsaConnectToAnchor = []byte{0x91, 0xD5, 0x9B, 0xB7, 0xD4, 0xE1, 0x83, 0xA5}
	rsaSignatureAnchor = []byte{0xD2, 0x01, 0xE1, 0xF3, 0x3C, 0x7F, 0x8A, 0x9B}
	ed25519Anchor      = []byte{0x15, 0xD6, 0x18, 0xBD, 0x7D, 0xB5, 0x77, 0xBD}
)

func TestLocateKeyZeroDisplacement(t *testing.T) {
	// connect-to anchors the key directly: the anchor bytes are the key's
	// leading bytes.
	rdata := make([]byte, 0x200)
	copy(rdata[0x40:], rsaConnectToAnchor)

	image := binfmttest.PE([]binfmttest.Region{
		{Name: ".rdata", Offset: 0x600, Data: rdata},
	}, 0x1000)

	s := NewScanner(image, parseImage(t, image), testLogger())
	region, err := s.LocateKey(rsaModulusPattern)
	if err != nil {
		t.Fatalf("LocateKey() unexpected error: %v", err)
	}
	if region == nil {
		t.Fatal("LocateKey() = nil, want a key region")
	}
	if region.KeyOffset != 0x640 {
		t.Errorf("LocateKey() key offset = 0x%x, want 0x640", region.KeyOffset)
	}
	if region.KeyLength != 256 {
		t.Errorf("LocateKey() key length = %d, want 256", region.KeyLength)
	}
}

func TestLocateKeyDisplacedAnchor(t *testing.T) {
	// The signature anchor sits 16 bytes before the key region.
	rdata := make([]byte, 0x200)
	copy(rdata[0x40:], rsaSignatureAnchor)

	image := binfmttest.PE([]binfmttest.Region{
		{Name: ".rdata", Offset: 0x600, Data: rdata},
	}, 0x1000)

	s := NewScanner(image, parseImage(t, image), testLogger())
	region, err := s.LocateKey(rsaModulusPattern)
	if err != nil {
		t.Fatalf("LocateKey() unexpected error: %v", err)
	}
	if region == nil {
		t.Fatal("LocateKey() = nil, want a key region")
	}
	if region.Candidate.Name != "signature" {
		t.Errorf("LocateKey() candidate = %q, want signature", region.Candidate.Name)
	}
	if region.KeyOffset != 0x650 {
		t.Errorf("LocateKey() key offset = 0x%x, want 0x650", region.KeyOffset)
	}
}

func TestLocateKeyOutOfBounds(t *testing.T) {
	// Anchor near the end of its section: the 256-byte key region would run
	// past the section boundary.
	rdata := make([]byte, 0x100)
	copy(rdata[0xf0:], rsaConnectToAnchor)

	image := binfmttest.PE([]binfmttest.Region{
		{Name: ".rdata", Offset: 0x600, Data: rdata},
	}, 0x1000)

	s := NewScanner(image, parseImage(t, image), testLogger())
	_, err := s.LocateKey(rsaModulusPattern)
	if !errors.Is(err, ErrKeyRegionOutOfBounds) {
		t.Fatalf("LocateKey() error = %v, want ErrKeyRegionOutOfBounds", err)
	}
}

func TestLocateKeyAbsent(t *testing.T) {
	image := binfmttest.PE([]binfmttest.Region{
		{Name: ".rdata", Offset: 0x600, Data: make([]byte, 0x200)},
	}, 0x1000)

	s := NewScanner(image, parseImage(t, image), testLogger())
	region, err := s.LocateKey(ed25519Pattern)
	if err != nil {
		t.Fatalf("LocateKey() unexpected error: %v", err)
	}
	if region != nil {
		t.Fatalf("LocateKey() = %+v, want nil for an absent anchor", region)
	}
}
