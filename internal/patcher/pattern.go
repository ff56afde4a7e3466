// Package patcher implements the static binary patch engine: it locates the
// byte patterns a client build embeds for its connection endpoints and
// crypto keys, assembles a plan of byte-for-byte replacements, and applies
// that plan to a copy of the executable without ever changing its size.
package patcher

import (
	"github.com/dcrodman/wowpatch/internal/trinity"
)

// ID names one logical patch target. Each target may be located through
// several historical byte patterns, tried in order.
type ID string

const (
	PatternPortal     ID = "portal"
	PatternRSAModulus ID = "rsa-modulus"
	PatternEd25519Key ID = "ed25519-key"
	PatternVersionURL ID = "version-url"
	PatternCDNsURL    ID = "cdns-url"
)

// Candidate is one concrete byte sequence that can locate a patch target.
// For key patterns the candidate is an anchor: the key region starts
// KeyDisplacement bytes after the anchor's first byte.
type Candidate struct {
	Name            string
	Bytes           []byte
	KeyDisplacement int
}

// Pattern is the full search definition for one patch target. Candidates are
// ordered from newest to oldest client builds; the first one with a hit in a
// data section wins. KeyLength is nonzero for key anchors and gives the size
// of the region replaced.
type Pattern struct {
	ID         ID
	Required   bool
	KeyLength  int
	Candidates []Candidate
}

// unifiedCandidate names the version-URL variant whose endpoint placeholder
// covers both the versions and cdns lookups. When it matches, the separate
// CDNs patch is redundant and skipped.
const unifiedCandidate = "v3-unified"

// The pattern tables below are data, not logic: supporting a new client
// build means appending a candidate, not touching the engine.
var (
	// portalPattern is the realm-list host suffix the client appends to the
	// configured portal. Zeroing it makes the client use the portal address
	// from its config file verbatim.
	portalPattern = Pattern{
		ID:       PatternPortal,
		Required: true,
		Candidates: []Candidate{
			{Name: "battle.net-host", Bytes: []byte(".actual.battle.net")},
		},
	}

	// rsaModulusPattern anchors the 256-byte ConnectTo RSA modulus. Older
	// builds reference the modulus directly (the anchor is its leading
	// bytes); newer ones reach it via signature-check or crypto-init call
	// sites that keep the key a fixed distance past the anchor.
	rsaModulusPattern = Pattern{
		ID:        PatternRSAModulus,
		Required:  true,
		KeyLength: trinity.RSAModulusSize,
		Candidates: []Candidate{
			{
				Name:  "connect-to",
				Bytes: []byte{0x91, 0xD5, 0x9B, 0xB7, 0xD4, 0xE1, 0x83, 0xA5},
			},
			{
				Name:            "signature",
				Bytes:           []byte{0xD2, 0x01, 0xE1, 0xF3, 0x3C, 0x7F, 0x8A, 0x9B},
				KeyDisplacement: 16,
			},
			{
				Name:            "crypto",
				Bytes:           []byte{0x0B, 0x9F, 0x03, 0x9F, 0xA2, 0x29, 0x14, 0x7D},
				KeyDisplacement: 24,
			},
		},
	}

	// ed25519Pattern anchors the 32-byte Ed25519 public key used by modern
	// authentication. Optional: not every supported build embeds one.
	ed25519Pattern = Pattern{
		ID:        PatternEd25519Key,
		KeyLength: trinity.Ed25519KeySize,
		Candidates: []Candidate{
			{Name: "crypto-ed", Bytes: []byte{0x15, 0xD6, 0x18, 0xBD, 0x7D, 0xB5, 0x77, 0xBD}},
		},
	}

	// versionURLPattern matches the NGDP versions endpoint. The v3 variant
	// parameterizes the endpoint name and subsumes the cdns URL.
	versionURLPattern = Pattern{
		ID: PatternVersionURL,
		Candidates: []Candidate{
			{Name: "v1", Bytes: []byte("http://%s.patch.battle.net:1119/%s/versions")},
			{Name: "v2", Bytes: []byte("http://%s.version.battle.net:1119/%s/versions")},
			{Name: unifiedCandidate, Bytes: []byte("http://%s.patch.battle.net:1119/%s/%s")},
		},
	}

	// cdnsURLPattern matches the standalone NGDP cdns endpoint.
	cdnsURLPattern = Pattern{
		ID: PatternCDNsURL,
		Candidates: []Candidate{
			{Name: "v1", Bytes: []byte("http://%s.patch.battle.net:1119/%s/cdns")},
		},
	}
)
