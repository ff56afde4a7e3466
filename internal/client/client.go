// Package client identifies which flavor of the game client a given
// executable is, since the different release channels embed their crypto
// material differently.
package client

import (
	"path/filepath"
	"strings"
)

// Type is the release channel of a client executable.
type Type int

const (
	Unknown Type = iota
	Retail
	Classic
	ClassicEra
)

func (t Type) String() string {
	switch t {
	case Retail:
		return "Retail"
	case Classic:
		return "Classic"
	case ClassicEra:
		return "Classic Era"
	default:
		return "Unknown"
	}
}

// UsesEd25519 reports whether this client flavor embeds an Ed25519 public
// key. Classic Era builds still authenticate purely over the RSA path, so
// there is no Ed25519 slot to patch in them.
func (t Type) UsesEd25519() bool {
	return t != ClassicEra
}

// Detect infers the client type from the executable's path. Blizzard's
// installer puts each flavor under a marker directory (_retail_, _classic_,
// _classic_era_); the executable name is the fallback.
func Detect(exePath string) Type {
	lower := strings.ToLower(exePath)

	// _classic_era_ must be checked before _classic_ since the former
	// contains the latter as a substring.
	switch {
	case strings.Contains(lower, "_retail_"):
		return Retail
	case strings.Contains(lower, "_classic_era_"):
		return ClassicEra
	case strings.Contains(lower, "_classic_"):
		return Classic
	}

	filename := strings.ToLower(filepath.Base(exePath))
	switch {
	case strings.Contains(filename, "wowclassic"):
		return Classic
	case filename == "wow.exe" || filename == "world of warcraft":
		return Retail
	}

	return Unknown
}
