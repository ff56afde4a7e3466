// Package trinity holds the TrinityCore-compatible replacement values that
// get written into patched clients: the server's RSA modulus and Ed25519
// public key, and the Arctium CDN URLs that stand in for Blizzard's patch
// service endpoints.
package trinity

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"strings"
)

const (
	// RSAModulusSize is the byte length of the client's embedded RSA modulus.
	RSAModulusSize = 256
	// Ed25519KeySize is the byte length of the client's embedded Ed25519
	// public key.
	Ed25519KeySize = 32
)

// ErrInvalidKeyMaterial indicates replacement key bytes failed validation
// (wrong size, all zero, or no entropy). Keys are checked before any pattern
// search runs so a bad key can never make it into an output file.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// DefaultRSAModulus is the modulus of TrinityCore's well-known ConnectTo RSA
// key pair, matching the private key distributed with the server.
var DefaultRSAModulus = []byte{
	0x5F, 0xD6, 0x80, 0x0B, 0xA7, 0xFF, 0x01, 0x40, 0xC7, 0xBC, 0x8E, 0xF5, 0x6B, 0x27, 0xB0, 0xBF,
	0xF0, 0x1D, 0x1B, 0xFE, 0xDD, 0x0B, 0x1F, 0x3D, 0xB6, 0x6F, 0x1A, 0x48, 0x0D, 0xFB, 0x51, 0x08,
	0x65, 0x58, 0x4F, 0xDB, 0x5C, 0x6E, 0xCF, 0x64, 0xCB, 0xC1, 0x6B, 0x2E, 0xB8, 0x0F, 0x5D, 0x08,
	0x5D, 0x89, 0x06, 0xA9, 0x77, 0x8B, 0x9E, 0xAA, 0x04, 0xB0, 0x83, 0x10, 0xE2, 0x15, 0x4D, 0x08,
	0x77, 0xD4, 0x7A, 0x0E, 0x5A, 0xB0, 0xBB, 0x00, 0x61, 0xD7, 0xA6, 0x75, 0xDF, 0x06, 0x64, 0x88,
	0xBB, 0xB9, 0xCA, 0xB0, 0x18, 0x8B, 0x54, 0x13, 0xE2, 0xCB, 0x33, 0xDF, 0x17, 0xD8, 0xDA, 0xA9,
	0xA5, 0x60, 0xA3, 0x1F, 0x4E, 0x27, 0x05, 0x98, 0x6F, 0xAA, 0xEE, 0x14, 0x3B, 0xF3, 0x97, 0xA8,
	0x12, 0x02, 0x94, 0x0D, 0x84, 0xDC, 0x0E, 0xF1, 0x76, 0x23, 0x95, 0x36, 0x13, 0xF9, 0xA9, 0xC5,
	0x48, 0xDB, 0xDA, 0x86, 0xBE, 0x29, 0x22, 0x54, 0x44, 0x9D, 0x9F, 0x80, 0x7B, 0x07, 0x80, 0x30,
	0xEA, 0xD2, 0x83, 0xCC, 0xCE, 0x37, 0xD1, 0xD1, 0xCF, 0x85, 0xBE, 0x91, 0x25, 0xCE, 0xC0, 0xCC,
	0x55, 0xC8, 0xC0, 0xFB, 0x38, 0xC5, 0x49, 0x03, 0x6A, 0x02, 0xA9, 0x9F, 0x9F, 0x86, 0xFB, 0xC7,
	0xCB, 0xC6, 0xA5, 0x82, 0xA2, 0x30, 0xC2, 0xAC, 0xE6, 0x98, 0xDA, 0x83, 0x64, 0x43, 0x7F, 0x0D,
	0x13, 0x18, 0xEB, 0x90, 0x53, 0x5B, 0x37, 0x6B, 0xE6, 0x0D, 0x80, 0x1E, 0xEF, 0xED, 0xC7, 0xB8,
	0x68, 0x9B, 0x4C, 0x09, 0x7B, 0x60, 0xB2, 0x57, 0xD8, 0x59, 0x8D, 0x7F, 0xEA, 0xCD, 0xEB, 0xC4,
	0x60, 0x9F, 0x45, 0x7A, 0xA9, 0x26, 0x8A, 0x2F, 0x85, 0x0C, 0xF2, 0x19, 0xC6, 0x53, 0x92, 0xF7,
	0xF0, 0xB8, 0x32, 0xCB, 0x5B, 0x66, 0xCE, 0x51, 0x54, 0xB4, 0xC3, 0xD3, 0xD4, 0xDC, 0xB3, 0xEE,
}

// DefaultEd25519PublicKey is the public half of TrinityCore's Ed25519
// signing key used by modern client builds.
var DefaultEd25519PublicKey = []byte{
	0x02, 0x59, 0x6F, 0x0D, 0x0C, 0x06, 0x1A, 0x8B, 0x30, 0x74, 0x59, 0x88, 0xFD, 0x72, 0xC5, 0x9E,
	0x29, 0xEC, 0x36, 0x7F, 0xB0, 0xF3, 0x41, 0xF2, 0x8E, 0x0F, 0x08, 0xD0, 0x37, 0xBA, 0xFC, 0x69,
}

// KeyConfig is the pair of replacement keys written into the client.
type KeyConfig struct {
	RSAModulus       []byte
	Ed25519PublicKey []byte
}

// TrinityCore returns a KeyConfig holding the default TrinityCore keys.
func TrinityCore() KeyConfig {
	return KeyConfig{
		RSAModulus:       DefaultRSAModulus,
		Ed25519PublicKey: DefaultEd25519PublicKey,
	}
}

// Custom builds a validated KeyConfig from caller-supplied key bytes.
func Custom(rsaModulus, ed25519PublicKey []byte) (KeyConfig, error) {
	cfg := KeyConfig{RSAModulus: rsaModulus, Ed25519PublicKey: ed25519PublicKey}
	if err := cfg.Validate(); err != nil {
		return KeyConfig{}, err
	}
	return cfg, nil
}

// Validate enforces the entropy floor on both keys: exact size, not all
// zeros, and not a single repeated byte.
func (c KeyConfig) Validate() error {
	if err := validateKey("RSA modulus", c.RSAModulus, RSAModulusSize); err != nil {
		return err
	}
	return validateKey("Ed25519 public key", c.Ed25519PublicKey, Ed25519KeySize)
}

// IsTrinityCore reports whether the config holds the default keys.
func (c KeyConfig) IsTrinityCore() bool {
	return bytes.Equal(c.RSAModulus, DefaultRSAModulus) &&
		bytes.Equal(c.Ed25519PublicKey, DefaultEd25519PublicKey)
}

func validateKey(name string, key []byte, size int) error {
	if len(key) != size {
		return fmt.Errorf("%w: %s must be exactly %d bytes, got %d", ErrInvalidKeyMaterial, name, size, len(key))
	}

	constant := true
	for _, b := range key {
		if b != key[0] {
			constant = false
			break
		}
	}
	if constant {
		if key[0] == 0 {
			return fmt.Errorf("%w: %s is all zeros", ErrInvalidKeyMaterial, name)
		}
		return fmt.Errorf("%w: %s is a single repeated byte", ErrInvalidKeyMaterial, name)
	}
	return nil
}

// KeyFromFile reads raw key bytes from a binary file and checks the length.
func KeyFromFile(path string, size int) ([]byte, error) {
	key, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file %s: %w", path, err)
	}
	if len(key) != size {
		return nil, fmt.Errorf("%w: key file %s must contain exactly %d bytes, got %d",
			ErrInvalidKeyMaterial, path, size, len(key))
	}
	return key, nil
}

// KeyFromHex decodes a hex-encoded key, ignoring whitespace and separators.
func KeyFromHex(hexStr string, size int) ([]byte, error) {
	var cleaned strings.Builder
	for _, r := range hexStr {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
			cleaned.WriteRune(r)
		}
	}

	if cleaned.Len() != size*2 {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d",
			ErrInvalidKeyMaterial, size*2, cleaned.Len())
	}

	key, err := hex.DecodeString(cleaned.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return key, nil
}
