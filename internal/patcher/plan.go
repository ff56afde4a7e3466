package patcher

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/dcrodman/wowpatch/internal/binfmt"
	"github.com/dcrodman/wowpatch/internal/client"
	"github.com/dcrodman/wowpatch/internal/trinity"
)

var (
	// ErrPatternNotFound indicates a mandatory pattern is absent from the
	// binary. Nothing is written when this happens; the build is either
	// unsupported or already patched.
	ErrPatternNotFound = errors.New("mandatory pattern not found")
	// ErrReplacementSizeMismatch indicates a replacement would change the
	// length of the region it overwrites. The engine never changes the file
	// size, so this always aborts the run.
	ErrReplacementSizeMismatch = errors.New("replacement size mismatch")
)

// Entry is one byte-for-byte replacement in a plan. Replacement is always
// exactly Length bytes.
type Entry struct {
	Pattern     ID
	Candidate   string
	Offset      uint64
	Length      int
	Replacement []byte
	Section     string
	Required    bool
}

// Warning records an optional pattern that was not found. The run proceeds
// without it.
type Warning struct {
	Pattern ID
	Reason  string
}

// Plan is the complete, side-effect-free description of every replacement a
// run will perform. It is computed purely from reads of the input buffer and
// applied (or printed, in dry-run mode) afterwards.
type Plan struct {
	Format    binfmt.Format
	InputSize int
	Client    client.Type
	Build     int
	Entries   []Entry
	Warnings  []Warning
	// StripCodeSign records that the run will also remove the Mach-O code
	// signature, so dry runs list the step alongside the byte patches.
	StripCodeSign bool
}

// Options carries the caller-controlled inputs to plan assembly.
type Options struct {
	Keys trinity.KeyConfig
	// VersionURL and CDNsURL override the built-in Arctium CDN defaults
	// when non-empty. They must fit the byte slot of whichever pattern
	// variant matches.
	VersionURL string
	CDNsURL    string
	Client     client.Type
	// Build pins the client build into default URLs when known (0 if not).
	Build int
	// StripCodeSign plans the Mach-O signature removal step when the input
	// actually carries a signature. Ignored for PE and ELF.
	StripCodeSign bool
}

// BuildPlan runs every pattern search against the binary and assembles the
// replacement plan. Mandatory patterns that are missing fail the whole run;
// optional ones degrade to warnings.
func BuildPlan(data []byte, index *binfmt.Index, opts Options, logger *logrus.Logger) (*Plan, error) {
	// Reject bad key material before any scanning happens.
	if err := opts.Keys.Validate(); err != nil {
		return nil, err
	}

	scanner := NewScanner(data, index, logger)
	plan := &Plan{
		Format:    index.Format,
		InputSize: len(data),
		Client:    opts.Client,
		Build:     opts.Build,
	}

	if opts.StripCodeSign && index.Format == binfmt.FormatMachO {
		signed, err := binfmt.HasCodeSignature(data)
		if err != nil {
			return nil, err
		}
		plan.StripCodeSign = signed
	}

	// Portal host suffix, zeroed so the client honors its config file.
	match := scanner.Find(portalPattern)
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrPatternNotFound, portalPattern.ID)
	}
	if err := plan.add(portalPattern, match.Candidate.Name, match.Offset,
		make([]byte, len(match.Candidate.Bytes)), match.Section.Name); err != nil {
		return nil, err
	}

	// RSA modulus via whichever anchor this build carries.
	region, err := scanner.LocateKey(rsaModulusPattern)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, fmt.Errorf("%w: %s (tried connect-to, signature, crypto anchors)",
			ErrPatternNotFound, rsaModulusPattern.ID)
	}
	if err := plan.add(rsaModulusPattern, region.Candidate.Name, region.KeyOffset,
		opts.Keys.RSAModulus, region.Section.Name); err != nil {
		return nil, err
	}

	// Ed25519 key, only for client flavors that embed one.
	if opts.Client.UsesEd25519() {
		region, err = scanner.LocateKey(ed25519Pattern)
		if err != nil {
			return nil, err
		}
		if region == nil {
			plan.warn(ed25519Pattern.ID, "pattern not found, client may predate Ed25519 auth")
		} else if err := plan.add(ed25519Pattern, region.Candidate.Name, region.KeyOffset,
			opts.Keys.Ed25519PublicKey, region.Section.Name); err != nil {
			return nil, err
		}
	} else {
		logger.Infof("%s clients authenticate over RSA only, skipping Ed25519 patch", opts.Client)
	}

	// Version URL, trying the historical variants in order. A v3 (unified)
	// match covers the cdns endpoint too, so the separate CDNs patch is
	// skipped outright rather than reported missing.
	unified := false
	if match = scanner.Find(versionURLPattern); match == nil {
		plan.warn(versionURLPattern.ID, "pattern not found (tried v1, v2, v3 variants)")
	} else {
		unified = match.Candidate.Name == unifiedCandidate
		url := opts.VersionURL
		if url == "" {
			url = defaultVersionURL(unified, opts.Build, len(match.Candidate.Bytes))
		}
		replacement, err := trinity.URLReplacement(url, len(match.Candidate.Bytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReplacementSizeMismatch, err)
		}
		if err := plan.add(versionURLPattern, match.Candidate.Name, match.Offset,
			replacement, match.Section.Name); err != nil {
			return nil, err
		}
	}

	if unified {
		logger.Debug("unified version URL variant handles cdns, skipping separate CDNs patch")
	} else if match = scanner.Find(cdnsURLPattern); match == nil {
		plan.warn(cdnsURLPattern.ID, "pattern not found, client may be a custom build")
	} else {
		url := opts.CDNsURL
		if url == "" {
			url = trinity.DefaultCDNsURL
		}
		replacement, err := trinity.URLReplacement(url, len(match.Candidate.Bytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReplacementSizeMismatch, err)
		}
		if err := plan.add(cdnsURLPattern, match.Candidate.Name, match.Offset,
			replacement, match.Section.Name); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// defaultVersionURL picks the Arctium CDN default for the matched variant,
// dropping the build pin if it would overflow the slot.
func defaultVersionURL(unified bool, build, slot int) string {
	url := trinity.VersionsURL(build)
	if unified {
		url = trinity.UnifiedURL(build)
	}
	if len(url) > slot && build > 0 {
		if unified {
			return trinity.UnifiedURL(0)
		}
		return trinity.VersionsURL(0)
	}
	return url
}

// add appends an entry after checking the size-preservation invariant. The
// length is derived from the replacement, so the check pins the replacement
// to the region the scanner measured.
func (p *Plan) add(pattern Pattern, candidate string, offset uint64, replacement []byte, section string) error {
	length := len(replacement)
	expected := pattern.KeyLength
	if expected == 0 {
		// Non-key patterns replace exactly the matched bytes.
		for _, c := range pattern.Candidates {
			if c.Name == candidate {
				expected = len(c.Bytes)
			}
		}
	}
	if length != expected {
		return fmt.Errorf("%w: %s replacement is %d bytes, region is %d",
			ErrReplacementSizeMismatch, pattern.ID, length, expected)
	}

	p.Entries = append(p.Entries, Entry{
		Pattern:     pattern.ID,
		Candidate:   candidate,
		Offset:      offset,
		Length:      length,
		Replacement: replacement,
		Section:     section,
		Required:    pattern.Required,
	})
	return nil
}

func (p *Plan) warn(id ID, reason string) {
	p.Warnings = append(p.Warnings, Warning{Pattern: id, Reason: reason})
}

// Report is the machine-readable rendering of a plan, handed to the
// presentation layer. It marshals cleanly to YAML.
type Report struct {
	Format        string        `yaml:"format"`
	Client        string        `yaml:"client"`
	Build         int           `yaml:"build,omitempty"`
	Size          int           `yaml:"size"`
	StripCodeSign bool          `yaml:"strip_code_signature,omitempty"`
	Patches       []PatchReport `yaml:"patches"`
}

// PatchReport is one row of a plan report.
type PatchReport struct {
	Pattern   string `yaml:"pattern"`
	Candidate string `yaml:"candidate,omitempty"`
	Found     bool   `yaml:"found"`
	Offset    string `yaml:"offset,omitempty"`
	Length    int    `yaml:"length,omitempty"`
	Section   string `yaml:"section,omitempty"`
	Preview   string `yaml:"preview,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
}

// Report renders the plan for display or serialization.
func (p *Plan) Report() *Report {
	r := &Report{
		Format:        p.Format.String(),
		Client:        p.Client.String(),
		Build:         p.Build,
		Size:          p.InputSize,
		StripCodeSign: p.StripCodeSign,
	}
	for _, e := range p.Entries {
		preview := e.Replacement
		if len(preview) > 8 {
			preview = preview[:8]
		}
		r.Patches = append(r.Patches, PatchReport{
			Pattern:   string(e.Pattern),
			Candidate: e.Candidate,
			Found:     true,
			Offset:    fmt.Sprintf("0x%x", e.Offset),
			Length:    e.Length,
			Section:   e.Section,
			Preview:   hex.EncodeToString(preview),
		})
	}
	for _, w := range p.Warnings {
		r.Patches = append(r.Patches, PatchReport{
			Pattern: string(w.Pattern),
			Found:   false,
			Reason:  w.Reason,
		})
	}
	return r
}

// YAML serializes the report.
func (r *Report) YAML() (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling plan report: %w", err)
	}
	return string(out), nil
}
