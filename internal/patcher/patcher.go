package patcher

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/dcrodman/wowpatch/internal/binfmt"
	"github.com/dcrodman/wowpatch/internal/client"
	"github.com/dcrodman/wowpatch/internal/trinity"
)

// Input files larger than any shipped client, or too small to hold a header,
// are rejected before parsing.
const (
	maxInputSize = 1 << 30 // 1 GiB
	minInputSize = 1024
)

// Patcher is one full patch session over a single client executable. The
// zero value is not usable; populate the fields and call Run.
type Patcher struct {
	// InputPath is the client executable to patch.
	InputPath string
	// OutputPath receives the patched copy. Empty derives "<input>-patched"
	// (keeping the .exe suffix in place for Windows clients).
	OutputPath string
	// Keys are the replacement RSA/Ed25519 keys written into the client.
	Keys trinity.KeyConfig
	// VersionURL and CDNsURL override the default Arctium CDN endpoints.
	VersionURL string
	CDNsURL    string
	// DryRun assembles and reports the plan without touching the filesystem.
	DryRun bool
	// StripCodeSign removes the Mach-O code signature from the output so
	// macOS will launch the modified binary. Ignored for PE and ELF.
	StripCodeSign bool

	Logger *logrus.Logger
}

// Run executes the session: load, analyze, plan, and (unless dry-run) write
// the patched executable. The returned plan is always populated on success
// so the caller can render a report.
func (p *Patcher) Run() (*Plan, error) {
	logger := p.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(ioutil.Discard)
	}

	if err := p.Keys.Validate(); err != nil {
		return nil, err
	}

	data, err := p.readInput()
	if err != nil {
		return nil, err
	}

	index, err := binfmt.Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Infof("%s binary, %d sections, %d bytes", index.Format, len(index.Sections), len(data))

	clientType := client.Detect(p.InputPath)
	build := 0
	if version, ok := client.ExtractVersion(data); ok {
		build = version.Build
		logger.Infof("detected %s client version %s", clientType, version)
	} else {
		logger.Infof("detected %s client, no embedded version found", clientType)
	}

	plan, err := BuildPlan(data, index, Options{
		Keys:          p.Keys,
		VersionURL:    p.VersionURL,
		CDNsURL:       p.CDNsURL,
		Client:        clientType,
		Build:         build,
		StripCodeSign: p.StripCodeSign,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Debugf("assembled patch plan: %s", spew.Sdump(plan))

	for _, w := range plan.Warnings {
		logger.Warnf("skipping optional patch %s: %s", w.Pattern, w.Reason)
	}

	if p.DryRun {
		if plan.StripCodeSign {
			logger.Info("dry run: would remove the Mach-O code signature")
		}
		logger.Infof("dry run: %d patches planned, nothing written", len(plan.Entries))
		return plan, nil
	}

	patched, err := plan.Apply(data)
	if err != nil {
		return nil, err
	}

	if p.StripCodeSign && index.Format == binfmt.FormatMachO {
		stripped, err := binfmt.StripCodeSignature(patched)
		if err != nil {
			return nil, fmt.Errorf("stripping code signature: %w", err)
		}
		if stripped {
			logger.Info("removed Mach-O code signature")
		} else {
			logger.Debug("binary carries no code signature")
		}
	}

	outputPath := p.outputPath()
	if err := WriteFile(outputPath, patched); err != nil {
		return nil, err
	}
	logger.Infof("applied %d patches, wrote %s", len(plan.Entries), outputPath)
	return plan, nil
}

func (p *Patcher) readInput() ([]byte, error) {
	info, err := os.Stat(p.InputPath)
	if err != nil {
		return nil, fmt.Errorf("accessing client executable: %w", err)
	}
	if info.Size() < minInputSize {
		return nil, fmt.Errorf("%s is %d bytes, too small to be a client executable", p.InputPath, info.Size())
	}
	if info.Size() > maxInputSize {
		return nil, fmt.Errorf("%s is %d bytes, larger than any supported client", p.InputPath, info.Size())
	}

	data, err := ioutil.ReadFile(p.InputPath)
	if err != nil {
		return nil, fmt.Errorf("reading client executable: %w", err)
	}
	return data, nil
}

func (p *Patcher) outputPath() string {
	if p.OutputPath != "" {
		return p.OutputPath
	}
	if strings.HasSuffix(p.InputPath, ".exe") {
		return strings.TrimSuffix(p.InputPath, ".exe") + "-patched.exe"
	}
	return p.InputPath + "-patched"
}
