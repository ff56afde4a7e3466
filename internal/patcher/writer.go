package patcher

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
)

// Apply materializes the plan against a fresh copy of the input buffer and
// returns the patched bytes. The input is never modified and the output is
// always exactly the same length.
func (p *Plan) Apply(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)

	for _, e := range p.Entries {
		if len(e.Replacement) != e.Length {
			return nil, fmt.Errorf("%w: entry %s has %d replacement bytes for a %d byte region",
				ErrReplacementSizeMismatch, e.Pattern, len(e.Replacement), e.Length)
		}
		end := e.Offset + uint64(e.Length)
		if end > uint64(len(out)) {
			return nil, fmt.Errorf("entry %s at 0x%x overruns the %d byte buffer", e.Pattern, e.Offset, len(out))
		}
		copy(out[e.Offset:end], e.Replacement)
	}
	return out, nil
}

// WriteFile persists the patched bytes atomically: the data is written to a
// temp file in the destination directory and renamed into place, so a failed
// or interrupted write never leaves a half-written executable at the
// destination path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := ioutil.TempFile(dir, ".wowpatch-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	// The output is an executable; 0755 matches what the installer ships.
	if runtime.GOOS != "windows" {
		if err = os.Chmod(tmpPath, 0755); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("setting permissions on %s: %w", tmpPath, err)
		}
	}

	if err = os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
