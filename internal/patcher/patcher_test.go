package patcher

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcrodman/wowpatch/internal/binfmt"
	"github.com/dcrodman/wowpatch/internal/trinity"
)

// writeTestClient drops a fully patchable synthetic client into dir and
// returns its path. The image embeds a version string so the default URLs
// get a build pin.
func writeTestClient(t *testing.T, dir, name string) string {
	t.Helper()

	image := buildImage(t, fullLayout())
	copy(image[0xa80:], "10.2.5.53584")

	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, image, 0644); err != nil {
		t.Fatalf("writing test client: %v", err)
	}
	return path
}

func TestPatcherRun(t *testing.T) {
	dir := t.TempDir()
	input := writeTestClient(t, dir, "Wow.exe")

	p := &Patcher{
		InputPath: input,
		Keys:      trinity.TrinityCore(),
		Logger:    testLogger(),
	}
	plan, err := p.Run()
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if plan.Build != 53584 {
		t.Errorf("plan build = %d, want 53584", plan.Build)
	}

	output := filepath.Join(dir, "Wow-patched.exe")
	patched, err := ioutil.ReadFile(output)
	if err != nil {
		t.Fatalf("reading patched output: %v", err)
	}

	original, err := ioutil.ReadFile(input)
	if err != nil {
		t.Fatalf("re-reading input: %v", err)
	}
	if len(patched) != len(original) {
		t.Fatalf("patched output is %d bytes, input was %d", len(patched), len(original))
	}

	// Portal suffix zeroed.
	if !bytes.Equal(patched[rdataBase:rdataBase+18], make([]byte, 18)) {
		t.Error("portal host suffix not zeroed in output")
	}
	// RSA modulus swapped for the TrinityCore key.
	if !bytes.Equal(patched[rdataBase+rsaRel:rdataBase+rsaRel+256], trinity.DefaultRSAModulus) {
		t.Error("RSA modulus not replaced in output")
	}
	// Ed25519 key swapped.
	if !bytes.Equal(patched[rdataBase+edRel:rdataBase+edRel+32], trinity.DefaultEd25519PublicKey) {
		t.Error("Ed25519 key not replaced in output")
	}
	// Version URL points at the CDN with the build pinned.
	if !bytes.HasPrefix(patched[rdataBase+versionRel:], []byte("http://ngdp.arctium.io/%s/%s/53584/versions")) {
		t.Errorf("version URL not rewritten: %q", patched[rdataBase+versionRel:rdataBase+versionRel+43])
	}

	// The input file is never modified.
	if !bytes.HasPrefix(original[rdataBase:], []byte(".actual.battle.net")) {
		t.Error("input file was modified in place")
	}

	// The output still parses as a PE with the same sections.
	idx, err := binfmt.Parse(patched)
	if err != nil {
		t.Fatalf("patched output no longer parses: %v", err)
	}
	if idx.Format != binfmt.FormatPE {
		t.Errorf("patched output format = %v, want PE", idx.Format)
	}
}

func TestPatcherDryRun(t *testing.T) {
	dir := t.TempDir()
	input := writeTestClient(t, dir, "Wow.exe")

	p := &Patcher{
		InputPath: input,
		Keys:      trinity.TrinityCore(),
		DryRun:    true,
		Logger:    testLogger(),
	}
	plan, err := p.Run()
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if len(plan.Entries) == 0 {
		t.Error("dry run produced an empty plan")
	}

	if _, err := os.Stat(filepath.Join(dir, "Wow-patched.exe")); !os.IsNotExist(err) {
		t.Error("dry run wrote an output file")
	}
}

func TestPatcherCustomOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := writeTestClient(t, dir, "Wow.exe")
	output := filepath.Join(dir, "custom-output.exe")

	p := &Patcher{
		InputPath:  input,
		OutputPath: output,
		Keys:       trinity.TrinityCore(),
		Logger:     testLogger(),
	}
	if _, err := p.Run(); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("custom output path not written: %v", err)
	}
}

func TestPatcherRejectsTinyInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Wow.exe")
	if err := ioutil.WriteFile(input, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}

	p := &Patcher{InputPath: input, Keys: trinity.TrinityCore(), Logger: testLogger()}
	if _, err := p.Run(); err == nil {
		t.Fatal("Run() accepted a 100 byte input")
	}
}

func TestPatcherRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	if err := ioutil.WriteFile(input, bytes.Repeat([]byte{0x41}, 2048), 0644); err != nil {
		t.Fatal(err)
	}

	p := &Patcher{InputPath: input, Keys: trinity.TrinityCore(), Logger: testLogger()}
	_, err := p.Run()
	if !errors.Is(err, binfmt.ErrUnrecognizedFormat) {
		t.Fatalf("Run() error = %v, want ErrUnrecognizedFormat", err)
	}
}

func TestPatcherUnpatchableWritesNothing(t *testing.T) {
	dir := t.TempDir()

	layout := fullLayout()
	layout.portal = false
	image := buildImage(t, layout)
	input := filepath.Join(dir, "Wow.exe")
	if err := ioutil.WriteFile(input, image, 0644); err != nil {
		t.Fatal(err)
	}

	p := &Patcher{InputPath: input, Keys: trinity.TrinityCore(), Logger: testLogger()}
	if _, err := p.Run(); !errors.Is(err, ErrPatternNotFound) {
		t.Fatalf("Run() error = %v, want ErrPatternNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Wow-patched.exe")); !os.IsNotExist(err) {
		t.Error("failed run left an output file behind")
	}
}

func TestPatcherOutputPathDerivation(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		out   string
		want  string
	}{
		{"explicit output wins", "Wow.exe", "/tmp/out.bin", "/tmp/out.bin"},
		{"exe suffix preserved", "Wow.exe", "", "Wow-patched.exe"},
		{"bare binary", "World of Warcraft", "", "World of Warcraft-patched"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Patcher{InputPath: tt.in, OutputPath: tt.out}
			if got := p.outputPath(); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
