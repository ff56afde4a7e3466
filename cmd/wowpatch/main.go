// The wowpatch command rewrites a World of Warcraft client executable so it
// connects to a TrinityCore private server instead of Blizzard's: the portal
// host suffix is cleared, the embedded RSA/Ed25519 keys are replaced, and
// the NGDP metadata URLs are pointed at a community CDN.
//
// For CLI usage instructions:
//
//	wowpatch --help
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dcrodman/wowpatch/internal/core"
	"github.com/dcrodman/wowpatch/internal/patcher"
	"github.com/dcrodman/wowpatch/internal/trinity"
)

var (
	ConfigFlag         string
	InputFlag          string
	OutputFlag         string
	DryRunFlag         bool
	StripCodeSignFlag  bool
	VerboseFlag        bool
	VersionURLFlag     string
	CDNsURLFlag        string
	RSAKeyFileFlag     string
	Ed25519KeyFileFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wowpatch",
		Short: "Patches WoW client executables to connect to TrinityCore servers",
		RunE:  PatchCommand,
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", "./", "Path to the directory containing the config file")
	rootCmd.Flags().StringVarP(&InputFlag, "warcraft-exe", "l", "", "Path to the WoW client executable")
	rootCmd.Flags().StringVarP(&OutputFlag, "output-file", "o", "", "Path for the patched executable")
	rootCmd.Flags().BoolVarP(&DryRunFlag, "dry-run", "n", false, "Report the patch plan without writing any files")
	rootCmd.Flags().BoolVarP(&StripCodeSignFlag, "strip-binary-codesign", "s", true, "Remove the macOS code signature from the output")
	rootCmd.Flags().BoolVarP(&VerboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&VersionURLFlag, "version-url", "", "Custom replacement for the versions endpoint URL")
	rootCmd.Flags().StringVar(&CDNsURLFlag, "cdns-url", "", "Custom replacement for the cdns endpoint URL")
	rootCmd.Flags().StringVar(&RSAKeyFileFlag, "rsa-key-file", "", "File containing a 256-byte replacement RSA modulus")
	rootCmd.Flags().StringVar(&Ed25519KeyFileFlag, "ed25519-key-file", "", "File containing a 32-byte replacement Ed25519 public key")

	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func PatchCommand(cmd *cobra.Command, args []string) error {
	if InputFlag == "" && len(args) > 0 {
		InputFlag = args[0]
	}
	if InputFlag == "" {
		return fmt.Errorf("no WoW executable specified; use the -l flag to specify the path")
	}

	cfg, err := core.LoadConfig(ConfigFlag)
	if err != nil {
		return err
	}
	if VerboseFlag {
		cfg.LogLevel = "debug"
	}

	logger, err := core.NewLogger(cfg)
	if err != nil {
		return err
	}

	keys, err := loadKeys(cfg)
	if err != nil {
		return err
	}

	p := &patcher.Patcher{
		InputPath:     InputFlag,
		OutputPath:    firstNonEmpty(OutputFlag, cfg.Patcher.OutputPath),
		Keys:          keys,
		VersionURL:    firstNonEmpty(VersionURLFlag, cfg.Patcher.VersionURL),
		CDNsURL:       firstNonEmpty(CDNsURLFlag, cfg.Patcher.CDNsURL),
		DryRun:        DryRunFlag,
		StripCodeSign: stripCodeSignSetting(cmd.Flags(), cfg),
		Logger:        logger,
	}

	plan, err := p.Run()
	if err != nil {
		logger.Error(err)
		return err
	}

	if DryRunFlag {
		report, err := plan.Report().YAML()
		if err != nil {
			return err
		}
		fmt.Print(report)
		fmt.Println("no changes were made; remove --dry-run to apply patches")
	}
	return nil
}

// loadKeys assembles the replacement keys from the configured key files,
// falling back to the TrinityCore defaults for whichever is unset.
func loadKeys(cfg *core.Config) (trinity.KeyConfig, error) {
	keys := trinity.TrinityCore()

	rsaFile := firstNonEmpty(RSAKeyFileFlag, cfg.Patcher.RSAKeyFile)
	if rsaFile != "" {
		rsa, err := trinity.KeyFromFile(rsaFile, trinity.RSAModulusSize)
		if err != nil {
			return trinity.KeyConfig{}, err
		}
		keys.RSAModulus = rsa
	}

	edFile := firstNonEmpty(Ed25519KeyFileFlag, cfg.Patcher.Ed25519KeyFile)
	if edFile != "" {
		ed, err := trinity.KeyFromFile(edFile, trinity.Ed25519KeySize)
		if err != nil {
			return trinity.KeyConfig{}, err
		}
		keys.Ed25519PublicKey = ed
	}

	return keys, keys.Validate()
}

// stripCodeSignSetting resolves whether to strip the Mach-O signature. The
// flag only wins when the user actually set it; otherwise its default would
// always shadow a strip_codesign setting from the config file.
func stripCodeSignSetting(flags *pflag.FlagSet, cfg *core.Config) bool {
	if flags.Changed("strip-binary-codesign") {
		return StripCodeSignFlag
	}
	return cfg.Patcher.StripCodeSign
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
