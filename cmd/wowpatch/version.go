package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var DetailedFlag bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints version information",
	Run:   VersionCommand,
}

func init() {
	versionCmd.Flags().BoolVarP(&DetailedFlag, "detailed", "d", false, "Include build environment details")
}

func VersionCommand(cmd *cobra.Command, args []string) {
	if !DetailedFlag {
		fmt.Printf("wowpatch %s (%s) built on %s\n", version, commit, date)
		return
	}

	fmt.Printf("wowpatch - World of Warcraft Binary Patcher\n"+
		"Version:    %s\n"+
		"Git Commit: %s\n"+
		"Build Date: %s\n"+
		"Go Version: %s\n"+
		"OS/Arch:    %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
