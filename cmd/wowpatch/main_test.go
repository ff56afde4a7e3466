package main

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/dcrodman/wowpatch/internal/core"
)

func TestStripCodeSignSetting(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		flags := pflag.NewFlagSet("wowpatch", pflag.ContinueOnError)
		flags.BoolVarP(&StripCodeSignFlag, "strip-binary-codesign", "s", true, "")
		return flags
	}

	tests := []struct {
		name      string
		configVal bool
		setFlag   string
		want      bool
	}{
		{
			name:      "config disables when flag untouched",
			configVal: false,
			want:      false,
		},
		{
			name:      "config enables when flag untouched",
			configVal: true,
			want:      true,
		},
		{
			name:      "explicit flag overrides config off",
			configVal: false,
			setFlag:   "true",
			want:      true,
		},
		{
			name:      "explicit flag overrides config on",
			configVal: true,
			setFlag:   "false",
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &core.Config{}
			cfg.Patcher.StripCodeSign = tt.configVal

			flags := newFlags()
			if tt.setFlag != "" {
				if err := flags.Set("strip-binary-codesign", tt.setFlag); err != nil {
					t.Fatal(err)
				}
			}

			if got := stripCodeSignSetting(flags, cfg); got != tt.want {
				t.Errorf("stripCodeSignSetting() = %v, want %v", got, tt.want)
			}
		})
	}
}
