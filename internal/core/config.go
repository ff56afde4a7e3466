package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of
// wowpatch's components. Every field can also be set through a flag or an
// environment variable; flags win over the file.
type Config struct {
	// Full path to file to which logs will be written. Blank will write to stdout.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	Patcher struct {
		// Path to the patched executable. Blank derives "<input>-patched".
		OutputPath string `mapstructure:"output_path"`
		// Remove the Mach-O code signature from the output. Unsigned patched
		// binaries fail to launch on macOS with a stale signature in place.
		StripCodeSign bool `mapstructure:"strip_codesign"`
		// Override for the versions endpoint URL written into the client.
		VersionURL string `mapstructure:"version_url"`
		// Override for the cdns endpoint URL written into the client.
		CDNsURL string `mapstructure:"cdns_url"`
		// Path to a 256-byte RSA modulus file. Blank uses TrinityCore's key.
		RSAKeyFile string `mapstructure:"rsa_key_file"`
		// Path to a 32-byte Ed25519 public key file. Blank uses TrinityCore's key.
		Ed25519KeyFile string `mapstructure:"ed25519_key_file"`
	} `mapstructure:"patcher"`
}

const envVarPrefix = "WOWPATCH"

// LoadConfig initializes Viper with the contents of the config file under
// configPath. The file is optional; defaults apply when it is absent.
func LoadConfig(configPath string) (*Config, error) {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("patcher.strip_codesign", true)

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, patcher.cdns_url can be set using:
	// <envVarPrefix>_PATCHER_CDNS_URL
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", k, envVarPrefix+"_"+envVar, err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return config, nil
}
