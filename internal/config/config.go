// ABOUTME: Command line configuration for wavplay
// ABOUTME: Merges defaults, wavplay.yaml, WAVPLAY_* environment and flags via viper
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/wavplay/pkg/audio/output"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys shared by flags, environment and config file
const (
	KeyInput       = "input"
	KeyHeader      = "header"
	KeyListDevices = "list-devices"
	KeyDevice      = "device"
	KeyVolume      = "volume"
	KeyBackend     = "backend"
	KeyNoTUI       = "no-tui"
	KeyLogFile     = "log-file"
	KeyConfig      = "config"

	EnvPrefix = "WAVPLAY"
	FileName  = "wavplay"
)

// ErrInvalid marks a setting outside its allowed range
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved command line configuration
type Config struct {
	Input       string
	Header      bool
	ListDevices bool
	Device      string
	Volume      int
	Backend     string
	NoTUI       bool
	LogFile     string

	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string
}

// NeedsInput reports whether the selected mode reads a container file
func (c *Config) NeedsInput() bool {
	return !c.ListDevices
}

// Flags declares every setting on a new flag set
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP(KeyInput, "i", "", "path to a RIFF/WAVE file")
	fs.Bool(KeyHeader, false, "print the container header and chunk table, then exit")
	fs.Bool(KeyListDevices, false, "list audio devices, then exit")
	fs.String(KeyDevice, "", "output device name (default: system default output)")
	fs.Int(KeyVolume, 100, "initial volume 0-100")
	fs.String(KeyBackend, "malgo", "audio backend: "+strings.Join(output.Backends, "|"))
	fs.Bool(KeyNoTUI, false, "disable the terminal UI (streaming logs only)")
	fs.String(KeyLogFile, "wavplay.log", "log file path")
	fs.String(KeyConfig, "", "config file (default: ./wavplay.yaml or $HOME/.config/wavplay/wavplay.yaml)")
	return fs
}

// Load parses args and resolves the final configuration. Precedence, lowest
// first: defaults, config file, environment, flags given on the command line.
func Load(args []string) (*Config, error) {
	fs := Flags("wavplay")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs)
}

// FromFlags resolves configuration from an already parsed flag set
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Input:       v.GetString(KeyInput),
		Header:      v.GetBool(KeyHeader),
		ListDevices: v.GetBool(KeyListDevices),
		Device:      v.GetString(KeyDevice),
		Volume:      v.GetInt(KeyVolume),
		Backend:     strings.ToLower(v.GetString(KeyBackend)),
		NoTUI:       v.GetBool(KeyNoTUI),
		LogFile:     v.GetString(KeyLogFile),
		ConfigFile:  v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(FileName)
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/wavplay")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Validate checks ranges and required settings
func (c *Config) Validate() error {
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("%w: volume %d out of range 0-100", ErrInvalid, c.Volume)
	}

	known := false
	for _, b := range output.Backends {
		if c.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: backend %q (supported: %s)", ErrInvalid, c.Backend, strings.Join(output.Backends, ", "))
	}

	if c.NeedsInput() && c.Input == "" {
		return fmt.Errorf("%w: --input is required", ErrInvalid)
	}
	return nil
}
