package pdffigures

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/phuslu/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config controls extraction behavior.
type Config struct {
	// Mode selects the caption grammar and boundary rules (default: ModeMain)
	Mode Mode `toml:"-" yaml:"-"`

	// ModeName is the textual form of Mode used in config files ("main" or "supplementary")
	ModeName string `toml:"mode" yaml:"mode" validate:"omitempty,oneof=main supplementary si"`

	// Zoom is the linear render magnification over PDF points (default: 4, about 300 DPI)
	Zoom float64 `toml:"zoom" yaml:"zoom" validate:"gt=0,lte=16"`

	// Layout holds the boundary resolution thresholds
	Layout LayoutSettings `toml:"layout" yaml:"layout"`

	// Trim holds the pixel trimming thresholds
	Trim TrimSettings `toml:"trim" yaml:"trim"`

	// SkipSupplementaryCover excludes page 1 of supplementary documents from
	// caption scanning, assuming it is a cover or table of contents (default: true)
	SkipSupplementaryCover bool `toml:"skip_supplementary_cover" yaml:"skip_supplementary_cover"`

	// Workers is the number of pages processed in parallel (default: 1)
	Workers int `toml:"workers" yaml:"workers" validate:"gte=1,lte=64"`

	// MarkdownIndex writes figures.md next to the manifest (default: false)
	MarkdownIndex bool `toml:"markdown_index" yaml:"markdown_index"`

	// ValidateInput runs a pdfcpu validation pass before extraction (default: false)
	ValidateInput bool `toml:"validate_input" yaml:"validate_input"`

	// EnableMetricsLogging enables processing time and statistics logging (default: false)
	EnableMetricsLogging bool `toml:"metrics" yaml:"metrics"`

	// Logger receives progress events; nil means log.DefaultLogger
	Logger *log.Logger `toml:"-" yaml:"-"`
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() Config {
	return Config{
		Mode:                   ModeMain,
		Zoom:                   4,
		Layout:                 DefaultLayoutSettings(),
		Trim:                   DefaultTrimSettings(),
		SkipSupplementaryCover: true,
		Workers:                1,
	}
}

// LoadConfig reads a TOML or YAML file (chosen by extension) over the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "failed to read config file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".toml", "":
		err = toml.Unmarshal(data, &config)
	default:
		return config, errors.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return config, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	if config.ModeName != "" {
		if config.Mode, err = ParseMode(config.ModeName); err != nil {
			return config, err
		}
	}

	return config, config.Validate()
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &log.DefaultLogger
}
