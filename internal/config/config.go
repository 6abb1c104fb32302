package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "zastat.toml"

// Config represents the complete zastat configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version" toml:"version"`
	Output  string `json:"output" mapstructure:"output" toml:"output"`

	Analysis AnalysisConfig    `json:"analysis" mapstructure:"analysis" toml:"analysis"`
	Rebin    RebinConfig       `json:"rebin" mapstructure:"rebin" toml:"rebin"`
	Combine  CombineConfig     `json:"combine" mapstructure:"combine" toml:"combine"`
	Eras     map[string]string `json:"eras" mapstructure:"eras" toml:"eras"`
	Logging  LoggingConfig     `json:"logging" mapstructure:"logging" toml:"logging"`
	Storage  StorageConfig     `json:"storage" mapstructure:"storage" toml:"storage"`
	Metrics  MetricsConfig     `json:"metrics" mapstructure:"metrics" toml:"metrics"`
}

// AnalysisConfig selects which combinations are attempted and how fit scripts are generated.
type AnalysisConfig struct {
	THDM         []string `json:"thdm" mapstructure:"thdm" toml:"thdm"`
	Mode         string   `json:"mode" mapstructure:"mode" toml:"mode"`
	Method       string   `json:"method" mapstructure:"method" toml:"method"`
	Era          string   `json:"era" mapstructure:"era" toml:"era"`
	Dataset      string   `json:"dataset" mapstructure:"dataset" toml:"dataset"`
	ExpectSignal int      `json:"expectSignal" mapstructure:"expectSignal" toml:"expectSignal"`
	Unblind      bool     `json:"unblind" mapstructure:"unblind" toml:"unblind"`
	TwoPOIs      bool     `json:"twoPOIs" mapstructure:"twoPOIs" toml:"twoPOIs"`
	MultiSignal  bool     `json:"multiSignal" mapstructure:"multiSignal" toml:"multiSignal"`
	MergeCards   bool     `json:"mergeCards" mapstructure:"mergeCards" toml:"mergeCards"`
	// TanBeta is only used for the output tree layout; empty means no tanbeta directory.
	TanBeta       string `json:"tanbeta" mapstructure:"tanbeta" toml:"tanbeta"`
	SubmitToSlurm bool   `json:"slurm" mapstructure:"slurm" toml:"slurm"`
}

// RebinConfig contains the rebinning engine knobs
type RebinConfig struct {
	Precision            int     `json:"precision" mapstructure:"precision" toml:"precision"`
	MinBinWidth          float64 `json:"minBinWidth" mapstructure:"minBinWidth" toml:"minBinWidth"`
	SignalCutoff         float64 `json:"signalCutoff" mapstructure:"signalCutoff" toml:"signalCutoff"`
	IntegralTolerance    float64 `json:"integralTolerance" mapstructure:"integralTolerance" toml:"integralTolerance"`
	IncludeOverflow      bool    `json:"includeOverflow" mapstructure:"includeOverflow" toml:"includeOverflow"`
	Threshold            float64 `json:"threshold" mapstructure:"threshold" toml:"threshold"`
	LegacyCollapse       bool    `json:"legacyCollapse" mapstructure:"legacyCollapse" toml:"legacyCollapse"`
	LegacyRelUncertainty bool    `json:"legacyRelUncertainty" mapstructure:"legacyRelUncertainty" toml:"legacyRelUncertainty"`
}

// CombineConfig contains the external card-combination tool settings
type CombineConfig struct {
	Tool                 string `json:"tool" mapstructure:"tool" toml:"tool"`
	Mass                 string `json:"mass" mapstructure:"mass" toml:"mass"`
	AutoMCStatsThreshold int    `json:"autoMCStatsThreshold" mapstructure:"autoMCStatsThreshold" toml:"autoMCStatsThreshold"`
	SignalGrid           string `json:"signalGrid" mapstructure:"signalGrid" toml:"signalGrid"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format" toml:"format"`
	Level      string `json:"level" mapstructure:"level" toml:"level"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" toml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups"`
	Rebin      string `json:"rebin" mapstructure:"rebin" toml:"rebin"`
	Combine    string `json:"combine" mapstructure:"combine" toml:"combine"`
	Samples    string `json:"samples" mapstructure:"samples" toml:"samples"`
}

// StorageConfig points at the sqlite run ledger
type StorageConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	Path    string `json:"path" mapstructure:"path" toml:"path"`
}

// MetricsConfig controls the prometheus textfile written at the end of a run
type MetricsConfig struct {
	Textfile string `json:"textfile" mapstructure:"textfile" toml:"textfile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Output:  "output",
		Analysis: AnalysisConfig{
			THDM:         []string{"HToZA"},
			Mode:         "dnn",
			Method:       "asymptotic",
			Era:          "fullrun2",
			Dataset:      "asimov",
			ExpectSignal: 1,
			MergeCards:   true,
		},
		Rebin: RebinConfig{
			Precision:         2,
			MinBinWidth:       0.02,
			SignalCutoff:      0.65,
			IntegralTolerance: 0.001,
		},
		Combine: CombineConfig{
			Tool:                 "combineCards.py",
			Mass:                 "125",
			AutoMCStatsThreshold: 0,
		},
		Eras: map[string]string{
			"2016": "UL16",
			"2017": "UL17",
			"2018": "UL18",
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "zastat.db",
		},
	}
}

// LoadConfig loads configuration from <dir>/zastat.toml.
// Environment variables prefixed with ZASTAT_ override file values.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	// Leaf defaults make these keys visible to the ZASTAT_* environment lookup.
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("output", def.Output)
	v.SetDefault("analysis.mode", def.Analysis.Mode)
	v.SetDefault("analysis.method", def.Analysis.Method)
	v.SetDefault("analysis.era", def.Analysis.Era)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("zastat")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("ZASTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <dir>/zastat.toml
func (c *Config) Save(dir string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0644)
}

var (
	supportedModes   = []string{"dnn", "mbb", "mllbb", "ellipse", "mjj_and_mlljj", "mjj_vs_mlljj"}
	supportedMethods = []string{"asymptotic", "hybridnew", "fit", "impacts", "generatetoys", "signal_strength", "pvalue", "goodness_of_fit", "likelihood_fit"}
	supportedEras    = []string{"2016", "2017", "2018", "fullrun2"}
	supportedTHDM    = []string{"HToZA", "AToZH"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if len(c.Analysis.THDM) == 0 {
		return &ConfigError{Field: "analysis.thdm", Message: "at least one hypothesis is required"}
	}
	for _, h := range c.Analysis.THDM {
		if !contains(supportedTHDM, h) {
			return &ConfigError{Field: "analysis.thdm", Message: "unknown hypothesis " + h}
		}
	}
	if !contains(supportedModes, c.Analysis.Mode) {
		return &ConfigError{Field: "analysis.mode", Message: "unknown mode " + c.Analysis.Mode}
	}
	if !contains(supportedMethods, c.Analysis.Method) {
		return &ConfigError{Field: "analysis.method", Message: "unknown method " + c.Analysis.Method}
	}
	if !contains(supportedEras, c.Analysis.Era) {
		return &ConfigError{Field: "analysis.era", Message: "unknown era " + c.Analysis.Era}
	}
	if c.Analysis.Dataset != "asimov" && c.Analysis.Dataset != "toys" {
		return &ConfigError{Field: "analysis.dataset", Message: "must be asimov or toys"}
	}
	if c.Analysis.ExpectSignal != 0 && c.Analysis.ExpectSignal != 1 {
		return &ConfigError{Field: "analysis.expectSignal", Message: "must be 0 or 1"}
	}
	if c.Analysis.MultiSignal && !c.Analysis.TwoPOIs {
		return &ConfigError{Field: "analysis.multiSignal", Message: "requires analysis.twoPOIs"}
	}
	if c.Rebin.Precision < 0 || c.Rebin.Precision > 6 {
		return &ConfigError{Field: "rebin.precision", Message: "must be between 0 and 6"}
	}
	if c.Rebin.MinBinWidth < 0 {
		return &ConfigError{Field: "rebin.minBinWidth", Message: "must not be negative"}
	}
	if c.Rebin.IntegralTolerance <= 0 {
		return &ConfigError{Field: "rebin.integralTolerance", Message: "must be positive"}
	}
	if c.Combine.Tool == "" {
		return &ConfigError{Field: "combine.tool", Message: "must not be empty"}
	}
	return nil
}

// EraTag returns the POG tag (e.g. UL17) for a single-year era.
func (c *Config) EraTag(era string) string {
	return c.Eras[era]
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
