package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. TCGAPROC_DOWNLOAD_BATCHSIZE.
const EnvPrefix = "TCGAPROC"

// Config represents the pipeline configuration
type Config struct {
	Portal   PortalConfig   `yaml:"portal"`
	Download DownloadConfig `yaml:"download"`
	Merge    MergeConfig    `yaml:"merge"`
}

// PortalConfig contains remote data portal settings
type PortalConfig struct {
	BaseURL                string `yaml:"base_url" validate:"required,url"`
	ValidateTimeoutSeconds int    `yaml:"validate_timeout_seconds" validate:"min=1"`
	DownloadTimeoutSeconds int    `yaml:"download_timeout_seconds" validate:"min=1"`
}

// DownloadConfig contains batching and retry settings
type DownloadConfig struct {
	OutputDirectory string `yaml:"output_directory"`
	BatchSize       int    `yaml:"batch_size" validate:"min=1,max=500"` // IDs per request, bounded by portal limits
	RetryAttempts   int    `yaml:"retry_attempts" validate:"min=0,max=10"`
	BackoffSeconds  int    `yaml:"backoff_seconds" validate:"min=1"` // base delay, doubled per attempt
	KeepArchives    bool   `yaml:"keep_archives"`                    // keep tar.gz files after extraction
}

// MergeConfig contains merge-stage output settings
type MergeConfig struct {
	OutputDirectory string   `yaml:"output_directory"`
	DataOutputFile  string   `yaml:"data_output_file"`
	MAFOutputFile   string   `yaml:"maf_output_file"`
	RetainColumns   []string `yaml:"retain_columns"`
}

// DefaultRetainColumns is the MAF column subset kept when none is configured.
var DefaultRetainColumns = []string{
	"Hugo_Symbol",
	"Chromosome",
	"Start_Position",
	"End_Position",
	"Strand",
	"Variant_Classification",
	"Variant_Type",
	"Reference_Allele",
	"Tumor_Seq_Allele1",
	"Tumor_Seq_Allele2",
	"Tumor_Sample_Barcode",
	"Matched_Norm_Sample_Barcode",
	"t_depth",
	"t_ref_count",
	"t_alt_count",
	"n_depth",
	"n_ref_count",
	"n_alt_count",
	"Consequence",
	"IMPACT",
	"callers",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:                "https://api.gdc.cancer.gov",
			ValidateTimeoutSeconds: 60,
			DownloadTimeoutSeconds: 300,
		},
		Download: DownloadConfig{
			OutputDirectory: "./outputs",
			BatchSize:       100,
			RetryAttempts:   3,
			BackoffSeconds:  5,
		},
		Merge: MergeConfig{
			OutputDirectory: "./outputs",
			DataOutputFile:  "combined_data.tsv",
			MAFOutputFile:   "combined_maf.tsv",
			RetainColumns:   DefaultRetainColumns,
		},
	}
}

// Load loads configuration from a file, layered over defaults and
// topped with TCGAPROC_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.Download.OutputDirectory = expandPath(cfg.Download.OutputDirectory)
	cfg.Merge.OutputDirectory = expandPath(cfg.Merge.OutputDirectory)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns the config file path to use, or "" for defaults only.
func GetConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("TCGAPROC_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("tcgaproc.yaml"); err == nil {
		return "tcgaproc.yaml"
	}
	return ""
}

// Validate checks configuration bounds
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}

	return path
}
