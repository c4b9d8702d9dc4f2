package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const ConfigVersion = 1

// Config carries the §6 run-time options plus the set of directories the
// CLI scans for plot files, loaded from YAML with double json+yaml struct
// tags, matching the teacher's config.go tagging style.
type Config struct {
	originalFilepath string
	hashOfConfigFile string

	Version int `json:"version" yaml:"version"`

	// ThreadCount is the number of worker stripes validate-plot fans out
	// across; defaults to max(4, GOMAXPROCS) per spec.md §6.
	ThreadCount int `json:"thread_count" yaml:"thread_count"`

	// DecompressorPoolDepth is the number of preallocated Decompressor
	// instances kept ready for compressed-plot lookups.
	DecompressorPoolDepth int `json:"decompressor_pool_depth" yaml:"decompressor_pool_depth"`

	// DecompressorTimeoutMs bounds how long a lookup waits for a free
	// pool instance before failing.
	DecompressorTimeoutMs int `json:"decompressor_timeout_ms" yaml:"decompressor_timeout_ms"`

	// MaxCompressionLevelAllowed rejects any plot whose header reports a
	// higher compression level than this, a guard against unsupported
	// future formats.
	MaxCompressionLevelAllowed int `json:"max_compression_level_allowed" yaml:"max_compression_level_allowed"`

	// PlotDirectories lists directories the CLI scans for .plot files.
	PlotDirectories []string `json:"plot_directories" yaml:"plot_directories"`
}

// Default returns a Config with every option at its spec-mandated default.
func Default() *Config {
	return &Config{
		Version:                    ConfigVersion,
		ThreadCount:                defaultThreadCount(),
		DecompressorPoolDepth:      4,
		DecompressorTimeoutMs:      10_000,
		MaxCompressionLevelAllowed: 9,
	}
}

func defaultThreadCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 4 {
		return 4
	}
	return n
}

// LoadConfig reads and parses a YAML config file, recording its sha256 so
// two loaded Configs can be compared for having come from identical files.
func LoadConfig(configFilepath string) (*Config, error) {
	data, err := os.ReadFile(configFilepath)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", configFilepath, err)
	}
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config file %q: %w", configFilepath, err)
	}
	config.originalFilepath = configFilepath
	sum, err := hashFileSha256(configFilepath)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", configFilepath, err)
	}
	config.hashOfConfigFile = sum
	return config, config.Validate()
}

func hashFileSha256(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (c *Config) ConfigFilepath() string { return c.originalFilepath }
func (c *Config) HashOfConfigFile() string { return c.hashOfConfigFile }

func (c *Config) IsSameHash(other *Config) bool {
	return c.hashOfConfigFile == other.hashOfConfigFile
}

// Validate checks the config for the invariants the engine relies on.
func (c *Config) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("config version must be %d", ConfigVersion)
	}
	if c.ThreadCount <= 0 {
		return fmt.Errorf("thread_count must be positive")
	}
	if c.DecompressorPoolDepth <= 0 {
		return fmt.Errorf("decompressor_pool_depth must be positive")
	}
	if c.DecompressorTimeoutMs <= 0 {
		return fmt.Errorf("decompressor_timeout_ms must be positive")
	}
	if c.MaxCompressionLevelAllowed < 0 {
		return fmt.Errorf("max_compression_level_allowed must be >= 0")
	}
	return nil
}
