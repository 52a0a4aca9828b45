// Package config handles configuration loading and validation for vecmem.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete vecmem configuration.
type Config struct {
	Index      IndexConfig      `mapstructure:"index" yaml:"index"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings" yaml:"embeddings"`
	Ingest     IngestConfig     `mapstructure:"ingest" yaml:"ingest"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Ignore     []string         `mapstructure:"ignore" yaml:"ignore"`
}

// IndexConfig selects the vector index backend and the namespace all keys live under.
type IndexConfig struct {
	// URL is either sqlite://<path> or memory://.
	URL  string `mapstructure:"url" yaml:"url"`
	Name string `mapstructure:"name" yaml:"name"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider  string            `mapstructure:"provider" yaml:"provider"`
	CacheSize int               `mapstructure:"cache_size" yaml:"cache_size"`
	Ollama    OllamaEmbedConfig `mapstructure:"ollama" yaml:"ollama"`
	OpenAI    OpenAIEmbedConfig `mapstructure:"openai" yaml:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Model string `mapstructure:"model" yaml:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model" yaml:"model"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions,omitempty"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	BatchSize   int    `mapstructure:"batch_size" yaml:"batch_size"`
	Workers     int    `mapstructure:"workers" yaml:"workers"`
	MaxFileSize int    `mapstructure:"max_file_size" yaml:"max_file_size"`
	PDFToText   string `mapstructure:"pdftotext" yaml:"pdftotext"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Warm starts building the embedder and index in the background at startup.
	Warm        bool          `mapstructure:"warm" yaml:"warm"`
	InitTimeout time.Duration `mapstructure:"init_timeout" yaml:"init_timeout"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			URL:  DefaultIndexURL(),
			Name: DefaultIndexName,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  DefaultEmbeddingProvider,
			CacheSize: DefaultEmbeddingCacheSize,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		Ingest: IngestConfig{
			BatchSize:   DefaultBatchSize,
			Workers:     DefaultWorkers,
			MaxFileSize: DefaultMaxFileSize,
			PDFToText:   DefaultPDFToText,
		},
		Server: ServerConfig{
			Warm:        true,
			InitTimeout: DefaultInitTimeout,
		},
		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce,
		},
		Ignore: DefaultIgnorePatterns(),
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")

		// A project-local rc file wins over the global one
		if rcPath := findRCFile(); rcPath != "" {
			viper.SetConfigFile(rcPath)
		}
	}

	viper.SetEnvPrefix("VECMEM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Embeddings.OpenAI.APIKey == "" {
		cfg.Embeddings.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg.Validate()
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.Index.Name == "" {
		return fmt.Errorf("index.name must not be empty")
	}
	if _, _, err := ParseIndexURL(c.Index.URL); err != nil {
		return err
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = DefaultBatchSize
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = DefaultWorkers
	}
	if c.Server.InitTimeout <= 0 {
		c.Server.InitTimeout = DefaultInitTimeout
	}
	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	viper.SetDefault("index.url", DefaultIndexURL())
	viper.SetDefault("index.name", DefaultIndexName)

	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.cache_size", DefaultEmbeddingCacheSize)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	viper.SetDefault("ingest.batch_size", DefaultBatchSize)
	viper.SetDefault("ingest.workers", DefaultWorkers)
	viper.SetDefault("ingest.max_file_size", DefaultMaxFileSize)
	viper.SetDefault("ingest.pdftotext", DefaultPDFToText)

	viper.SetDefault("server.warm", true)
	viper.SetDefault("server.init_timeout", DefaultInitTimeout)

	viper.SetDefault("watch.debounce", DefaultWatchDebounce)

	viper.SetDefault("ignore", DefaultIgnorePatterns())
}

// findRCFile searches for .vecmemrc.yaml starting from current directory.
func findRCFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		rcPath := filepath.Join(dir, ".vecmemrc.yaml")
		if _, err := os.Stat(rcPath); err == nil {
			return rcPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// Backend names returned by ParseIndexURL.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ParseIndexURL splits an index connection string into backend and location.
// A bare filesystem path is treated as a SQLite database.
func ParseIndexURL(raw string) (backend, location string, err error) {
	switch {
	case raw == "":
		return "", "", fmt.Errorf("index.url must not be empty")
	case strings.HasPrefix(raw, "memory://"):
		return BackendMemory, "", nil
	case strings.HasPrefix(raw, "sqlite://"):
		location = strings.TrimPrefix(raw, "sqlite://")
	case strings.Contains(raw, "://"):
		return "", "", fmt.Errorf("unsupported index url scheme: %s", raw)
	default:
		location = raw
	}

	if location == "" {
		return "", "", fmt.Errorf("sqlite index url has no path: %s", raw)
	}
	if strings.HasPrefix(location, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			location = filepath.Join(home, location[2:])
		}
	}
	return BackendSQLite, location, nil
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// WriteFile writes c as YAML to path, refusing to clobber an existing file.
// The API key is never written.
func WriteFile(c *Config, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.Embeddings.OpenAI.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
