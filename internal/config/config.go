package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the assistant's runtime configuration.
type Config struct {
	DataFile string `mapstructure:"data_file"`
	IndexDB  string `mapstructure:"index_db"`

	Embedding struct {
		URL   string `mapstructure:"url"`
		Model string `mapstructure:"model"`
	} `mapstructure:"embedding"`

	Completion struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"completion"`

	ListenAddr string `mapstructure:"listen_addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		DataFile:   defaultPath("data.json"),
		IndexDB:    defaultPath("vectors.db"),
		ListenAddr: ":8000",
	}
	cfg.Embedding.URL = "http://localhost:11434/api/embed"
	cfg.Embedding.Model = "nomic-embed-text"
	return cfg
}

// Load merges configuration from the global file, the project file and
// the environment, in that order of increasing precedence.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		_ = loadFile(filepath.Join(home, ".mas", "config.yaml"), cfg)
	}
	if cwd, err := os.Getwd(); err == nil {
		_ = loadFile(filepath.Join(cwd, "mas.yaml"), cfg)
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

// applyEnv lets the environment override file values. The completion key
// in particular normally arrives via the environment or a .env file.
func applyEnv(cfg *Config) {
	setIfPresent(&cfg.DataFile, "MAS_DATA_FILE")
	setIfPresent(&cfg.IndexDB, "MAS_INDEX_DB")
	setIfPresent(&cfg.Embedding.URL, "MAS_EMBEDDING_URL")
	setIfPresent(&cfg.Embedding.Model, "MAS_EMBEDDING_MODEL")
	setIfPresent(&cfg.Completion.APIKey, "ANTHROPIC_API_KEY")
	setIfPresent(&cfg.Completion.Model, "MAS_COMPLETION_MODEL")
	setIfPresent(&cfg.Completion.BaseURL, "MAS_COMPLETION_URL")
	setIfPresent(&cfg.ListenAddr, "MAS_LISTEN_ADDR")
}

func setIfPresent(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mas", name)
	}
	return filepath.Join(home, ".mas", name)
}
