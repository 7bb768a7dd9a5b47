package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type ExecConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxOutputBytes int64         `mapstructure:"max_output_bytes"`
	TempDir        string        `mapstructure:"temp_dir"`
	ToolchainsFile string        `mapstructure:"toolchains_file"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type CompletionConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	BaseURL string            `mapstructure:"base_url"`
	APIKey  string            `mapstructure:"api_key"`
	Models  map[string]string `mapstructure:"models"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Exec       ExecConfig       `mapstructure:"exec"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Completion CompletionConfig `mapstructure:"completion"`
}

// Load reads coderoom.yaml from the working directory or $HOME/.coderoom.
// A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("coderoom")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.coderoom")

	v.SetDefault("server.port", 5000)
	v.SetDefault("exec.timeout", "5s")
	v.SetDefault("exec.max_output_bytes", 1<<20)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".coderoom", "coderoom.db"))
	v.SetDefault("completion.base_url", "https://api.openai.com/v1/")
	v.SetDefault("completion.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("completion.models", map[string]string{
		"primary":  "gpt-4o-mini",
		"fallback": "gpt-3.5-turbo",
	})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Expand environment variable references in the API key
	if k := cfg.Completion.APIKey; strings.HasPrefix(k, "${") && strings.HasSuffix(k, "}") {
		cfg.Completion.APIKey = os.Getenv(k[2 : len(k)-1])
	}

	return &cfg, nil
}
