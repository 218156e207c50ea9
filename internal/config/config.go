package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Transcription struct {
		Endpoint            string `yaml:"endpoint"`
		APIKey              string `yaml:"api_key"`
		TimeoutSeconds      int    `yaml:"timeout_seconds"`
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	} `yaml:"transcription"`

	Live struct {
		WindowSeconds        int `yaml:"window_seconds"`
		FlushIntervalSeconds int `yaml:"flush_interval_seconds"`
		ChunkMillis          int `yaml:"chunk_millis"`
		MaxQueueLen          int `yaml:"max_queue_len"`
	} `yaml:"live"`

	Analysis struct {
		CacheTTLMinutes      int `yaml:"cache_ttl_minutes"`
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"analysis"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// Load reads and parses the YAML config file, filling defaults for anything
// left unset.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Transcription.APIKey == "" {
		cfg.Transcription.APIKey = os.Getenv("TRANSCRIPTION_API_KEY")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Transcription.TimeoutSeconds == 0 {
		c.Transcription.TimeoutSeconds = 120
	}
	if c.Transcription.PollIntervalSeconds == 0 {
		c.Transcription.PollIntervalSeconds = 2
	}
	if c.Live.WindowSeconds == 0 {
		c.Live.WindowSeconds = 10
	}
	if c.Live.FlushIntervalSeconds == 0 {
		c.Live.FlushIntervalSeconds = 5
	}
	if c.Live.ChunkMillis == 0 {
		c.Live.ChunkMillis = 500
	}
	if c.Live.MaxQueueLen == 0 {
		c.Live.MaxQueueLen = 32
	}
	if c.Analysis.CacheTTLMinutes == 0 {
		c.Analysis.CacheTTLMinutes = 30
	}
	if c.Analysis.SweepIntervalMinutes == 0 {
		c.Analysis.SweepIntervalMinutes = 5
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "truthguard.db"
	}
	if c.Limits.MaxFileSizeMB == 0 {
		c.Limits.MaxFileSizeMB = 100
	}
}

// WindowDuration returns the live buffer window as a duration.
func (c *Config) WindowDuration() time.Duration {
	return time.Duration(c.Live.WindowSeconds) * time.Second
}

// FlushInterval returns the minimum inter-flush interval as a duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Live.FlushIntervalSeconds) * time.Second
}

// ChunkDuration returns the target producer chunk length as a duration.
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(c.Live.ChunkMillis) * time.Millisecond
}
