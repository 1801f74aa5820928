package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// SecurityConfig - правила защиты путей
type SecurityConfig struct {
	ProtectedPaths    []string `yaml:"protected_paths"`
	WhitelistPaths    []string `yaml:"whitelist_paths"`
	AllowSystemVolume bool     `yaml:"allow_system_volume"`
}

// ShredConfig - параметры затирания файлов
type ShredConfig struct {
	Standard      string  `yaml:"standard"`
	CustomPattern string  `yaml:"custom_pattern"` // hex-строка, только для standard=custom
	Passes        int     `yaml:"passes"`         // только для standard=custom
	ChunkSize     int64   `yaml:"chunk_size"`
	Workers       int     `yaml:"workers"` // 0 = по количеству CPU
	MaxSpeedMBps  float64 `yaml:"max_speed_mbps"`
	Verify        bool    `yaml:"verify"`
	VerifySample  float64 `yaml:"verify_sample"` // доля выборки для больших файлов, 0..1
	DestroyMeta   bool    `yaml:"destroy_metadata"`
}

// FreeSpaceConfig - параметры затирания свободного места
type FreeSpaceConfig struct {
	HeadroomBytes uint64 `yaml:"headroom_bytes"` // неприкосновенный запас свободного места
	FillerDir     string `yaml:"filler_dir"`     // имя скрытой директории для файлов-заполнителей
	MaxFillerSize uint64 `yaml:"max_filler_size"`
}

// LoggingConfig - параметры логирования
type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// ReportingConfig - параметры отчётов и аудита
type ReportingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	LocalPath string `yaml:"local_path"`
	AuditFile string `yaml:"audit_file"`
}

// Config - конфигурация приложения, загружается один раз при старте
type Config struct {
	Security  SecurityConfig  `yaml:"security"`
	Shred     ShredConfig     `yaml:"shred"`
	FreeSpace FreeSpaceConfig `yaml:"free_space"`
	Logging   LoggingConfig   `yaml:"logging"`
	Reporting ReportingConfig `yaml:"reporting"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Security: SecurityConfig{
			ProtectedPaths:    []string{},
			WhitelistPaths:    []string{},
			AllowSystemVolume: false,
		},
		Shred: ShredConfig{
			Standard:     "dod3",
			Passes:       3,
			ChunkSize:    1 * 1024 * 1024, // 1MB
			Workers:      runtime.NumCPU(),
			MaxSpeedMBps: 0, // без ограничения
			Verify:       true,
			VerifySample: 0.05,
			DestroyMeta:  true,
		},
		FreeSpace: FreeSpaceConfig{
			HeadroomBytes: 512 * 1024 * 1024, // 512MB
			FillerDir:     ".shredder_tmp",
			MaxFillerSize: 256 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:   "INFO",
			File:    "",
			Verbose: false,
		},
		Reporting: ReportingConfig{
			Enabled:   true,
			LocalPath: "./reports",
			AuditFile: "",
		},
	}
}

// Load загружает конфигурацию из файла. Отсутствующий файл - не ошибка,
// используются значения по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate проверяет конфигурацию на валидность
func Validate(cfg *Config) error {
	if cfg.Shred.Passes < 0 || cfg.Shred.Passes > 35 {
		return fmt.Errorf("passes must be between 1 and 35, got %d", cfg.Shred.Passes)
	}

	if cfg.Shred.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", cfg.Shred.ChunkSize)
	}
	if cfg.Shred.ChunkSize > 100*1024*1024 { // 100MB max
		return fmt.Errorf("chunk size too large (max 100MB), got %d", cfg.Shred.ChunkSize)
	}

	if cfg.Shred.Workers < 0 || cfg.Shred.Workers > 64 {
		return fmt.Errorf("workers must be between 0 and 64, got %d", cfg.Shred.Workers)
	}

	if cfg.Shred.MaxSpeedMBps < 0 {
		return fmt.Errorf("max speed cannot be negative, got %f", cfg.Shred.MaxSpeedMBps)
	}

	if cfg.Shred.VerifySample < 0 || cfg.Shred.VerifySample > 1 {
		return fmt.Errorf("verify sample must be between 0 and 1, got %f", cfg.Shred.VerifySample)
	}

	if cfg.FreeSpace.FillerDir == "" {
		return fmt.Errorf("filler dir cannot be empty")
	}

	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true, "FATAL": true}
	if cfg.Logging.Level != "" && !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	return nil
}
