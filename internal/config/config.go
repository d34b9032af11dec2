//nolint:lll
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/batch"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/stream"
)

// Config represents the complete configuration of framescan. It covers every
// command (frame, image, batch, pdf, serve) and is layered from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`
	Stream  StreamConfig  `mapstructure:"stream" yaml:"stream" json:"stream"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ScannerConfig contains decode settings.
type ScannerConfig struct {
	Formats       []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder     bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	PureBarcode   bool     `mapstructure:"pure_barcode" yaml:"pure_barcode" json:"pure_barcode"`
	CharacterSet  string   `mapstructure:"character_set" yaml:"character_set" json:"character_set"`
	Binarizer     string   `mapstructure:"binarizer" yaml:"binarizer" json:"binarizer"`
	NormalizeText bool     `mapstructure:"normalize_text" yaml:"normalize_text" json:"normalize_text"`
	// Layout of frames synthesized from images.
	Layout string `mapstructure:"layout" yaml:"layout" json:"layout"`
	// MaxImageSize bounds the longer side of images before conversion.
	MaxImageSize int `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
}

// StreamConfig contains settings for continuous frame streams.
type StreamConfig struct {
	Workers    int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	DebounceMs int  `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
	DeliverAll bool `mapstructure:"deliver_all" yaml:"deliver_all" json:"deliver_all"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	File      string `mapstructure:"file" yaml:"file" json:"file"`
	ProjectID bool   `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Direct          bool `mapstructure:"direct" yaml:"direct" json:"direct"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	sc := scanner.DefaultConfig()
	st := stream.DefaultConfig()
	return Config{
		LogLevel: "info",
		Scanner: ScannerConfig{
			Formats:      sc.Formats,
			Binarizer:    sc.Binarizer,
			Layout:       string(frame.LayoutNV21),
			MaxImageSize: 1920,
		},
		Stream: StreamConfig{
			Workers:    st.Workers,
			DebounceMs: int(st.DebounceWindow / time.Millisecond),
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     100 * 1024 * 1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if err := c.ToScannerConfig().Validate(); err != nil {
		return fmt.Errorf("invalid scanner config: %w", err)
	}
	if _, err := frame.ParseLayout(c.Scanner.Layout); err != nil {
		return fmt.Errorf("invalid scanner layout: %w", err)
	}
	if c.Scanner.MaxImageSize < 16 {
		return fmt.Errorf("invalid scanner max image size: %d (must be at least 16)", c.Scanner.MaxImageSize)
	}

	if c.Stream.Workers <= 0 {
		return fmt.Errorf("invalid stream workers: %d (must be positive)", c.Stream.Workers)
	}
	if c.Stream.DebounceMs < 0 {
		return fmt.Errorf("invalid stream debounce: %d (must not be negative)", c.Stream.DebounceMs)
	}

	if c.Output.Format != "" && !batch.IsFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join([]string{batch.FormatText, batch.FormatJSON, batch.FormatCSV, batch.FormatYAML}, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDay < 0 {
		return fmt.Errorf("invalid rate limit: limits must not be negative")
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// ToScannerConfig converts the scanner section to scanner.Config.
func (c *Config) ToScannerConfig() scanner.Config {
	formats := c.Scanner.Formats
	if len(formats) == 0 {
		formats = []string{barcode.FormatQR.String()}
	}
	return scanner.Config{
		Formats:       formats,
		TryHarder:     c.Scanner.TryHarder,
		PureBarcode:   c.Scanner.PureBarcode,
		CharacterSet:  c.Scanner.CharacterSet,
		Binarizer:     c.Scanner.Binarizer,
		NormalizeText: c.Scanner.NormalizeText,
	}
}

// ToStreamConfig converts the stream section to stream.Config.
func (c *Config) ToStreamConfig() stream.Config {
	return stream.Config{
		Workers:        c.Stream.Workers,
		DebounceWindow: time.Duration(c.Stream.DebounceMs) * time.Millisecond,
		DeliverAll:     c.Stream.DeliverAll,
	}
}

// ToConstraints returns the image size limits of the scanner section.
func (c *Config) ToConstraints() imageio.Constraints {
	cons := imageio.DefaultConstraints()
	if c.Scanner.MaxImageSize > 0 {
		cons.MaxWidth = c.Scanner.MaxImageSize
		cons.MaxHeight = c.Scanner.MaxImageSize
	}
	return cons
}

// ToBatchConfig converts the batch, scanner and output sections to batch.Config.
func (c *Config) ToBatchConfig() batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Scanner = c.ToScannerConfig()
	cfg.Direct = c.Batch.Direct
	if layout, err := frame.ParseLayout(c.Scanner.Layout); err == nil {
		cfg.Layout = layout
	}
	cfg.Constraints = c.ToConstraints()
	cfg.Workers = c.Batch.Workers
	cfg.ContinueOnError = c.Batch.ContinueOnError
	cfg.Recursive = c.Batch.Recursive
	if c.Output.Format != "" {
		cfg.Format = c.Output.Format
	}
	cfg.ProjectID = c.Output.ProjectID
	return cfg
}
