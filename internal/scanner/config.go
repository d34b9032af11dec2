// Package scanner decodes barcodes from camera frames.
//
// A Processor converts a YUV 4:2:0 frame into a packed buffer, exposes its
// luminance to a binarizer and hands the bitonal image to a symbol decoder.
// Every failure short of a malformed frame collapses into "no result".
package scanner

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/framescan/internal/barcode"
)

// Config holds the decode settings of a Processor.
type Config struct {
	Formats       []string
	TryHarder     bool
	PureBarcode   bool
	CharacterSet  string
	Binarizer     string
	NormalizeText bool
}

// DefaultConfig returns a QR-only configuration with the hybrid binarizer.
func DefaultConfig() Config {
	return Config{
		Formats:   []string{"qr"},
		Binarizer: barcode.BinarizerHybrid,
	}
}

// Validate checks formats and binarizer names.
func (c Config) Validate() error {
	if _, err := barcode.ParseFormats(c.Formats); err != nil {
		return err
	}
	if _, err := barcode.NewBinarizer(c.Binarizer); err != nil {
		return err
	}
	return nil
}

// DecodeOptions maps the config to barcode decoder options.
func (c Config) DecodeOptions() (barcode.Options, error) {
	formats, err := barcode.ParseFormats(c.Formats)
	if err != nil {
		return barcode.Options{}, err
	}
	return barcode.Options{
		Formats:       formats,
		TryHarder:     c.TryHarder,
		PureBarcode:   c.PureBarcode,
		CharacterSet:  c.CharacterSet,
		NormalizeText: c.NormalizeText,
	}, nil
}

// Builder constructs a Processor with fluent configuration.
type Builder struct {
	cfg       Config
	binarizer barcode.Binarizer
	decoder   barcode.Decoder
	observer  Observer
	logger    *slog.Logger
}

// NewBuilder creates a new builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole decode configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithFormats restricts decoding to the named symbologies.
func (b *Builder) WithFormats(formats ...string) *Builder {
	if len(formats) > 0 {
		b.cfg.Formats = formats
	}
	return b
}

// WithTryHarder toggles the slower exhaustive search.
func (b *Builder) WithTryHarder(enabled bool) *Builder {
	b.cfg.TryHarder = enabled
	return b
}

// WithPureBarcode tells the decoder frames hold a clean unrotated symbol.
func (b *Builder) WithPureBarcode(enabled bool) *Builder {
	b.cfg.PureBarcode = enabled
	return b
}

// WithCharacterSet overrides the payload text encoding guess.
func (b *Builder) WithCharacterSet(cs string) *Builder {
	b.cfg.CharacterSet = cs
	return b
}

// WithBinarizerName selects a built-in binarizer by name.
func (b *Builder) WithBinarizerName(name string) *Builder {
	if name != "" {
		b.cfg.Binarizer = name
	}
	return b
}

// WithNormalizeText enables NFC normalization of decoded text.
func (b *Builder) WithNormalizeText(enabled bool) *Builder {
	b.cfg.NormalizeText = enabled
	return b
}

// WithBinarizer injects a binarizer, overriding the configured name.
func (b *Builder) WithBinarizer(bin barcode.Binarizer) *Builder {
	b.binarizer = bin
	return b
}

// WithDecoder injects a symbol decoder, overriding the configured formats.
// Processors built from a shared Builder share the decoder, so NewPool
// rejects such a builder.
func (b *Builder) WithDecoder(dec barcode.Decoder) *Builder {
	b.decoder = dec
	return b
}

// WithObserver registers a callback invoked after every scan.
func (b *Builder) WithObserver(obs Observer) *Builder {
	b.observer = obs
	return b
}

// WithLogger sets the logger for per-frame diagnostics.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and creates a Processor.
func (b *Builder) Build() (*Processor, error) {
	bin := b.binarizer
	if bin == nil {
		var err error
		if bin, err = barcode.NewBinarizer(b.cfg.Binarizer); err != nil {
			return nil, fmt.Errorf("init binarizer: %w", err)
		}
	}
	dec := b.decoder
	if dec == nil {
		opts, err := b.cfg.DecodeOptions()
		if err != nil {
			return nil, fmt.Errorf("init decoder: %w", err)
		}
		if dec, err = barcode.NewDecoder(opts); err != nil {
			return nil, fmt.Errorf("init decoder: %w", err)
		}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:       b.cfg,
		binarizer: bin,
		decoder:   dec,
		convert:   frameConvert,
		observer:  b.observer,
		logger:    logger,
	}, nil
}

// New builds a Processor from cfg.
func New(cfg Config) (*Processor, error) {
	return NewBuilder().WithConfig(cfg).Build()
}
