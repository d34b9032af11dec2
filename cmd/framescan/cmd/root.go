package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/framescan/internal/config"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/version"
)

// app carries the state shared by the commands of one root command.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree on a private viper instance, so
// every invocation starts from fresh flags and configuration.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	a := &app{loader: config.NewLoaderWithViper(v)}

	rootCmd := &cobra.Command{
		Use:   "framescan",
		Short: "Barcode scanner for camera frames, images and PDFs",
		Long: `framescan decodes QR codes and other barcodes from camera preview frames.

Frames are YUV 4:2:0 buffers as delivered by mobile cameras (YUV_420_888, NV21,
NV12, I420). They are packed into a single buffer, binarized and handed to the
symbol decoder. The same scanner is available for still images, PDFs, whole
directories and over HTTP.

Examples:
  framescan frame preview_640x480.nv21
  framescan image photo.jpg --format json
  framescan batch captures/ --recursive --workers 8
  framescan pdf labels.pdf --pages 1-3
  framescan render "HIMS-TEST-123" -o symbol.png
  framescan serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	rootCmd.SetVersionTemplate("framescan {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/framescan, /etc/framescan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		newFrameCmd(a),
		newImageCmd(a),
		newBatchCmd(a),
		newPdfCmd(a),
		newRenderCmd(a),
		newServeCmd(a),
		newBenchCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// init loads the configuration and installs the JSON logger. Logs go to
// stderr so that results on stdout stay machine readable.
func (a *app) init(logOut io.Writer) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = a.loader.LoadWithFile(a.cfgFile)
	} else {
		a.cfg, err = a.loader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel(a.cfg),
	}))
	slog.SetDefault(a.logger)
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// settings returns the loaded configuration, falling back to the defaults when
// a command runs without the root pre-run (as in unit tests).
func (a *app) settings() *config.Config {
	if a.cfg == nil {
		cfg := config.DefaultConfig()
		a.cfg = &cfg
	}
	return a.cfg
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// outputFlags registers the result formatting flags shared by scan commands.
func outputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("project-id", false, "add the project ID extracted from each payload")
}

// outputSettings resolves the output flags against the configuration.
func (a *app) outputSettings(cmd *cobra.Command) (format, file string, projectID bool) {
	cfg := a.settings()
	format, file, projectID = cfg.Output.Format, cfg.Output.File, cfg.Output.ProjectID
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		file, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("project-id") {
		projectID, _ = cmd.Flags().GetBool("project-id")
	}
	return format, file, projectID
}

// scannerFlags registers the decode flags shared by scan commands.
func scannerFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("formats", nil, "symbol formats to decode (default: qr)")
	cmd.Flags().Bool("try-harder", false, "spend more time looking for symbols")
	cmd.Flags().String("binarizer", "", "binarizer: hybrid or global")
}

// scannerConfig resolves the decode flags against the configuration.
func (a *app) scannerConfig(cmd *cobra.Command) scanner.Config {
	sc := a.settings().ToScannerConfig()
	if cmd.Flags().Changed("formats") {
		sc.Formats, _ = cmd.Flags().GetStringSlice("formats")
	}
	if cmd.Flags().Changed("try-harder") {
		sc.TryHarder, _ = cmd.Flags().GetBool("try-harder")
	}
	if cmd.Flags().Changed("binarizer") {
		sc.Binarizer, _ = cmd.Flags().GetString("binarizer")
	}
	return sc
}

// writeOutput writes s to file, or to w when file is empty.
func writeOutput(w io.Writer, file, s string) error {
	if file == "" {
		_, err := io.WriteString(w, s)
		return err
	}
	if err := os.WriteFile(file, []byte(s), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
