package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

// Fixture describes one generated file and what a scan of it should report.
type Fixture struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Kind     string `json:"kind"`
	Expected string `json:"expected,omitempty"`
	Found    bool   `json:"found"`
	Layout   string `json:"layout,omitempty"`
	Pages    int    `json:"pages,omitempty"`
}

var payloads = []string{"HIMS-TEST-123", "https://example.com/item/42", "LOT-2026-0815", "Hello World"}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir         = flag.String("out", "testdata", "Output directory, relative to the project root")
		generateImages = flag.Bool("images", true, "Generate symbol images")
		generateFrames = flag.Bool("frames", true, "Generate raw frame dumps")
		generatePDF    = flag.Bool("pdf", true, "Generate a multi-page PDF")
		verbose        = flag.Bool("v", false, "Verbose output")
		help           = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate test data for framescan testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pdf=false         # Skip the PDF\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/fixtures # Write elsewhere\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	slog.Info("Starting test data generation...")
	if *verbose {
		slog.Info("Options", "images", *generateImages, "frames", *generateFrames, "pdf", *generatePDF, "out", *outDir)
	}

	if !filepath.IsAbs(*outDir) {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		*outDir = filepath.Join(root, *outDir)
	}

	var fixtures []Fixture
	steps := []struct {
		enabled bool
		name    string
		run     func(string) ([]Fixture, error)
	}{
		{*generateImages, "images", writeSymbolImages},
		{*generateFrames, "frames", writeRawFrames},
		{*generatePDF, "pdf", writeSymbolPDF},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		got, err := step.run(*outDir)
		if err != nil {
			slog.Error("Failed to generate test data", "step", step.name, "error", err)
			os.Exit(1)
		}
		slog.Info("Generated test data", "step", step.name, "files", len(got))
		fixtures = append(fixtures, got...)
	}

	if err := saveManifest(fixtures, *outDir); err != nil {
		slog.Error("Failed to write manifest", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed successfully!", "fixtures", len(fixtures))
}

// writeSymbolImages writes one PNG and one JPEG scene per payload plus a
// noise image without a symbol.
func writeSymbolImages(out string) ([]Fixture, error) {
	dir := filepath.Join(out, "images")
	if err := testutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	var fixtures []Fixture
	for i, text := range payloads {
		cfg := testutil.DefaultSceneConfig(text)
		cfg.Size = testutil.MediumSize
		cfg.Offset = image.Pt(i*20-30, i*10-15)
		img, err := testutil.GenerateScene(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to render scene for %q: %w", text, err)
		}
		for _, ext := range []string{".png", ".jpg"} {
			name := fmt.Sprintf("symbol_%d%s", i+1, ext)
			if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
				return nil, fmt.Errorf("failed to save %s: %w", name, err)
			}
			fixtures = append(fixtures, Fixture{
				Name: name, File: filepath.Join("images", name), Kind: "image",
				Expected: text, Found: true,
			})
		}
	}

	noise := testutil.NoiseImage(testutil.SmallSize, 7)
	if err := imaging.Save(noise, filepath.Join(dir, "noise.png")); err != nil {
		return nil, fmt.Errorf("failed to save noise image: %w", err)
	}
	fixtures = append(fixtures, Fixture{Name: "noise.png", File: filepath.Join("images", "noise.png"), Kind: "image"})
	return fixtures, nil
}

// writeRawFrames dumps the first payload in every packed raw layout.
func writeRawFrames(out string) ([]Fixture, error) {
	dir := filepath.Join(out, "frames")
	if err := testutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}
	img, err := testutil.GenerateScene(testutil.DefaultSceneConfig(payloads[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to render scene: %w", err)
	}

	var fixtures []Fixture
	for _, layout := range []frame.Layout{frame.LayoutNV21, frame.LayoutNV12, frame.LayoutI420} {
		f, err := frame.FromImage(img, frame.SynthOptions{Layout: layout})
		if err != nil {
			return nil, fmt.Errorf("failed to build %s frame: %w", layout, err)
		}
		raw, err := frame.Bytes(f)
		if err != nil {
			return nil, fmt.Errorf("failed to pack %s frame: %w", layout, err)
		}
		name := frame.RawName("preview", frame.RawSpec{Width: f.Width, Height: f.Height, Layout: layout})
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		fixtures = append(fixtures, Fixture{
			Name: name, File: filepath.Join("frames", name), Kind: "frame",
			Expected: payloads[0], Found: true, Layout: string(layout),
		})
	}
	return fixtures, nil
}

// writeSymbolPDF imports one scene per payload as a page of a single PDF.
func writeSymbolPDF(out string) ([]Fixture, error) {
	dir := filepath.Join(out, "pdf")
	tmp, err := os.MkdirTemp("", "framescan-pdf-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	var imgs []string
	for i, text := range payloads {
		img, err := testutil.GenerateScene(testutil.DefaultSceneConfig(text))
		if err != nil {
			return nil, fmt.Errorf("failed to render scene for %q: %w", text, err)
		}
		path := filepath.Join(tmp, fmt.Sprintf("page_%d.png", i+1))
		if err := imaging.Save(img, path); err != nil {
			return nil, err
		}
		imgs = append(imgs, path)
	}

	if err := testutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create pdf directory: %w", err)
	}
	target := filepath.Join(dir, "symbols.pdf")
	_ = os.Remove(target)
	if err := api.ImportImagesFile(imgs, target, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}
	return []Fixture{{
		Name: "symbols.pdf", File: filepath.Join("pdf", "symbols.pdf"), Kind: "pdf",
		Expected: payloads[0], Found: true, Pages: len(payloads),
	}}, nil
}

func saveManifest(fixtures []Fixture, dir string) error {
	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := testutil.EnsureDir(dir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o600)
}
