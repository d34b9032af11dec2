package cmd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render TEXT",
		Short: "Render a QR symbol as an image or raw camera frame",
		Long: `Render TEXT as a QR symbol.

The output format follows the extension of --output: image extensions (.png,
.jpg, .bmp, .tif) write an image, raw frame extensions (.nv21, .nv12, .i420,
.yuv) write a YUV 4:2:0 dump named like symbol_640x480.nv21 so it can be fed
back into "framescan frame".

Examples:
  framescan render "HIMS-TEST-123" -o symbol.png
  framescan render "HIMS-TEST-123" -o preview.nv21 --size 640x480
  framescan render "https://example.com" -o big.png --scale 8 --level high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				return errors.New("--output is required")
			}
			opts := render.DefaultOptions()
			opts.Scale, _ = cmd.Flags().GetInt("scale")
			opts.Level, _ = cmd.Flags().GetString("level")
			opts.Margin, _ = cmd.Flags().GetInt("margin")
			opts.NoBorder, _ = cmd.Flags().GetBool("no-border")
			size, _ := cmd.Flags().GetString("size")

			sym, err := render.QR(args[0], opts)
			if err != nil {
				return err
			}
			img, err := placeSymbol(sym, size)
			if err != nil {
				return err
			}

			path := out
			if frame.IsRawName(out) {
				path, err = writeRawFrame(img, out)
			} else {
				err = render.Save(img, out)
			}
			if err != nil {
				return err
			}
			a.log().Debug("Symbol rendered", "text", args[0], "path", path)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringP("output", "o", "", "output file; the extension selects image or raw frame output")
	cmd.Flags().Int("scale", 4, "module size in pixels")
	cmd.Flags().String("level", render.LevelMedium, "error correction level: low, medium, high, highest")
	cmd.Flags().Int("margin", 0, "extra white pixels around the symbol")
	cmd.Flags().Bool("no-border", false, "omit the quiet zone")
	cmd.Flags().String("size", "", "canvas size WIDTHxHEIGHT; the symbol is centered (default: symbol size)")
	return cmd
}

// placeSymbol centers sym on a white canvas. Without an explicit size the
// canvas is the symbol rounded up to even dimensions, as frames require.
func placeSymbol(sym image.Image, size string) (image.Image, error) {
	b := sym.Bounds()
	w, h := b.Dx()+b.Dx()%2, b.Dy()+b.Dy()%2
	if size != "" {
		if _, err := fmt.Sscanf(strings.ToLower(size), "%dx%d", &w, &h); err != nil {
			return nil, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT)", size)
		}
	}
	if w == b.Dx() && h == b.Dy() {
		return sym, nil
	}
	return render.Place(sym, w, h, color.White)
}

// writeRawFrame writes img as a raw frame dump and returns the path used.
// The geometry is added to the name unless it already carries it.
func writeRawFrame(img image.Image, out string) (string, error) {
	ext := filepath.Ext(out)
	layout := frame.Layout(strings.ToLower(strings.TrimPrefix(ext, ".")))
	if layout == "yuv" {
		layout = frame.LayoutNV21
	}
	f, err := frame.FromImage(img, frame.SynthOptions{Layout: layout})
	if err != nil {
		return "", err
	}
	data, err := frame.Bytes(f)
	if err != nil {
		return "", err
	}

	spec := frame.RawSpec{Width: f.Width, Height: f.Height, Layout: layout}
	path := out
	if parsed, ok := frame.ParseRawName(out); !ok || parsed.Width != f.Width || parsed.Height != f.Height {
		path = frame.RawName(strings.TrimSuffix(out, ext), spec)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}
	return path, nil
}
