package cmd

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/batch"
	"github.com/MeKo-Tech/framescan/internal/payload"
	"github.com/MeKo-Tech/framescan/internal/pdf"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// pdfSymbol is one decoded symbol of a document, flattened for CSV and YAML.
type pdfSymbol struct {
	File      string `json:"file" yaml:"file"`
	Page      int    `json:"page" yaml:"page"`
	Image     int    `json:"image" yaml:"image"`
	Format    string `json:"format" yaml:"format"`
	Text      string `json:"text" yaml:"text"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
}

func newPdfCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf FILE...",
		Short: "Decode symbols from the images embedded in PDF files",
		Long: `Extract the images embedded in PDF pages and decode the symbols they hold.

Each image is converted into a camera frame and scanned like a preview frame;
--direct decodes the images as they are and reports every symbol.

Examples:
  framescan pdf labels.pdf
  framescan pdf labels.pdf --pages 1-3,5 --format json
  framescan pdf locked.pdf --password secret --direct`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pdf.Options{}
			opts.Pages, _ = cmd.Flags().GetString("pages")
			opts.UserPassword, _ = cmd.Flags().GetString("password")
			opts.OwnerPassword, _ = cmd.Flags().GetString("owner-password")
			direct, _ := cmd.Flags().GetBool("direct")

			scan, err := a.pdfScanFunc(cmd, direct)
			if err != nil {
				return err
			}

			format, file, projectID := a.outputSettings(cmd)
			if !batch.IsFormat(format) {
				return fmt.Errorf("unsupported output format: %q", format)
			}

			docs := make([]*pdf.DocumentResult, 0, len(args))
			for _, path := range args {
				doc, err := pdf.ScanFile(cmd.Context(), path, opts, scan)
				if err != nil {
					if errors.Is(err, pdf.ErrEncrypted) {
						return fmt.Errorf("%s: %w (use --password)", path, err)
					}
					return fmt.Errorf("%s: %w", path, err)
				}
				a.log().Info("PDF scanned", "file", path, "pages", len(doc.Pages),
					"symbols", doc.SymbolCount(), "duration_ms", doc.Processing.TotalTimeMs)
				docs = append(docs, doc)
			}

			out, err := formatPDFResults(docs, format, projectID)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), file, out)
		},
	}

	cmd.Flags().String("pages", "", "page range, e.g. 1-3,5 (default: all pages)")
	cmd.Flags().String("password", "", "user password of an encrypted PDF")
	cmd.Flags().String("owner-password", "", "owner password of an encrypted PDF")
	cmd.Flags().Bool("direct", false, "decode embedded images directly and report every symbol")
	scannerFlags(cmd)
	outputFlags(cmd)
	return cmd
}

func (a *app) pdfScanFunc(cmd *cobra.Command, direct bool) (pdf.ScanFunc, error) {
	sc := a.scannerConfig(cmd)
	if direct {
		opts, err := sc.DecodeOptions()
		if err != nil {
			return nil, err
		}
		opts.Multi = true
		return pdf.BackendScan(barcode.NewBackend(), opts), nil
	}
	proc, err := scanner.NewBuilder().WithConfig(sc).WithLogger(a.log()).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	return pdf.FrameScan(proc, a.settings().ToConstraints()), nil
}

func pdfSymbols(docs []*pdf.DocumentResult, projectID bool) []pdfSymbol {
	out := []pdfSymbol{}
	for _, d := range docs {
		for _, p := range d.Pages {
			for _, img := range p.Images {
				for _, s := range img.Symbols {
					sym := pdfSymbol{File: d.Filename, Page: p.PageNumber, Image: img.ImageIndex,
						Format: s.Format.String(), Text: s.Text}
					if projectID {
						sym.ProjectID, _ = payload.ExtractProjectID(s.Text)
					}
					out = append(out, sym)
				}
			}
		}
	}
	return out
}

func formatPDFResults(docs []*pdf.DocumentResult, format string, projectID bool) (string, error) {
	switch format {
	case batch.FormatJSON:
		var v any = docs
		if len(docs) == 1 {
			v = docs[0]
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case batch.FormatYAML:
		b, err := yaml.Marshal(struct {
			Symbols []pdfSymbol `yaml:"symbols"`
		}{Symbols: pdfSymbols(docs, projectID)})
		if err != nil {
			return "", err
		}
		return string(b), nil
	case batch.FormatCSV:
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		header := []string{"file", "page", "image", "format", "text"}
		if projectID {
			header = append(header, "project_id")
		}
		if err := w.Write(header); err != nil {
			return "", err
		}
		for _, s := range pdfSymbols(docs, projectID) {
			row := []string{s.File, strconv.Itoa(s.Page), strconv.Itoa(s.Image), s.Format, s.Text}
			if projectID {
				row = append(row, s.ProjectID)
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
		w.Flush()
		return sb.String(), w.Error()
	default:
		var sb strings.Builder
		for i, d := range docs {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "# %s (%d pages, %d symbols)\n", d.Filename, d.TotalPages, d.SymbolCount())
			for _, s := range pdfSymbols([]*pdf.DocumentResult{d}, projectID) {
				fmt.Fprintf(&sb, "page %d: %s", s.Page, s.Text)
				if s.ProjectID != "" {
					fmt.Fprintf(&sb, " (project %s)", s.ProjectID)
				}
				sb.WriteString("\n")
			}
		}
		return sb.String(), nil
	}
}
