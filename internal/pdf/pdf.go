// Package pdf extracts the images embedded in PDF documents so they can be
// scanned for symbols.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEncrypted is returned when a document needs a password that was not supplied.
var ErrEncrypted = errors.New("pdf: document is encrypted")

// Options selects pages and supplies credentials for encrypted documents.
type Options struct {
	// Pages is a range such as "1-3,5". Empty means all pages.
	Pages         string
	UserPassword  string
	OwnerPassword string
}

// PageImage is one image extracted from a page.
type PageImage struct {
	Page  int
	Index int
	Name  string
	Type  string
	Image image.Image
}

func configuration(opts Options) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = opts.UserPassword
	conf.OwnerPW = opts.OwnerPassword
	return conf
}

// ExtractImages decodes the images embedded in the selected pages of a PDF.
// Images in encodings the image decoders cannot read are skipped.
func ExtractImages(path string, opts Options) ([]PageImage, error) {
	pages, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}
	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	f, err := os.Open(path) //nolint:gosec // G304: reading a user supplied PDF is expected
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []PageImage
	perPage := make(map[int]int)
	digest := func(img model.Image, _ bool, _ int) error {
		decoded, _, err := imageio.DecodeImage(img)
		if err != nil {
			return nil
		}
		perPage[img.PageNr]++
		out = append(out, PageImage{
			Page:  img.PageNr,
			Index: perPage[img.PageNr],
			Name:  img.Name,
			Type:  img.FileType,
			Image: decoded,
		})
		return nil
	}

	if err := api.ExtractImages(f, selected, digest, configuration(opts)); err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// PageCount returns the number of pages in the document.
func PageCount(path string, opts Options) (int, error) {
	f, err := os.Open(path) //nolint:gosec // G304: reading a user supplied PDF is expected
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	n, err := api.PageCount(f, configuration(opts))
	if err != nil {
		if isEncryptionError(err) {
			return 0, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// IsEncrypted reports whether the document cannot be read without a password.
func IsEncrypted(path string) (bool, error) {
	_, err := api.PageCountFile(path)
	if err == nil {
		return false, nil
	}
	if isEncryptionError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
}

// pdfcpu reports credential problems only through its error text.
func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypted") ||
		strings.Contains(msg, "password") ||
		strings.Contains(msg, "decrypt")
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for _, p := range tokenPages {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 {
			return nil, fmt.Errorf("page numbers start at 1: %d", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	if page < 1 {
		return nil, fmt.Errorf("page numbers start at 1: %d", page)
	}
	return []int{page}, nil
}
