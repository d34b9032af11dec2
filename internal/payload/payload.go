// Package payload interprets the text of scanned symbols.
package payload

import (
	"net/url"
	"regexp"
	"strings"
)

// ProjectIDLength is the length of a project ID in hex characters.
const ProjectIDLength = 24

var (
	projectIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/stg_online-apmt/([a-f0-9]{24})/?`),
		regexp.MustCompile(`(?i)/([a-f0-9]{24})(?:/|$)`),
		regexp.MustCompile(`(?i)([a-f0-9]{24})`),
	}
	projectIDExact = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)
)

// ExtractProjectID finds the 24-hex project ID in a scanned payload, either a
// project URL or the bare ID. Patterns are tried from most to least specific;
// the matched text keeps its case.
func ExtractProjectID(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, re := range projectIDPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if ValidProjectID(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// ValidProjectID reports whether id is exactly 24 hex characters.
func ValidProjectID(id string) bool {
	return projectIDExact.MatchString(id)
}

// Info summarizes a scanned payload.
type Info struct {
	Text      string `json:"text" yaml:"text"`
	IsURL     bool   `json:"is_url" yaml:"is_url"`
	Host      string `json:"host,omitempty" yaml:"host,omitempty"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
}

// Inspect classifies text and extracts the project ID when present.
func Inspect(text string) Info {
	info := Info{Text: text}
	if u, err := url.Parse(strings.TrimSpace(text)); err == nil && u.Scheme != "" && u.Host != "" {
		info.IsURL = true
		info.Host = u.Host
	}
	info.ProjectID, _ = ExtractProjectID(text)
	return info
}
