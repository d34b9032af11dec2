package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// IsFormat reports whether name is a supported output format.
func IsFormat(name string) bool {
	switch name {
	case FormatText, FormatJSON, FormatCSV, FormatYAML:
		return true
	default:
		return false
	}
}

// FormatItems formats scan items in the given format. The project ID column
// is included when projectID is set.
func FormatItems(items []Item, format string, projectID bool) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(items)
	case FormatCSV:
		return formatCSV(items, projectID)
	case FormatYAML:
		return formatYAML(items)
	case FormatText, "":
		return formatText(items, projectID), nil
	default:
		return "", fmt.Errorf("unsupported output format: %q", format)
	}
}

func formatJSON(items []Item) (string, error) {
	out := struct {
		Files []Item `json:"files"`
	}{Files: items}
	if out.Files == nil {
		out.Files = []Item{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func formatYAML(items []Item) (string, error) {
	out := struct {
		Files []Item `yaml:"files"`
	}{Files: items}
	b, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatCSV(items []Item, projectID bool) (string, error) {
	header := []string{"file", "status", "format", "text"}
	if projectID {
		header = append(header, "project_id")
	}
	header = append(header, "error")

	var output strings.Builder
	w := csv.NewWriter(&output)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, it := range items {
		row := []string{it.File, string(it.Status), it.Format, it.Text}
		if projectID {
			row = append(row, it.ProjectID)
		}
		row = append(row, it.Error)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return output.String(), w.Error()
}

func formatText(items []Item, projectID bool) string {
	var output strings.Builder
	for i, it := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		if len(items) > 1 {
			output.WriteString(fmt.Sprintf("# %s\n", it.File))
		}
		switch {
		case it.Error != "":
			output.WriteString(fmt.Sprintf("error: %s\n", it.Error))
		case len(it.Symbols) > 0:
			for _, s := range it.Symbols {
				output.WriteString(s.Text + "\n")
			}
		case it.Found():
			output.WriteString(it.Text + "\n")
		default:
			output.WriteString("(no symbol)\n")
		}
		if projectID && it.ProjectID != "" {
			output.WriteString(fmt.Sprintf("project: %s\n", it.ProjectID))
		}
	}
	return output.String()
}
