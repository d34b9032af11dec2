package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProjectID(t *testing.T) {
	const id = "65a1f0c2b3d4e5f6a7b8c9d0"
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"project url", "https://example.com/stg_online-apmt/" + id + "/", id, true},
		{"project url without slash", "https://example.com/stg_online-apmt/" + id, id, true},
		{"path segment", "https://example.com/projects/" + id + "/details", id, true},
		{"trailing segment", "https://example.com/p/" + id, id, true},
		{"bare id", id, id, true},
		{"bare id with spaces", "  " + id + "\n", id, true},
		{"upper case kept", "65A1F0C2B3D4E5F6A7B8C9D0", "65A1F0C2B3D4E5F6A7B8C9D0", true},
		{"embedded run", "id=" + id + "&x=1", id, true},
		{"too short", "65a1f0c2b3d4e5f6a7b8c9d", "", false},
		{"not hex", "zza1f0c2b3d4e5f6a7b8c9d0", "", false},
		{"empty", "", "", false},
		{"plain text", "HIMS-TEST-123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractProjectID(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractProjectID_PrefersProjectPath(t *testing.T) {
	const (
		other   = "aaaaaaaaaaaaaaaaaaaaaaaa"
		project = "bbbbbbbbbbbbbbbbbbbbbbbb"
	)
	got, ok := ExtractProjectID("https://x.test/" + other + "/stg_online-apmt/" + project)
	assert.True(t, ok)
	assert.Equal(t, project, got)
}

func TestValidProjectID(t *testing.T) {
	assert.True(t, ValidProjectID("0123456789abcdefABCDEF01"))
	assert.False(t, ValidProjectID("0123456789abcdefABCDEF012"))
	assert.False(t, ValidProjectID(""))
}

func TestInspect(t *testing.T) {
	info := Inspect("https://example.com/stg_online-apmt/65a1f0c2b3d4e5f6a7b8c9d0")
	assert.True(t, info.IsURL)
	assert.Equal(t, "example.com", info.Host)
	assert.Equal(t, "65a1f0c2b3d4e5f6a7b8c9d0", info.ProjectID)

	info = Inspect("HIMS-TEST-123")
	assert.False(t, info.IsURL)
	assert.Empty(t, info.ProjectID)
}
