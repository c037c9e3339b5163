package extensions

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/apperr"
)

// buildArchive assembles a zip with the given files in memory
func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func validArchive(t *testing.T) []byte {
	return buildArchive(t, map[string]string{
		"manifest.json": `{"name":"Tab Sync","version":"1.0.0"}`,
		"background.js": "console.log('hi')",
	})
}

func TestValidateArchive(t *testing.T) {
	manifest, version, err := ValidateArchive(validArchive(t))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)
	assert.JSONEq(t, `{"name":"Tab Sync","version":"1.0.0"}`, string(manifest))
}

func TestValidateArchiveErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("definitely not a zip")},
		{"missing manifest", buildArchive(t, map[string]string{"background.js": "x"})},
		{"manifest not at root", buildArchive(t, map[string]string{"nested/manifest.json": `{"name":"a","version":"1"}`})},
		{"manifest invalid json", buildArchive(t, map[string]string{"manifest.json": "{nope"})},
		{"manifest missing name", buildArchive(t, map[string]string{"manifest.json": `{"version":"1.0.0"}`})},
		{"manifest missing version", buildArchive(t, map[string]string{"manifest.json": `{"name":"Tab Sync"}`})},
		{"manifest blank name", buildArchive(t, map[string]string{"manifest.json": `{"name":"  ","version":"1.0.0"}`})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidateArchive(tt.data)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestHashArchive(t *testing.T) {
	h := HashArchive([]byte("content"))
	assert.True(t, strings.HasPrefix(h, "sha256:"))
	assert.Len(t, h, len("sha256:")+64)
	assert.Equal(t, h, HashArchive([]byte("content")))
	assert.NotEqual(t, h, HashArchive([]byte("other")))
}

func TestBlobPaths(t *testing.T) {
	assert.Equal(t, "extensions/u1/unsigned/7.zip", UnsignedBlobPath("u1", 7))
	assert.Equal(t, "extensions/u1/signed/7.zip", SignedBlobPath("u1", 7))
	assert.Equal(t, "uploads/abc.zip", UploadBlobPath("abc"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tab Sync", "tab-sync"},
		{"  Tab   Sync!  ", "tab-sync"},
		{"UPPER_case.name", "upper-case-name"},
		{"already-fine", "already-fine"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}
