package extensions

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platinummonkey/hubcap/pkg/apperr"
)

// manifestFileName is the required entry at the root of every uploaded archive
const manifestFileName = "manifest.json"

// maxManifestBytes bounds how much manifest we read out of an archive
const maxManifestBytes = 1 << 20

// uploadManifest is the subset of the manifest the validator requires
type uploadManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ValidateArchive checks that data is a zip archive with a parseable
// manifest.json at its root naming the extension and its version. It returns
// the raw manifest and the declared version string.
func ValidateArchive(data []byte) (json.RawMessage, string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", apperr.Validation("upload is not a valid zip archive")
	}

	var manifestFile *zip.File
	for _, f := range reader.File {
		if f.Name == manifestFileName {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		return nil, "", apperr.Validation("archive is missing %s", manifestFileName)
	}
	if manifestFile.UncompressedSize64 > maxManifestBytes {
		return nil, "", apperr.Validation("%s exceeds %d bytes", manifestFileName, maxManifestBytes)
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, "", apperr.Validation("failed to open %s", manifestFileName)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, "", apperr.Validation("failed to read %s", manifestFileName)
	}
	raw := buf.Bytes()

	var m uploadManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, "", apperr.Validation("%s is not valid JSON", manifestFileName)
	}
	if strings.TrimSpace(m.Name) == "" {
		return nil, "", apperr.Validation("%s is missing a name", manifestFileName)
	}
	if strings.TrimSpace(m.Version) == "" {
		return nil, "", apperr.Validation("%s is missing a version", manifestFileName)
	}

	return json.RawMessage(raw), m.Version, nil
}

// HashArchive computes the content hash recorded on uploads
func HashArchive(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// UploadBlobPath is where the private store keeps a raw upload before it is
// attached to an extension
func UploadBlobPath(uploadID string) string {
	return fmt.Sprintf("uploads/%s.zip", uploadID)
}
