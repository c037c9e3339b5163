package extensions

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state shared by extensions and versions. The zero
// value is Null, the state of an extension with no versions.
type Status string

const (
	StatusNull     Status = ""
	StatusPending  Status = "pending"
	StatusPublic   Status = "public"
	StatusRejected Status = "rejected"
	StatusBlocked  Status = "blocked"
	StatusObsolete Status = "obsolete"
)

// ParseStatus parses the wire form of a status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNull, StatusPending, StatusPublic, StatusRejected, StatusBlocked, StatusObsolete:
		return Status(s), nil
	}
	return StatusNull, fmt.Errorf("unknown status: %q", s)
}

func (s Status) String() string {
	return string(s)
}

// Extension is a listed marketplace extension
type Extension struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Author      string     `json:"author,omitempty"`
	Description string     `json:"description,omitempty"`
	IconHash    string     `json:"icon_hash,omitempty"`
	Status      Status     `json:"status"`
	Disabled    bool       `json:"disabled"`
	Deleted     bool       `json:"-"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	AuthorIDs   []int64    `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Version is one uploaded release of an extension
type Version struct {
	ID          int64           `json:"id"`
	ExtensionID int64           `json:"extension_id"`
	Version     string          `json:"version"`
	Status      Status          `json:"status"`
	Size        int64           `json:"size"`
	Manifest    json.RawMessage `json:"manifest,omitempty"`
	Deleted     bool            `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Upload is a validated artifact waiting to be attached to an extension
type Upload struct {
	ID        string          `json:"id"`
	OwnerID   int64           `json:"-"`
	Filename  string          `json:"filename"`
	Hash      string          `json:"hash"`
	BlobPath  string          `json:"-"`
	Valid     bool            `json:"valid"`
	Manifest  json.RawMessage `json:"manifest,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsAuthor reports whether the user is listed as an author of the extension
func (e *Extension) IsAuthor(userID int64) bool {
	if userID == 0 {
		return false
	}
	for _, id := range e.AuthorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// UnsignedBlobPath is where the private store keeps a version's upload
func UnsignedBlobPath(extensionUUID string, versionID int64) string {
	return fmt.Sprintf("extensions/%s/unsigned/%d.zip", extensionUUID, versionID)
}

// SignedBlobPath is where the public store keeps a version's signed artifact
func SignedBlobPath(extensionUUID string, versionID int64) string {
	return fmt.Sprintf("extensions/%s/signed/%d.zip", extensionUUID, versionID)
}
