package folio

import (
	"encoding/json"
	"io"
)

// Section keys used by the portfolio pages. The store accepts any key; these
// are the ones the public pages and admin panel agree on.
const (
	SectionHero          = "hero"
	SectionAbout         = "about"
	SectionProjects      = "projects"
	SectionSkills        = "skills"
	SectionConnect       = "connect"
	SectionFooter        = "footer"
	SectionModelSettings = "modelSettings"
	SectionHeader        = "header"
)

// Field names written into documents by the asset attach flows.
const (
	FieldResumeURL = "resumeUrl"
	FieldSkillList = "skillList"
)

// MaxKeyLength bounds a section key.
const MaxKeyLength = 255

// Content is the full key to document mapping returned by a read of all
// sections. Documents are kept as raw JSON so they round-trip untouched.
type Content map[string]json.RawMessage

// Entry is a single stored row as the repository sees it.
type Entry struct {
	Key   string
	Value []byte
}

// Asset describes an uploaded blob.
type Asset struct {
	ObjectKey string `json:"publicId"`
	URL       string `json:"url"`
}

// UploadAssetRequest contains parameters for uploading a blob without
// touching any section.
type UploadAssetRequest struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
}

// AttachAssetRequest uploads a blob and records its public URL under Field in
// the Section document.
type AttachAssetRequest struct {
	Section     string
	Field       string
	ObjectKey   string
	ContentType string
	Reader      io.Reader
}
