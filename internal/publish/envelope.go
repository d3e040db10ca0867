package publish

import (
	"encoding/json"

	"github.com/npmregistry/registryd/internal/apierr"
)

// Attachment is one entry of a publish envelope's "_attachments" map: a
// base64-encoded tarball keyed by filename.
type Attachment struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
	Length      int64  `json:"length"`
}

// Envelope is the npm publish request body: a package.json-shaped
// document per version plus the base64 tarball(s) riding alongside it.
type Envelope struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	DistTags    map[string]string          `json:"dist-tags"`
	Versions    map[string]json.RawMessage `json:"versions"`
	Attachments map[string]Attachment      `json:"_attachments"`
	Readme      string                     `json:"readme"`
}

func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apierr.Validation("malformed publish envelope: " + err.Error())
	}
	return &env, nil
}

// SingleVersion returns the envelope's lone version string and its raw
// package.json-shaped manifest. A publish envelope must carry exactly one
// version.
func (e *Envelope) SingleVersion() (string, map[string]interface{}, error) {
	if len(e.Versions) != 1 {
		return "", nil, apierr.Validation("publish envelope must contain exactly one version")
	}
	for v, raw := range e.Versions {
		var manifest map[string]interface{}
		if err := json.Unmarshal(raw, &manifest); err != nil {
			return "", nil, apierr.Validation("malformed version manifest: " + err.Error())
		}
		return v, manifest, nil
	}
	panic("unreachable")
}

// SingleAttachment returns the envelope's lone filename/attachment pair,
// enforcing "exactly one tarball per publish".
func (e *Envelope) SingleAttachment() (string, *Attachment, error) {
	if len(e.Attachments) != 1 {
		return "", nil, apierr.Validation("publish envelope must contain exactly one attachment")
	}
	for filename, att := range e.Attachments {
		a := att
		return filename, &a, nil
	}
	panic("unreachable")
}

func manifestString(m map[string]interface{}, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

// manifestJSONBlob re-marshals a nested manifest field (scripts,
// dependencies, ...) back into a JSON text blob for storage, or nil if
// the field is absent.
func manifestJSONBlob(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apierr.Validation("malformed " + key + " field: " + err.Error())
	}
	s := string(b)
	return &s, nil
}

func manifestShasum(m map[string]interface{}) *string {
	dist, ok := m["dist"].(map[string]interface{})
	if !ok {
		return nil
	}
	return manifestString(dist, "shasum")
}
