package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
)

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies where a manifest comes from. The zero value is invalid;
// build one with the constructors below.
type Source struct {
	kind     SourceKind
	location string
}

// Kind reports the loader modality.
func (s Source) Kind() SourceKind { return s.kind }

// Location returns the path, fs.FS name, or URL the source points at.
func (s Source) Location() string { return s.location }

// SourceFromFile points at a file path.
func SourceFromFile(path string) Source {
	return Source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS identifies an entry inside the loader's configured fs.FS.
func SourceFromFS(name string) Source {
	return Source{kind: SourceKindFS, location: name}
}

// SourceFromURL parses the supplied URL string and returns a Source. It
// panics if the URL is invalid to surface configuration mistakes early.
func SourceFromURL(raw string) Source {
	if raw == "" {
		panic("manifest: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		panic(fmt.Sprintf("manifest: invalid URL %q: %v", raw, err))
	}
	return Source{kind: SourceKindURL, location: raw}
}

// Document pairs the raw manifest payload with its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src.Kind() == "" {
		return Document{}, errors.New("manifest: source is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("manifest: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a defensive copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	return d.source.Location()
}
