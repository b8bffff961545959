// Package blob stores the audio payloads referenced by posts, comments
// and profiles. A reference is an opaque relative path; nothing outside
// this package depends on how or where the bytes live.
package blob

import "io"

// Kind names the category a blob belongs to. It becomes the first path
// segment of the reference, so each category can be cleaned up or
// relocated independently.
type Kind string

const (
	KindPost    Kind = "posts"
	KindComment Kind = "comments"
	KindBio     Kind = "bio"
	KindMusic   Kind = "music"
)

// Store persists audio blobs and hands back opaque references.
type Store interface {
	// Save writes the payload and returns its reference.
	Save(kind Kind, r io.Reader) (string, error)
	// Delete removes the blob behind ref. Deleting an absent blob is
	// not an error.
	Delete(ref string) error
	// URL resolves ref to the public path clients fetch it from.
	URL(ref string) string
}
