package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps blobs on the local filesystem under a base directory,
// one subdirectory per Kind. References are slash-separated relative
// paths like "posts/<uuid>.webm".
type LocalStore struct {
	baseDir   string
	publicURL string
}

// NewLocalStore creates the base directory if needed and returns a
// store rooted there. publicURL is the path prefix the files are served
// under, e.g. "/uploads".
func NewLocalStore(baseDir, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir, publicURL: publicURL}, nil
}

func (s *LocalStore) Save(kind Kind, r io.Reader) (string, error) {
	name := uuid.New().String() + ".webm"
	rel := filepath.ToSlash(filepath.Join(string(kind), name))
	abs := filepath.Join(s.baseDir, string(kind), name)

	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", err
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(abs)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(abs)
		return "", err
	}
	return rel, nil
}

func (s *LocalStore) Delete(ref string) error {
	abs, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.publicURL + "/" + ref
}

// resolve maps a reference to an absolute path, rejecting anything that
// would escape the base directory.
func (s *LocalStore) resolve(ref string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(ref))
	if cleaned == "." || filepath.IsAbs(cleaned) || cleaned == ".." ||
		len(cleaned) >= 3 && cleaned[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
