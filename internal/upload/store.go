package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes uploaded files into a single directory that is also served
// read-only under URLPrefix. A reference returned by Save is the URL path
// without its leading slash, e.g. "uploads/1715000000000000000-1a2b3c4d.png".
type Store struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewStore(dir, urlPrefix string) *Store {
	prefix := "/" + strings.Trim(urlPrefix, "/")
	if prefix == "/" {
		prefix = "/uploads"
	}
	return &Store{
		dir:       dir,
		urlPrefix: prefix,
		now:       time.Now,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) URLPrefix() string {
	return s.urlPrefix
}

// EnsureDir creates the upload directory if it does not exist yet.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir failed: %w", err)
	}
	return nil
}

// Save persists the file and returns its reference. A nil header means no
// file was sent and yields a nil reference.
func (s *Store) Save(fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file failed: %w", err)
	}
	defer src.Close()

	name := s.newName(fh.Filename)
	dstPath := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file failed: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("write upload file failed: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("close upload file failed: %w", err)
	}

	ref := path.Join(strings.TrimPrefix(s.urlPrefix, "/"), name)
	return &ref, nil
}

// Remove deletes the file behind ref. A file that is already gone is not an
// error. Only the base name of ref is used, so it cannot point outside dir.
func (s *Store) Remove(ref string) error {
	name := path.Base(ref)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload file failed: %w", err)
	}
	return nil
}

// Path returns the on-disk location of ref.
func (s *Store) Path(ref string) string {
	return filepath.Join(s.dir, path.Base(ref))
}

func (s *Store) newName(original string) string {
	ext := filepath.Ext(original)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s%s", s.now().UnixNano(), suffix, ext)
}
