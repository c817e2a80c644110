package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidImage = errors.New("image must be a png, jpg, jpeg or gif file")

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// AllowedImage reports whether filename carries a permitted image extension.
func AllowedImage(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces an uploaded file name to a plain ASCII basename that
// cannot escape the upload directory. It may return "".
func SecureFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if s, _, err := transform.String(t, name); err == nil {
		name = s
	}

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Images writes uploads into Dir and exposes them under URLPrefix.
type Images struct {
	Dir       string
	URLPrefix string
}

// Save stores the upload and returns its public URL. A file with the same
// sanitized name is overwritten.
func (s *Images) Save(filename string, r io.Reader) (string, error) {
	if !AllowedImage(filename) {
		return "", ErrInvalidImage
	}
	name := SecureFilename(filename)
	if name == "" || !AllowedImage(name) {
		return "", ErrInvalidImage
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	return strings.TrimRight(s.URLPrefix, "/") + "/" + name, nil
}
