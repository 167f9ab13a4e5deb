// Package media stores uploaded book covers on the local file system.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ErrNotImage is returned when an upload does not look like an image.
var ErrNotImage = errors.New("upload a valid image")

// URLPrefix is where the HTTP server exposes the media root.
const URLPrefix = "/media/"

// Store writes files below Root.
type Store struct {
	Root string
}

// CoverDir returns the directory, relative to the root, holding the covers
// of a book with the given title.
func CoverDir(title string) string {
	dir := slug.Make(title)
	if dir == "" {
		dir = "untitled"
	}
	return path.Join("books", dir)
}

// SaveCover validates that fh is an image and writes it under the book's
// cover directory. An existing file is never overwritten; the new file gets
// a random suffix instead. It returns the path relative to the root, with
// forward slashes.
func (s *Store) SaveCover(fh *multipart.FileHeader, title string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mime, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("sniff upload: %w", err)
	}
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", ErrNotImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	dir := CoverDir(title)
	name := fileName(fh.Filename, mime.Extension())
	if err := os.MkdirAll(filepath.Join(s.Root, filepath.FromSlash(dir)), 0o755); err != nil {
		return "", fmt.Errorf("create cover directory: %w", err)
	}
	rel := path.Join(dir, name)
	out, err := s.createExclusive(rel)
	if errors.Is(err, os.ErrExist) {
		// Another book already owns this name
		ext := path.Ext(name)
		rel = path.Join(dir, strings.TrimSuffix(name, ext)+"_"+uuid.NewString()[:8]+ext)
		out, err = s.createExclusive(rel)
	}
	if err != nil {
		return "", fmt.Errorf("create cover file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = s.Remove(rel) // Drop the partial file
		return "", fmt.Errorf("write cover file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close cover file: %w", err)
	}
	return rel, nil
}

// createExclusive creates rel below the root, failing with os.ErrExist when
// the file is already there.
func (s *Store) createExclusive(rel string) (*os.File, error) {
	return os.OpenFile(filepath.Join(s.Root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// Remove deletes a previously saved file. Missing files are ignored.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+rel))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

// URL returns the public URL of a stored file.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + strings.TrimPrefix(rel, "/")
}

// fileName keeps the uploaded base name, slugified, with the extension of
// the detected type.
func fileName(uploaded, detectedExt string) string {
	base := filepath.Base(strings.ReplaceAll(uploaded, "\\", "/"))
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "cover"
	}
	ext := detectedExt
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(base))
	}
	return name + ext
}
