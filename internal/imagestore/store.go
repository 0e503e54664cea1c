// Package imagestore keeps uploaded marketplace images. Files are addressed
// by the public URL handed back at upload time; only the final path segment
// is meaningful to a store.
package imagestore

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNotExist    = errors.New("image does not exist")
	ErrInvalidName = errors.New("invalid image name")
)

type Store interface {
	// Save writes data under name and returns its public URL.
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Delete removes the file a URL points at. Missing files yield ErrNotExist.
	Delete(ctx context.Context, imageURL string) error
	// List returns the names of every stored file.
	List(ctx context.Context) ([]string, error)
	// Owns reports whether imageURL points at a file this store handed out.
	Owns(imageURL string) bool
}

// NameFromURL extracts the file name from an image URL or path, dropping
// any query string or fragment.
func NameFromURL(imageURL string) (string, error) {
	raw := strings.TrimSpace(imageURL)
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	name := path.Base(raw)
	if name == "" || name == "." || name == "/" || name == ".." || strings.ContainsAny(name, `\`) {
		return "", ErrInvalidName
	}
	return name, nil
}

// underBase reports whether imageURL is base followed by a single file name.
func underBase(imageURL, base string) bool {
	rest, ok := strings.CutPrefix(strings.TrimSpace(imageURL), base)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return false
	}
	_, err := NameFromURL(rest)
	return err == nil
}
