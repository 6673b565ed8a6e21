// Package storage keeps uploaded files on local disk and maps them to the
// public URLs they are served under.  A file stored as
// <root>/<category>/[<owner>/]<name> is served at
// <baseURL>/uploads/<category>/[<owner>/]<name>.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Upload categories.  Each is a top-level directory under the root.
const (
	CategoryProfile        = "pfp"
	CategoryDNI            = "dni"
	CategoryCriminalRecord = "criminal-records"
	CategoryWork           = "work"
)

var categories = map[string]bool{
	CategoryProfile:        true,
	CategoryDNI:            true,
	CategoryCriminalRecord: true,
	CategoryWork:           true,
}

// ErrInvalidPath is returned for an unknown category or a name that would
// escape its directory.
var ErrInvalidPath = errors.New("storage: invalid path")

// Disk stores files below Root.
type Disk struct {
	Root    string
	BaseURL string // API base URL without the trailing slash
}

func NewDisk(root, baseURL string) *Disk {
	return &Disk{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Disk) rel(category, owner, name string) (string, error) {
	if !categories[category] || !cleanSegment(name) || (owner != "" && !cleanSegment(owner)) {
		return "", ErrInvalidPath
	}
	if owner == "" {
		return category + "/" + name, nil
	}
	return category + "/" + owner + "/" + name, nil
}

func cleanSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Save writes r to the file for (category, owner, name) and returns its URL.
// The content is written to a temporary file first so a reader never sees a
// partial upload.
func (d *Disk) Save(category, owner, name string, r io.Reader) (string, error) {
	rel, err := d.rel(category, owner, name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(d.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return d.BaseURL + "/uploads/" + rel, nil
}

// Remove deletes the file served at url.  URLs that do not point into this
// store and files that are already gone are ignored.
func (d *Disk) Remove(url string) error {
	p, ok := d.pathFor(url)
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

func (d *Disk) pathFor(url string) (string, bool) {
	rel, ok := strings.CutPrefix(url, d.BaseURL+"/uploads/")
	if !ok {
		return "", false
	}
	parts := strings.Split(rel, "/")
	if len(parts) < 2 || len(parts) > 3 || !categories[parts[0]] {
		return "", false
	}
	for _, p := range parts[1:] {
		if !cleanSegment(p) {
			return "", false
		}
	}
	return filepath.Join(append([]string{d.Root}, parts...)...), true
}
