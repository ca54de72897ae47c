// Package documents renders exported files (PDF, TXT, PPTX, PNG charts) and
// keeps them in a flat directory served back by name.
package documents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidName = errors.New("invalid document name")
)

// Kind is a supported export format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindTXT  Kind = "txt"
	KindPPTX Kind = "pptx"
	KindPNG  Kind = "png"
)

var contentTypes = map[Kind]string{
	KindPDF:  "application/pdf",
	KindTXT:  "text/plain; charset=utf-8",
	KindPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	KindPNG:  "image/png",
}

// ContentType returns the MIME type served for k.
func (k Kind) ContentType() string {
	if ct, ok := contentTypes[k]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Store writes generated files under dir with random names.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("documents dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes data and returns the generated file name, "<uuid>.<kind>".
func (s *Store) Save(kind Kind, data []byte) (string, error) {
	if _, ok := contentTypes[kind]; !ok {
		return "", fmt.Errorf("unsupported kind %q", kind)
	}
	name := uuid.NewString() + "." + string(kind)
	tmp := filepath.Join(s.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize %s: %w", name, err)
	}
	return name, nil
}

// Lookup resolves a name previously returned by Save to its path and kind.
// Anything that does not look like a generated name is rejected before the
// filesystem is touched.
func (s *Store) Lookup(name string) (string, Kind, error) {
	kind, err := parseName(name)
	if err != nil {
		return "", "", err
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return "", "", ErrNotFound
	}
	return path, kind, nil
}

func parseName(name string) (Kind, error) {
	if name != filepath.Base(name) {
		return "", ErrInvalidName
	}
	stem, ext, ok := strings.Cut(name, ".")
	if !ok {
		return "", ErrInvalidName
	}
	if _, err := uuid.Parse(stem); err != nil {
		return "", ErrInvalidName
	}
	kind := Kind(ext)
	if _, ok := contentTypes[kind]; !ok {
		return "", ErrInvalidName
	}
	return kind, nil
}
