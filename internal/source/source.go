// Package source supplies the raw JSON text for a benchmark run.
package source

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed data.json
var bundled embed.FS

// SampleName is the file name of the bundled sample document.
const SampleName = "data.json"

// Loader returns the complete source text. It is called once per job.
type Loader interface {
	Load(ctx context.Context) (string, error)
}

// Func adapts a plain function to Loader.
type Func func(ctx context.Context) (string, error)

// Load calls f.
func (f Func) Load(ctx context.Context) (string, error) {
	return f(ctx)
}

// File reads the source from a path on disk.
type File struct {
	Path     string
	readFile func(name string) ([]byte, error)
}

// NewFile creates a loader for path.
func NewFile(path string) *File {
	return &File{Path: path, readFile: os.ReadFile}
}

// Load reads the whole file.
func (f *File) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return "", fmt.Errorf("source path is empty")
	}
	data, err := f.readFile(path)
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", path, err)
	}
	return string(data), nil
}

// FS reads a named file from a filesystem such as embedded assets.
type FS struct {
	FS   fs.FS
	Name string
}

// Load reads the named file.
func (s FS) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := fs.ReadFile(s.FS, s.Name)
	if err != nil {
		return "", fmt.Errorf("read asset %s: %w", s.Name, err)
	}
	return string(data), nil
}

// Bundled returns a loader for the sample document shipped with the binary.
func Bundled() Loader {
	return FS{FS: bundled, Name: SampleName}
}

// ForPath returns a file loader, or the bundled sample when path is empty.
func ForPath(path string) Loader {
	if strings.TrimSpace(path) == "" {
		return Bundled()
	}
	return NewFile(path)
}

// Describe names the source behind a loader for logs and UI.
func Describe(l Loader) string {
	switch v := l.(type) {
	case *File:
		return v.Path
	case FS:
		return "bundled:" + v.Name
	default:
		return "custom"
	}
}
