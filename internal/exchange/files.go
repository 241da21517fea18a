package exchange

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrCancelled is returned by a FilePicker when the user dismissed it.
var ErrCancelled = errors.New("file selection cancelled")

// File is a picked file's name and raw contents.
type File struct {
	Name string
	Data []byte
}

// FilePicker asks the user for a document to import.
type FilePicker interface {
	Pick(ctx context.Context) (File, error)
}

// Downloader hands a serialised export to the user.
type Downloader interface {
	Download(ctx context.Context, filename string, data []byte) error
}

// StaticPicker always yields the same file. An empty file counts as a
// dismissed picker.
type StaticPicker File

func (p StaticPicker) Pick(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if p.Name == "" && len(p.Data) == 0 {
		return File{}, ErrCancelled
	}
	return File(p), nil
}

// PathPicker reads the document at Path.
type PathPicker struct {
	Path string
}

func (p PathPicker) Pick(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if p.Path == "" {
		return File{}, ErrCancelled
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", p.Path, err)
	}
	return File{Name: filepath.Base(p.Path), Data: data}, nil
}

// DirDownloader writes downloads into Dir.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MemoryDownloader keeps the last download in memory, for transports that
// stream the file back themselves.
type MemoryDownloader struct {
	mu       sync.Mutex
	filename string
	data     []byte
}

func (d *MemoryDownloader) Download(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filename = filename
	d.data = append([]byte(nil), data...)
	return nil
}

// Last returns the most recent download.
func (d *MemoryDownloader) Last() (string, []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filename, append([]byte(nil), d.data...)
}
