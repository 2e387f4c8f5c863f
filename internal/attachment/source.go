package attachment

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"attachr/internal/domain"
)

// Source is the input to Store: a PathSource, BytesSource or StreamSource.
type Source interface {
	stage() (*StagedFile, error)
}

// PathSource reads a file from the local filesystem.
type PathSource struct {
	Path string
}

// BytesSource is an in-memory buffer with its logical filename.
type BytesSource struct {
	Data     []byte
	Filename string
}

// StreamSource is a reader with its logical filename. It is drained once.
type StreamSource struct {
	Reader   io.Reader
	Filename string
}

// StagedFile is the normalized, read-only form of every Source.
type StagedFile struct {
	Filename string
	Ext      string
	data     []byte
}

// Stage normalizes src into a StagedFile.
func Stage(src Source) (*StagedFile, error) {
	if src == nil {
		return nil, domain.ErrEmptySource
	}
	return src.stage()
}

func (s PathSource) stage() (*StagedFile, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", s.Path, err)
	}
	return newStagedFile(filepath.Base(s.Path), data)
}

func (s BytesSource) stage() (*StagedFile, error) {
	return newStagedFile(s.Filename, append([]byte(nil), s.Data...))
}

func (s StreamSource) stage() (*StagedFile, error) {
	if s.Reader == nil {
		return nil, domain.ErrEmptySource
	}
	data, err := io.ReadAll(s.Reader)
	if err != nil {
		return nil, fmt.Errorf("reading source stream: %w", err)
	}
	return newStagedFile(s.Filename, data)
}

func newStagedFile(filename string, data []byte) (*StagedFile, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, domain.ErrEmptySource
	}
	return &StagedFile{
		Filename: filename,
		Ext:      strings.TrimPrefix(filepath.Ext(filename), "."),
		data:     data,
	}, nil
}

// nameOnly describes a stored file by name alone, for URL and delete paths.
func nameOnly(basename string) *StagedFile {
	return &StagedFile{
		Filename: basename,
		Ext:      strings.TrimPrefix(filepath.Ext(basename), "."),
	}
}

// Bytes returns the staged content. Callers must not modify it.
func (f *StagedFile) Bytes() []byte {
	return f.data
}

// Reader returns a fresh reader over the staged content.
func (f *StagedFile) Reader() io.Reader {
	return bytes.NewReader(f.data)
}

// Extension returns the extension without its dot.
func (f *StagedFile) Extension() string {
	return f.Ext
}

// Name returns the filename without its extension.
func (f *StagedFile) Name() string {
	return strings.TrimSuffix(f.Filename, filepath.Ext(f.Filename))
}

// Size returns the content length in bytes.
func (f *StagedFile) Size() int64 {
	return int64(len(f.data))
}
