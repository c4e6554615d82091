package library

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// File is one candidate for import.
type File interface {
	Name() string
	Size() int64
	// Type is the declared media type, e.g. "audio/mpeg".
	Type() string
	Open() (io.ReadCloser, error)
}

// IsAudio reports whether the declared media type is audio/*.
func IsAudio(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "audio/")
}

// TypeByName guesses a media type from a file extension.
func TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	}
	return mime.TypeByExtension(ext)
}

type memFile struct {
	name, mediaType string
	data            []byte
}

// BytesFile wraps an in-memory payload.
func BytesFile(name, mediaType string, data []byte) File {
	return &memFile{name: name, mediaType: mediaType, data: data}
}

func (f *memFile) Name() string { return f.name }
func (f *memFile) Size() int64  { return int64(len(f.data)) }
func (f *memFile) Type() string { return f.mediaType }
func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type diskFile struct {
	path, mediaType string
	size            int64
}

// PathFile stats path and declares its media type from the extension.
func PathFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &diskFile{path: path, mediaType: TypeByName(path), size: info.Size()}, nil
}

func (f *diskFile) Name() string { return filepath.Base(f.path) }
func (f *diskFile) Size() int64  { return f.size }
func (f *diskFile) Type() string { return f.mediaType }
func (f *diskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type partFile struct {
	header *multipart.FileHeader
}

// MultipartFile adapts an uploaded form part. The declared type is the
// part's Content-Type, falling back to the extension.
func MultipartFile(h *multipart.FileHeader) File {
	return &partFile{header: h}
}

func (f *partFile) Name() string { return filepath.Base(f.header.Filename) }
func (f *partFile) Size() int64  { return f.header.Size }
func (f *partFile) Type() string {
	if ct := f.header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return TypeByName(f.header.Filename)
}
func (f *partFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}
