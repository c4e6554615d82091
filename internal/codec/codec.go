// Package codec picks a beep decoder for an audio payload.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupported is returned when neither the media type nor the file
// extension names a known container.
var ErrUnsupported = errors.New("codec: unsupported format")

// Kind is a decodable container.
type Kind string

const (
	KindMP3    Kind = "mp3"
	KindWAV    Kind = "wav"
	KindFLAC   Kind = "flac"
	KindVorbis Kind = "vorbis"
)

var byMIME = map[string]Kind{
	"audio/mpeg":   KindMP3,
	"audio/mp3":    KindMP3,
	"audio/mpeg3":  KindMP3,
	"audio/wav":    KindWAV,
	"audio/wave":   KindWAV,
	"audio/x-wav":  KindWAV,
	"audio/flac":   KindFLAC,
	"audio/x-flac": KindFLAC,
	"audio/ogg":    KindVorbis,
	"audio/vorbis": KindVorbis,
}

var byExt = map[string]Kind{
	".mp3":  KindMP3,
	".wav":  KindWAV,
	".flac": KindFLAC,
	".ogg":  KindVorbis,
	".oga":  KindVorbis,
}

// Detect resolves the container from the declared media type, falling back
// to the file extension.
func Detect(mimeType, name string) (Kind, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if k, ok := byMIME[mt]; ok {
		return k, nil
	}
	if k, ok := byExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupported, mimeType, name)
}

// Supported reports whether Detect finds a decoder for the media type or
// file name.
func Supported(mimeType, name string) bool {
	_, err := Detect(mimeType, name)
	return err == nil
}

// Decode opens r with the decoder for kind. The returned streamer owns r.
func Decode(kind Kind, r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch kind {
	case KindMP3:
		s, format, err = mp3.Decode(r)
	case KindWAV:
		s, format, err = wav.Decode(r)
	case KindFLAC:
		s, format, err = flac.Decode(r)
	case KindVorbis:
		s, format, err = vorbis.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupported, kind)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("codec: decode %s: %w", kind, err)
	}
	return s, format, nil
}

// BytesReader adapts an in-memory payload to io.ReadSeekCloser so decoders
// that measure length by seeking can do so.
type BytesReader struct {
	*bytes.Reader
}

// NewBytesReader wraps data.
func NewBytesReader(data []byte) BytesReader {
	return BytesReader{Reader: bytes.NewReader(data)}
}

// Close is a no-op.
func (BytesReader) Close() error { return nil }

// Sniff identifies a container from its leading bytes.
func Sniff(data []byte) (Kind, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return KindFLAC, true
	case bytes.HasPrefix(data, []byte("OggS")):
		return KindVorbis, true
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return KindWAV, true
	case bytes.HasPrefix(data, []byte("ID3")):
		return KindMP3, true
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return KindMP3, true
	}
	return "", false
}

// Ext returns the canonical file extension for kind.
func Ext(kind Kind) string {
	for ext, k := range byExt {
		if k == kind && ext != ".oga" {
			return ext
		}
	}
	return ""
}
