package mediaurl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/blobstore"
	"github.com/starford/tonearm/internal/codec"
)

// Media is an opened playback source.
type Media struct {
	Body     io.ReadSeekCloser
	MIMEType string
	Name     string
}

// Resolver opens a track's src: registry handles read from the blob store,
// anything else is a path under the static media directory.
type Resolver struct {
	reg       *Registry
	store     blobstore.Store
	staticDir string
}

// NewResolver returns a Resolver. staticDir may be empty, in which case only
// handles resolve.
func NewResolver(reg *Registry, store blobstore.Store, staticDir string) *Resolver {
	return &Resolver{reg: reg, store: store, staticDir: staticDir}
}

// Open resolves src.
func (r *Resolver) Open(ctx context.Context, src string) (*Media, error) {
	if src == "" {
		return nil, fmt.Errorf("mediaurl: open: %w", apperr.ErrNoSource)
	}
	if r.reg.Owns(src) {
		target, ok := r.reg.Resolve(src)
		if !ok {
			return nil, fmt.Errorf("mediaurl: handle %s: %w", src, apperr.ErrNotFound)
		}
		data, err := r.store.Get(ctx, target.Key)
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("mediaurl: blob %s: %w", target.Key, apperr.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("mediaurl: blob %s: %w", target.Key, err)
		}
		return &Media{Body: codec.NewBytesReader(data), MIMEType: target.MIMEType, Name: target.Key}, nil
	}

	abs, err := r.staticPath(src)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("mediaurl: static %s: %w", src, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mediaurl: static %s: %w", src, err)
	}
	if info, err := f.Stat(); err != nil || info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("mediaurl: static %s: %w", src, apperr.ErrNotFound)
	}
	return &Media{Body: f, MIMEType: mime.TypeByExtension(filepath.Ext(abs)), Name: filepath.Base(abs)}, nil
}

// staticPath maps a URL path onto the static directory without letting it
// escape.
func (r *Resolver) staticPath(src string) (string, error) {
	if r.staticDir == "" {
		return "", fmt.Errorf("mediaurl: static %s: %w", src, apperr.ErrNotFound)
	}
	cleaned := path.Clean("/" + strings.TrimPrefix(src, "/"))
	root, err := filepath.Abs(r.staticDir)
	if err != nil {
		return "", fmt.Errorf("mediaurl: resolve static dir: %w", err)
	}
	abs := filepath.Join(root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("mediaurl: path escapes static dir: %s", src)
	}
	return abs, nil
}
