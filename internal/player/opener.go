package player

import (
	"context"

	"github.com/gopxl/beep/v2"

	"github.com/starford/tonearm/internal/codec"
	"github.com/starford/tonearm/internal/mediaurl"
)

// Opener turns a track src into a decoded stream.
type Opener interface {
	Open(ctx context.Context, src string) (beep.StreamSeekCloser, beep.Format, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, src string) (beep.StreamSeekCloser, beep.Format, error)

func (f OpenerFunc) Open(ctx context.Context, src string) (beep.StreamSeekCloser, beep.Format, error) {
	return f(ctx, src)
}

// MediaSource is satisfied by *mediaurl.Resolver.
type MediaSource interface {
	Open(ctx context.Context, src string) (*mediaurl.Media, error)
}

// MediaOpener decodes whatever a MediaSource resolves.
type MediaOpener struct {
	Source MediaSource
}

func (o MediaOpener) Open(ctx context.Context, src string) (beep.StreamSeekCloser, beep.Format, error) {
	m, err := o.Source.Open(ctx, src)
	if err != nil {
		return nil, beep.Format{}, err
	}
	kind, err := codec.Detect(m.MIMEType, m.Name)
	if err != nil {
		m.Body.Close()
		return nil, beep.Format{}, err
	}
	s, format, err := codec.Decode(kind, m.Body)
	if err != nil {
		m.Body.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}
