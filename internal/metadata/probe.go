package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/tonearm/internal/codec"
)

// DurationProber measures the natural length of an audio payload.
type DurationProber interface {
	Probe(ctx context.Context, data []byte, mimeType, name string) (time.Duration, error)
}

// BeepProber decodes just far enough to learn the stream length.
type BeepProber struct{}

func (BeepProber) Probe(ctx context.Context, data []byte, mimeType, name string) (time.Duration, error) {
	kind, err := codec.Detect(mimeType, name)
	if err != nil {
		return 0, err
	}

	type result struct {
		d   time.Duration
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, format, err := codec.Decode(kind, codec.NewBytesReader(data))
		if err != nil {
			done <- result{err: err}
			return
		}
		defer s.Close()
		n := s.Len()
		if n <= 0 || format.SampleRate <= 0 {
			done <- result{err: fmt.Errorf("metadata: probe %s: unknown length", name)}
			return
		}
		done <- result{d: format.SampleRate.D(n)}
	}()

	select {
	case r := <-done:
		return r.d, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("metadata: probe %s: %w", name, ctx.Err())
	}
}
