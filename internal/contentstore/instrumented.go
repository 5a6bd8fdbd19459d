package contentstore

import (
	"context"
	"time"
)

// Upload kinds reported to an UploadObserver.
const (
	KindFile = "file"
	KindJSON = "json"
)

// UploadObserver is called after every upload. bytes is 0 for JSON uploads.
type UploadObserver func(backend, kind string, bytes int, d time.Duration, err error)

type instrumented struct {
	next    Store
	backend string
	observe UploadObserver
}

// Instrument wraps s so that every upload is reported to observe under backend.
func Instrument(s Store, backend string, observe UploadObserver) Store {
	if observe == nil {
		return s
	}
	return &instrumented{next: s, backend: backend, observe: observe}
}

func (s *instrumented) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	start := time.Now()
	c, err := s.next.UploadFile(ctx, name, data)
	s.observe(s.backend, KindFile, len(data), time.Since(start), err)
	return c, err
}

func (s *instrumented) UploadJSON(ctx context.Context, v any) (string, error) {
	start := time.Now()
	c, err := s.next.UploadJSON(ctx, v)
	s.observe(s.backend, KindJSON, 0, time.Since(start), err)
	return c, err
}
