package scraper

import "context"

// Handle is one acquired page of a source. HTML performs whatever
// retrieval the engine needs; Release frees the underlying resources and
// must be called exactly once per successful Acquire.
type Handle interface {
	HTML(ctx context.Context) (string, error)
	Release() error
}

// Screenshotter is implemented by handles backed by a rendered page
type Screenshotter interface {
	Screenshot() ([]byte, error)
}

// Acquirer hands out handles for one source
type Acquirer interface {
	Acquire(ctx context.Context) (Handle, error)
}

// AcquirerFunc adapts a function to Acquirer
type AcquirerFunc func(ctx context.Context) (Handle, error)

func (f AcquirerFunc) Acquire(ctx context.Context) (Handle, error) { return f(ctx) }
