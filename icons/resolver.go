package icons

import (
	"context"
	"errors"
)

var (
	// ErrStatus is returned when the icon server answers with an error status
	ErrStatus = errors.New("icon server returned error status")
	// ErrNotImage is returned when the response does not look like an image
	ErrNotImage = errors.New("response is not an image")
	// ErrNotLoaded is returned when a browser could not load the image
	ErrNotLoaded = errors.New("image failed to load")
	// ErrCachedFailure is returned for URLs that recently failed to load
	ErrCachedFailure = errors.New("icon previously failed to load")
)

// Resolver reports whether an icon URL can be loaded as an image.
// A nil error means the image loaded.
type Resolver interface {
	Resolve(ctx context.Context, url string) error
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, url string) error

// Resolve calls f(ctx, url)
func (f ResolverFunc) Resolve(ctx context.Context, url string) error {
	return f(ctx, url)
}
