//go:build !linux

package keysource

import "context"

// NewPlatformSource returns the key source for this platform. Only Linux
// is supported; other platforms get a source that reports unavailable.
func NewPlatformSource() Source {
	return unavailableSource{}
}

type unavailableSource struct{}

func (unavailableSource) Start(ctx context.Context) error { return ErrNotAvailable }

func (unavailableSource) Stop() error { return nil }

func (unavailableSource) Events() <-chan Event { return nil }

func (unavailableSource) Available() (bool, string) {
	return false, "system-wide key capture is only implemented on Linux"
}
