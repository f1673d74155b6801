package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme is the URI scheme prefix for remote locators.
const Scheme = "gs://"

// ErrInvalidLocator is returned when a locator string cannot be split into a
// bucket and an object key.
var ErrInvalidLocator = errors.New("invalid object locator")

// Locator identifies one object in the store: a bucket plus an object key.
type Locator struct {
	Bucket string
	Key    string
}

// ParseLocator parses a locator of the form "gs://bucket/key". The scheme
// prefix is stripped and the remainder split on the first "/"; both parts
// must be non-empty. Parsing happens before any network call, so malformed
// input never reaches the store.
func ParseLocator(raw string) (Locator, error) {
	rest, ok := strings.CutPrefix(raw, Scheme)
	if !ok {
		return Locator{}, fmt.Errorf("%w: %q is missing the %q prefix", ErrInvalidLocator, raw, Scheme)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok {
		return Locator{}, fmt.Errorf("%w: %q has no object key", ErrInvalidLocator, raw)
	}
	if bucket == "" || key == "" {
		return Locator{}, fmt.Errorf("%w: %q has an empty bucket or key", ErrInvalidLocator, raw)
	}
	return Locator{Bucket: bucket, Key: key}, nil
}

// String returns the canonical gs:// form of the locator.
func (l Locator) String() string {
	return Scheme + l.Bucket + "/" + l.Key
}
