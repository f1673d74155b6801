// Package storage parses gs:// locators and moves objects between the remote
// store and local files. Swap implementations by changing the concrete type
// injected at startup — the MinIO implementation works with any S3-compatible
// provider, including the Google Cloud Storage XML API.
package storage

import (
	"context"
)

// ObjectStore is the interface for fetching and publishing objects. Inputs
// and outputs are local file paths: the merge pipeline works on scratch
// files, never on in-memory copies of whole audio objects.
type ObjectStore interface {
	// Fetch downloads the object at loc into the local file destPath.
	Fetch(ctx context.Context, loc Locator, destPath string) error
	// Publish uploads the local file srcPath to loc, creating or
	// overwriting the remote object.
	Publish(ctx context.Context, srcPath string, loc Locator, contentType string) error
}
