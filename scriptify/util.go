package scriptify

import (
	"context"
	"crypto/sha1"

	"github.com/mtraver/base91"
	"golang.org/x/sync/errgroup"
)

const ErrorLogPrefix = "!! "

// errGroupLimit returns an errgroup bound to ctx, running at most limit functions at once.
func errGroupLimit(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.SetLimit(max(limit, 1))
	return errGroup, ctx
}

// bytesKey provides a short printable digest of b, used to identify blobs independent of their size.
func bytesKey(b []byte) string {
	sha := sha1.Sum(b)
	return base91.StdEncoding.EncodeToString(sha[:])
}
