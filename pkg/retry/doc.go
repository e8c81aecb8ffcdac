// Package retry runs an operation repeatedly with a backoff between
// attempts. It is used for HTTP lookups of structured data and for media
// downloads; browser navigation has its own bounded loop in the navigator
// package.
//
//	body, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func(ctx context.Context) ([]byte, error) {
//	    return client.Get(ctx, url)
//	})
//
// Wait is the context-aware sleep used by every pacing delay in the crawler.
package retry
