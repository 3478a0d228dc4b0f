// Package retry provides exponential backoff and retry logic for Fantia
// HTTP requests.
//
// Network errors, 429 responses and 5xx responses are retried; auth and
// not-found errors are returned immediately. Rate-limit responses switch to a
// slower backoff. Every wait honours context cancellation so an interrupted
// batch run stops promptly.
//
//	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
//		return client.fetch(ctx, url)
//	})
package retry
