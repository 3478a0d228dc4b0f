// Package ratelimit paces requests to fantia.jp with a token bucket.
//
// The bucket refills continuously (requests per minute) and allows short bursts
// up to its capacity. Wait honours context cancellation.
package ratelimit
