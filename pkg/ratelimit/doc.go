// Package ratelimit paces requests sent to the site and its media CDN.
//
// TokenBucket wraps golang.org/x/time/rate behind the Limiter interface so
// components can be handed Unlimited in tests. Keyed holds one bucket per
// host.
package ratelimit
