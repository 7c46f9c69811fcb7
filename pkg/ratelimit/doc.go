// Package ratelimit paces outbound requests per host.
//
// Every source talks to a single platform host, so the limiter keeps one
// token bucket per host. A zero or negative rate disables limiting.
//
//	limiter := ratelimit.NewHostLimiter(2, 1)
//	if err := limiter.Wait(ctx, "old.reddit.com"); err != nil {
//	    return err
//	}
package ratelimit
