// Package apisharp wraps an HTTP transport with declarative request descriptors.
//
// An API describes what to fetch. A Client merges it over its own defaults and
// the library defaults, then sends it with optional response caching, mock data,
// retries, a timeout and lifecycle logging:
//
//	client := apisharp.New(apisharp.API{BaseURL: "https://api.example.com"})
//	resp, err := client.Request(ctx, apisharp.API{
//		URL:         "/posts",
//		Query:       map[string]any{"page": 1},
//		EnableCache: apisharp.Static(true),
//	})
//
// Cached responses are keyed by method, base URL, URL and query. Only GET
// requests are cached, and a cache hit never extends the stored entry's lifetime.
package apisharp
