// Package batch splits a long list of identifiers across several requests,
// keeping each request's item count and joined length under a limit.
package batch

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/status-im/apisharp"
)

// Limits bounds one chunk
type Limits struct {
	// MaxItems is the largest chunk; zero or less yields no chunks
	MaxItems int
	// MaxLength caps the summed item length of a chunk; zero means no cap.
	// An item longer than the cap still gets a chunk of its own.
	MaxLength int
	// Delay is waited between chunks, not before the first
	Delay time.Duration
}

// Split partitions items in order according to limits
func Split(items []string, limits Limits) [][]string {
	if len(items) == 0 || limits.MaxItems <= 0 {
		return nil
	}

	var chunks [][]string
	for start := 0; start < len(items); {
		end := start
		length := 0

		for end < len(items) && end-start < limits.MaxItems {
			if limits.MaxLength > 0 && length+len(items[end]) > limits.MaxLength {
				break
			}
			length += len(items[end])
			end++
		}
		if end == start {
			end = start + 1
		}

		chunks = append(chunks, items[start:end])
		start = end
	}
	return chunks
}

func forEachChunk[T any](ctx context.Context, items []string, limits Limits, fetch func(context.Context, []string) (T, error)) ([]T, error) {
	chunks := Split(items, limits)
	results := make([]T, 0, len(chunks))

	for i, chunk := range chunks {
		if limits.Delay > 0 && i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(limits.Delay):
			}
		}

		res, err := fetch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, res)
	}

	return results, nil
}

// FetchMap runs fetch per chunk and merges the maps; later chunks win on key collisions
func FetchMap[T any](ctx context.Context, items []string, limits Limits, fetch func(context.Context, []string) (map[string]T, error)) (map[string]T, error) {
	parts, err := forEachChunk(ctx, items, limits, fetch)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]T)
	for _, part := range parts {
		maps.Copy(merged, part)
	}
	return merged, nil
}

// FetchSlice runs fetch per chunk and concatenates the results
func FetchSlice[T any](ctx context.Context, items []string, limits Limits, fetch func(context.Context, []string) ([]T, error)) ([]T, error) {
	parts, err := forEachChunk(ctx, items, limits, fetch)
	if err != nil {
		return nil, err
	}

	var out []T
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// Request sends api once per chunk with the chunk joined by sep in query parameter param.
// Each request goes through client, so caching, retries and timeouts apply per chunk.
func Request(ctx context.Context, client *apisharp.Client, api apisharp.API, param, sep string, items []string, limits Limits) ([]*apisharp.Response, error) {
	return forEachChunk(ctx, items, limits, func(ctx context.Context, chunk []string) (*apisharp.Response, error) {
		req := api
		req.Query = maps.Clone(api.Query)
		if req.Query == nil {
			req.Query = map[string]any{}
		}
		req.Query[param] = strings.Join(chunk, sep)
		return client.Request(ctx, req)
	})
}
