// Package fetcher downloads remote images to local storage.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Fetcher streams remote resources to disk. A single attempt per URL,
// no retries.
type Fetcher struct {
	client *http.Client
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads url into the file at dest, overwriting it if present.
// The body is streamed straight to the file rather than buffered in
// memory.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	const op = "fetcher.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s returned status %d", op, url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
