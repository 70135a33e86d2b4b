// Package fetch implements the fetcher (component B): it resolves a
// linter module's content-addressed URL to a local, verified file in the
// content store, downloading it at most once even when many concurrent
// dispatch goroutines request the same digest at the same moment.
//
// The retry/backoff shape (exponential backoff, with Retry-After honored
// on 429/5xx) is ported from the teacher's
// internal/source/clawhub_provider.go getRaw helper; request
// deduplication uses golang.org/x/sync/singleflight, the same module the
// dispatcher uses for its concurrency primitives, rather than hand-rolling
// the "pending fetch table" the original implementation describes in
// prose.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"nit/internal/digest"
	"nit/internal/store"
)

// ProgressSink receives byte counts as a download proceeds. nil is a
// valid Fetcher.Progress value meaning "don't report."
type ProgressSink interface {
	OnBytes(url string, delta int64, total int64)
}

// Fetcher resolves remote linter modules into the content store,
// deduplicating concurrent requests for the same digest.
type Fetcher struct {
	store    *store.Store
	client   *http.Client
	group    singleflight.Group
	progress ProgressSink

	maxAttempts int
}

// New builds a Fetcher backed by s. client may be nil, in which case
// http.DefaultClient is used.
func New(s *store.Store, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{store: s, client: client, maxAttempts: 5}
}

// WithProgress attaches a progress sink and returns f for chaining.
func (f *Fetcher) WithProgress(sink ProgressSink) *Fetcher {
	f.progress = sink
	return f
}

// ErrDigestMismatch is returned when a downloaded module's content does
// not hash to the digest the caller requested.
var ErrDigestMismatch = errors.New("fetch: downloaded content does not match expected digest")

// Fetch ensures url's content is present in the store under want,
// downloading it if necessary, and returns the local file path.
// Concurrent calls for the same want share a single download.
func (f *Fetcher) Fetch(ctx context.Context, url string, want digest.Digest) (string, error) {
	if p, err := f.store.Path(want); err == nil {
		return p, nil
	}

	key := want.String()
	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.fetchLocked(ctx, url, want)
	})
	if err != nil {
		return "", &AcquisitionError{Code: "FETCH_ACQUIRE", Err: err}
	}
	return v.(string), nil
}

func (f *Fetcher) fetchLocked(ctx context.Context, url string, want digest.Digest) (string, error) {
	if p, err := f.store.Path(want); err == nil {
		return p, nil
	}

	tmp, err := f.store.TempFile()
	if err != nil {
		return "", fmt.Errorf("FETCH_TEMP: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		// Discards the staged download on every failure path; once
		// PutFile has moved it into place this is a no-op.
		os.Remove(tmpPath)
	}()

	hasher := digest.NewHasher()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher), sink: f.progress, url: url}

	if err := f.download(ctx, url, counter); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("FETCH_SYNC: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("FETCH_CLOSE: %w", err)
	}

	got := hasher.Sum()
	if got != want {
		return "", fmt.Errorf("FETCH_DIGEST: %w: url=%s want=%s got=%s", ErrDigestMismatch, url, want, got)
	}
	if err := f.store.PutFile(tmpPath, want); err != nil {
		return "", fmt.Errorf("FETCH_PUT: %w", err)
	}
	return f.store.Path(want)
}

type countingWriter struct {
	w     io.Writer
	sink  ProgressSink
	url   string
	total int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.total += int64(n)
	if c.sink != nil {
		c.sink.OnBytes(c.url, int64(n), c.total)
	}
	return n, err
}

// download streams url's body into dst, retrying transient failures with
// exponential backoff and honoring Retry-After on 429/5xx responses.
func (f *Fetcher) download(ctx context.Context, url string, dst io.Writer) error {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("FETCH_REQUEST: %w", err)
		}
		req.Header.Set("User-Agent", "nit/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			if waitErr := sleepBackoff(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			_, copyErr := io.Copy(dst, resp.Body)
			resp.Body.Close()
			if copyErr != nil {
				return fmt.Errorf("FETCH_BODY: %w", copyErr)
			}
			return nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		retryAfter := resp.Header.Get("Retry-After")
		statusCode := resp.StatusCode
		resp.Body.Close()

		if !retryable || attempt == f.maxAttempts-1 {
			return fmt.Errorf("FETCH_STATUS: %s returned HTTP %d", url, statusCode)
		}
		if waitErr := sleepRetryAfter(ctx, retryAfter, attempt); waitErr != nil {
			return waitErr
		}
	}
	if lastErr != nil {
		return fmt.Errorf("FETCH_NETWORK: %w", lastErr)
	}
	return fmt.Errorf("FETCH_EXHAUSTED: %s: all attempts failed", url)
}

func backoffDuration(attempt int) time.Duration {
	return (1 << attempt) * 500 * time.Millisecond
}

func sleepBackoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoffDuration(attempt)):
		return nil
	}
}

func sleepRetryAfter(ctx context.Context, headerValue string, attempt int) error {
	wait := parseRetryAfter(headerValue, attempt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func parseRetryAfter(value string, attempt int) time.Duration {
	def := backoffDuration(attempt)
	if value == "" {
		return def
	}
	var secs int
	if _, err := fmt.Sscanf(value, "%d", &secs); err != nil || secs < 0 {
		return def
	}
	if secs > 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}
