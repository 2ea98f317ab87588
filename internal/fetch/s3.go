package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/bakemeta/internal/ctxlog"
)

// DefaultEndpoint is the bucket endpoint template used by the HTTP
// code path when none is configured. The bucket host component of the
// URL fills the single verb.
const DefaultEndpoint = "https://%s.s3.amazonaws.com"

// S3Options configures an S3 fetcher.
type S3Options struct {
	// Command, when non-empty, selects the CLI code path and names the
	// base command to run, e.g. "aws s3". When empty the fetcher
	// downloads over HTTP directly.
	Command string

	// Endpoint is a printf template turning a bucket host into a base
	// URL for the HTTP path. Defaults to DefaultEndpoint.
	Endpoint string

	// Client is the HTTP client for the HTTP path. Defaults to a
	// shared client reusing TCP connections.
	Client *http.Client

	// Progress, when set, receives fractional transfer progress.
	Progress ProgressFunc
}

// sharedClient is reused across S3 fetcher instances to pool
// connections.
var sharedClient = &http.Client{}

// S3 fetches s3:// URLs either through the aws CLI or over HTTP
// against the bucket endpoint.
type S3 struct {
	command  []string
	endpoint string
	client   *http.Client
	progress ProgressFunc
}

// NewS3 creates an S3 fetcher.
func NewS3(opts S3Options) *S3 {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := opts.Client
	if client == nil {
		client = sharedClient
	}
	var command []string
	if opts.Command != "" {
		command = strings.Fields(opts.Command)
	}
	return &S3{
		command:  command,
		endpoint: endpoint,
		client:   client,
		progress: opts.Progress,
	}
}

// splitURL validates an s3:// URL and returns its bucket host and key
// path components.
func splitURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid object URL %q: %w", rawURL, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, rawURL)
	}
	if u.Host == "" || u.Path == "" || u.Path == "/" {
		return "", "", fmt.Errorf("object URL %q needs a bucket host and key path", rawURL)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Fetch implements Fetcher.
func (s *S3) Fetch(ctx context.Context, rawURL, dest string) error {
	bucket, key, err := splitURL(rawURL)
	if err != nil {
		return &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}

	if len(s.command) > 0 {
		err = s.fetchCLI(ctx, bucket, key, dest)
	} else {
		err = s.fetchHTTP(ctx, rawURL, bucket, key, dest)
	}
	if err != nil {
		return err
	}

	// Treat the transfer tool with healthy suspicion: success with no
	// file, or an empty file, is still a failure.
	fi, statErr := os.Stat(dest)
	if statErr != nil {
		return &Error{Kind: KindTransfer, URL: rawURL,
			Err: fmt.Errorf("transfer reported success but %s does not exist", dest)}
	}
	if fi.Size() == 0 {
		os.Remove(dest)
		return &Error{Kind: KindTransfer, URL: rawURL,
			Err: fmt.Errorf("transfer produced a zero size file, deleting %s", dest)}
	}
	return nil
}

func (s *S3) fetchCLI(ctx context.Context, bucket, key, dest string) error {
	rawURL := "s3://" + bucket + "/" + key
	args := append(s.command[1:], "cp", rawURL, dest)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	filter := newLineFilter(s.progress)
	cmd.Stdout = filter
	cmd.Stderr = filter

	ctxlog.FromContext(ctx).Debug("Running fetch command.", "command", s.command[0], "url", rawURL)
	if err := cmd.Run(); err != nil {
		return &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}
	return nil
}

func (s *S3) objectURL(bucket, key string) string {
	return fmt.Sprintf(s.endpoint, bucket) + "/" + key
}

func (s *S3) fetchHTTP(ctx context.Context, rawURL, bucket, key, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(bucket, key), nil)
	if err != nil {
		return &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, URL: rawURL}
	case http.StatusForbidden:
		return &Error{Kind: KindAccessDenied, URL: rawURL}
	default:
		return &Error{Kind: KindTransfer, URL: rawURL,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	out, err := os.Create(dest)
	if err != nil {
		return &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}
	defer out.Close()

	var w io.Writer = out
	if s.progress != nil && resp.ContentLength > 0 {
		w = io.MultiWriter(out, &progressWriter{
			total:    resp.ContentLength,
			progress: s.progress,
		})
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		os.Remove(dest)
		return &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}
	return nil
}

// progressWriter reports fractional progress from bytes written
// against a known content length.
type progressWriter struct {
	total    int64
	written  int64
	progress ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	fraction := float64(w.written) / float64(w.total)
	if fraction > 1 {
		fraction = 1
	}
	w.progress(fraction, "")
	return len(p), nil
}

// Probe implements Fetcher.
func (s *S3) Probe(ctx context.Context, rawURL string) (bool, error) {
	bucket, key, err := splitURL(rawURL)
	if err != nil {
		return false, &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}

	if len(s.command) > 0 {
		return s.probeCLI(ctx, bucket, key)
	}
	return s.probeHTTP(ctx, rawURL, bucket, key)
}

func (s *S3) probeCLI(ctx context.Context, bucket, key string) (bool, error) {
	rawURL := "s3://" + bucket + "/" + key
	args := append(s.command[1:], "ls", rawURL)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	output, err := cmd.Output()
	if err != nil {
		return false, &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}

	// "ls" exits zero even when the object is missing; empty output is
	// the real signal.
	return len(strings.TrimSpace(string(output))) > 0, nil
}

func (s *S3) probeHTTP(ctx context.Context, rawURL, bucket, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(bucket, key), nil)
	if err != nil {
		return false, &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, &Error{Kind: KindTransfer, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusForbidden:
		return false, &Error{Kind: KindAccessDenied, URL: rawURL}
	default:
		return false, &Error{Kind: KindTransfer, URL: rawURL,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
}
