// Package web implements the page fetcher over plain HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
)

const (
	defaultMaxBytes  = 1_500_000
	defaultUserAgent = "pagewatch/1.0"
	robotsMaxBytes   = 512 * 1024
)

// Options configures the fetcher.
type Options struct {
	UserAgent       string
	MaxBytes        int
	RespectRobots   bool
	MinHostInterval time.Duration
	JitterMin       time.Duration
	JitterMax       time.Duration

	// Jitter overrides the random pre-request delay. Tests set it to return 0.
	Jitter func() time.Duration
}

// Fetcher retrieves static HTML pages politely: robots.txt, per-host pacing
// and a random delay before each request.
type Fetcher struct {
	client  *http.Client
	opts    Options
	limiter *hostLimiter
	logger  *slog.Logger

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// New creates a new Fetcher. A nil client gets a default one.
func New(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Jitter == nil {
		opts.Jitter = randomJitter(opts.JitterMin, opts.JitterMax)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  client,
		opts:    opts,
		limiter: newHostLimiter(opts.MinHostInterval),
		logger:  logger.With("component", "fetcher"),
		robots:  make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch downloads rawURL. Every failure is returned as a *ports.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*entities.FetchedPage, error) {
	page, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, &ports.FetchError{URL: rawURL, Err: err}
	}
	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*entities.FetchedPage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Host == "" {
		return nil, errors.New("missing host in URL")
	}

	if f.opts.RespectRobots && !f.allowedByRobots(ctx, u) {
		return nil, ports.ErrRobotsDisallowed
	}

	if err := f.limiter.wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("waiting for host slot: %w", err)
	}
	if err := sleepCtx(ctx, f.opts.Jitter()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(2*f.opts.MaxBytes)))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	html := string(body)
	if len(html) > f.opts.MaxBytes {
		f.logger.Warn("page exceeds size cap, truncating", "url", rawURL, "bytes", len(html), "max_bytes", f.opts.MaxBytes)
		html = truncateBytes(html, f.opts.MaxBytes/2)
	}

	return &entities.FetchedPage{
		URL:          rawURL,
		Status:       resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		HTML:         html,
		Text:         bodyText(html),
	}, nil
}

// allowedByRobots reports whether robots.txt permits u. Unreachable or
// unparsable robots files allow everything.
func (f *Fetcher) allowedByRobots(ctx context.Context, u *url.URL) bool {
	robots := f.robotsFor(ctx, u)
	if robots == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, robotsAgent(f.opts.UserAgent))
}

func (f *Fetcher) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := u.Scheme + "://" + u.Host

	f.robotsMu.Lock()
	defer f.robotsMu.Unlock()
	if data, ok := f.robots[origin]; ok {
		return data
	}

	data := f.loadRobots(ctx, origin)
	f.robots[origin] = data
	return data
}

func (f *Fetcher) loadRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	log := f.logger.With("origin", origin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Debug("robots.txt unreachable, allowing", "error", err)
		return nil
	}
	defer resp.Body.Close()

	// Only a readable robots file restricts us; 4xx and 5xx both allow.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		log.Debug("robots.txt unparsable, allowing", "error", err)
		return nil
	}
	return data
}

// robotsAgent is the product token of the user agent, e.g. "pagewatch".
func robotsAgent(userAgent string) string {
	token := strings.TrimSpace(strings.SplitN(userAgent, "/", 2)[0])
	if token == "" {
		return "pagewatch"
	}
	return token
}

func bodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

// truncateBytes cuts s to at most n bytes without splitting a character.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func randomJitter(lo, hi time.Duration) func() time.Duration {
	return func() time.Duration {
		if hi <= lo {
			return max(lo, 0)
		}
		return lo + rand.N(hi-lo)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
