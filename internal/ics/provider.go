// Package ics reads busy times from iCalendar feeds so they can be combined
// with Google calendars.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/maypok86/otter/v2"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
)

var ErrFeedTooLarge = errors.New("feed too large")

const (
	idPrefix     = "ics:"
	calendarKind = "ics#feed"
	maxFeedBytes = 10 << 20
)

// Feed is a subscribed ICS URL.
type Feed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Provider serves configured feeds as read-only calendars. Parsed feeds are
// cached for ttl, so one provider is meant to be shared across requests.
type Provider struct {
	feeds    map[string]Feed
	order    []string
	client   *http.Client
	maxBytes int64
	loc      *time.Location
	logger   *slog.Logger
	cache    *otter.Cache[string, []event]
}

func NewProvider(feeds []Feed, loc *time.Location, ttl time.Duration, logger *slog.Logger) *Provider {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	p := &Provider{
		feeds:    map[string]Feed{},
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: maxFeedBytes,
		loc:      loc,
		logger:   logger,
		cache: otter.Must(&otter.Options[string, []event]{
			MaximumSize:      256,
			ExpiryCalculator: otter.ExpiryWriting[string, []event](ttl),
		}),
	}
	for _, f := range feeds {
		if strings.TrimSpace(f.ID) == "" || strings.TrimSpace(f.URL) == "" {
			continue
		}
		id := idPrefix + f.ID
		if _, dup := p.feeds[id]; dup {
			continue
		}
		p.feeds[id] = f
		p.order = append(p.order, id)
	}
	return p
}

func (p *Provider) ListCalendars(ctx context.Context) ([]schedule.Calendar, error) {
	cals := make([]schedule.Calendar, 0, len(p.order))
	for _, id := range p.order {
		f := p.feeds[id]
		name := f.Name
		if name == "" {
			name = f.ID
		}
		cals = append(cals, schedule.Calendar{
			Kind:        calendarKind,
			ID:          id,
			Summary:     name,
			Description: redactURL(f.URL),
		})
	}
	return cals, nil
}

func (p *Provider) BusyTimes(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]agenda.RawInterval, error) {
	f, ok := p.feeds[calendarID]
	if !ok {
		return nil, fmt.Errorf("unknown ICS feed %q", calendarID)
	}
	events, err := p.events(ctx, f)
	if err != nil {
		return nil, err
	}
	occ, err := busyBetween(events, timeMin, timeMax)
	if err != nil {
		return nil, err
	}
	busy := make([]agenda.RawInterval, 0, len(occ))
	for _, o := range occ {
		busy = append(busy, agenda.RawInterval{
			Start: o.Start.Format(time.RFC3339),
			End:   o.End.Format(time.RFC3339),
		})
	}
	return busy, nil
}

func (p *Provider) events(ctx context.Context, f Feed) ([]event, error) {
	if cached, ok := p.cache.GetIfPresent(f.URL); ok {
		return cached, nil
	}
	body, err := p.fetch(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.ID, err)
	}
	events, err := parseFeed(body, p.loc)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.ID, err)
	}
	p.logger.Debug("ics feed parsed", "id", f.ID, "url", redactURL(f.URL), "events", len(events))
	p.cache.Set(f.URL, events)
	return events, nil
}

func (p *Provider) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return permanent{fmt.Errorf("invalid feed url %s", redactURL(rawURL))}
			}
			req.Header.Set("Accept", "text/calendar")
			resp, err := p.client.Do(req)
			if err != nil {
				return scrubURLError(err, rawURL)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return permanent{fmt.Errorf("HTTP %d", resp.StatusCode)}
			}
			body, err = io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
			if err != nil {
				return scrubURLError(err, rawURL)
			}
			if int64(len(body)) > p.maxBytes {
				body = nil
				return permanent{fmt.Errorf("%w: more than %d bytes", ErrFeedTooLarge, p.maxBytes)}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.RetryIf(func(err error) bool {
			var perm permanent
			return !errors.As(err, &perm)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("retrying ICS fetch", "attempt", n+1, "url", redactURL(rawURL), "error", err)
		}),
	)
	return body, err
}

// scrubURLError drops the request URL that net/http puts into transport
// errors, since private feed URLs carry their secret in the query string.
func scrubURLError(err error, rawURL string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s %s: %w", uerr.Op, redactURL(rawURL), uerr.Err)
	}
	return err
}

// permanent marks a fetch failure that retrying cannot fix.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// redactURL drops credentials and query strings, which private feed URLs
// often use as secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid url)"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
