package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
)

const defaultAttempts = 3

type Client struct {
	svc      *calendar.Service
	logger   *slog.Logger
	attempts uint
	delay    time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetry sets how many times a call is attempted on 429 and 5xx responses.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

func New(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	return newClient(ctx, []option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
}

func newClient(ctx context.Context, clientOpts []option.ClientOption, opts ...Option) (*Client, error) {
	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	c := &Client{
		svc:      svc,
		logger:   slog.New(slog.DiscardHandler),
		attempts: defaultAttempts,
		delay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ListCalendars(ctx context.Context) ([]schedule.Calendar, error) {
	var out []schedule.Calendar
	err := c.do(ctx, "calendarList.list", func() error {
		out = out[:0]
		return c.svc.CalendarList.List().Pages(ctx, func(resp *calendar.CalendarList) error {
			for _, item := range resp.Items {
				out = append(out, schedule.Calendar{
					Kind:        item.Kind,
					ID:          item.Id,
					Summary:     item.Summary,
					Description: item.Description,
					Selected:    item.Selected,
					Primary:     item.Primary,
				})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BusyTimes asks the freebusy endpoint about a single calendar.
func (c *Client) BusyTimes(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]agenda.RawInterval, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendarID is required")
	}
	req := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}
	var resp *calendar.FreeBusyResponse
	err := c.do(ctx, "freebusy.query", func() error {
		var err error
		resp, err = c.svc.Freebusy.Query(req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %s missing from freebusy response", calendarID)
	}
	if len(cal.Errors) > 0 {
		reasons := make([]string, 0, len(cal.Errors))
		for _, e := range cal.Errors {
			reasons = append(reasons, e.Domain+"/"+e.Reason)
		}
		return nil, fmt.Errorf("freebusy %s: %s", calendarID, strings.Join(reasons, ", "))
	}
	busy := make([]agenda.RawInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		busy = append(busy, agenda.RawInterval{Start: period.Start, End: period.End})
	}
	return busy, nil
}

func (c *Client) do(ctx context.Context, op string, call func() error) error {
	return retry.Do(
		call,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying calendar API call", "op", op, "attempt", n+1, "error", err)
		}),
	)
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
