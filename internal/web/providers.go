package web

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"meetme/internal/auth"
	"meetme/internal/google/calendar"
	"meetme/internal/ics"
	"meetme/internal/schedule"
)

var tracedClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

// GoogleProviders pairs each user's Google calendars with the feeds shared by
// every session. feeds may be nil.
func GoogleProviders(flow *auth.WebFlow, feeds *ics.Provider, logger *slog.Logger) ProviderFactory {
	return func(ctx context.Context, tok *oauth2.Token) (schedule.Provider, error) {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tracedClient)
		gcal, err := calendar.New(ctx, flow.Client(ctx, tok), calendar.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if feeds == nil {
			return gcal, nil
		}
		return schedule.NewMultiProvider(gcal, feeds), nil
	}
}
