package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"meetme/internal/agenda"
	"meetme/internal/auth"
	"meetme/internal/config"
	"meetme/internal/google/calendar"
	"meetme/internal/ics"
	"meetme/internal/logging"
	"meetme/internal/paths"
	"meetme/internal/schedule"
	"meetme/internal/timeparse"
)

const feedTTL = 5 * time.Minute

type App struct {
	Config          *config.Config
	ConfigPath      string
	CredentialsPath string
	TokenPath       string
	Location        *time.Location
	Hours           agenda.WakingHours
	Logger          *slog.Logger

	provider schedule.Provider
}

// Now returns the current time in the app's configured location.
// Always use this instead of caching time at startup.
func (a *App) Now() time.Time {
	return time.Now().In(a.Location)
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "meetme",
		Short:        "Find free time across your Google calendars",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "Path to config.json (defaults to ~/.config/meetme/config.json)")
	cmd.PersistentFlags().String("credentials", "", "Path to OAuth credentials.json (defaults to ~/.config/meetme/credentials.json)")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(newCalendarsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newFreeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSetupCmd())

	return cmd
}

func initApp(cmd *cobra.Command) (*App, error) {
	cfgPath, err := resolveConfigPath(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	loc, err := timeparse.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	hours, err := wakingHours(cfg)
	if err != nil {
		return nil, err
	}
	credPath, _ := cmd.Flags().GetString("credentials")
	if credPath == "" {
		credPath, err = paths.CredentialsPath()
		if err != nil {
			return nil, err
		}
	}
	tokenPath, err := paths.TokenPath()
	if err != nil {
		return nil, err
	}
	return &App{
		Config:          cfg,
		ConfigPath:      cfgPath,
		CredentialsPath: credPath,
		TokenPath:       tokenPath,
		Location:        loc,
		Hours:           hours,
		Logger:          logging.New(cfg.Debug),
	}, nil
}

func wakingHours(cfg *config.Config) (agenda.WakingHours, error) {
	start, err := agenda.ParseClock(cfg.WakingStart)
	if err != nil {
		return agenda.WakingHours{}, fmt.Errorf("waking_start: %w", err)
	}
	end, err := agenda.ParseClock(cfg.WakingEnd)
	if err != nil {
		return agenda.WakingHours{}, fmt.Errorf("waking_end: %w", err)
	}
	hours := agenda.WakingHours{Start: start, End: end}
	if err := hours.Validate(); err != nil {
		return agenda.WakingHours{}, err
	}
	return hours, nil
}

// Provider returns the calendar backend for the terminal user, authorizing
// through the token file on first use.
func (a *App) Provider(ctx context.Context) (schedule.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	httpClient, err := auth.Client(ctx, a.CredentialsPath, a.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("auth failed: %w", err)
	}
	gcal, err := calendar.New(ctx, httpClient, calendar.WithLogger(a.Logger))
	if err != nil {
		return nil, err
	}
	a.provider = gcal
	if feeds := a.Feeds(); feeds != nil {
		a.provider = schedule.NewMultiProvider(gcal, feeds)
	}
	return a.provider, nil
}

// Feeds returns the configured ICS feeds, or nil when there are none.
func (a *App) Feeds() *ics.Provider {
	if len(a.Config.ICSFeeds) == 0 {
		return nil
	}
	return ics.NewProvider(a.Config.ICSFeeds, a.Location, feedTTL, a.Logger)
}

func (a *App) Planner(provider schedule.Provider) *schedule.Planner {
	return &schedule.Planner{
		Provider: provider,
		Location: a.Location,
		Hours:    a.Hours,
		Logger:   a.Logger,
	}
}

func (a *App) SaveConfig() error {
	if a == nil || a.Config == nil || a.ConfigPath == "" {
		return fmt.Errorf("config is not initialized")
	}
	return config.Save(a.ConfigPath, a.Config)
}
