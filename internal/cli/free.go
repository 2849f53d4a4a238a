package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
	"meetme/internal/timeparse"
)

type freeOptions struct {
	From      string
	To        string
	Calendars []string
	TUI       bool
	JSON      bool
}

func newFreeCmd() *cobra.Command {
	var opts freeOptions
	cmd := &cobra.Command{
		Use:   "free",
		Short: "Show free time across the selected calendars",
		Example: `  meetme free
  meetme free --from monday --to friday
  meetme free --from 2026-01-05 --to 2026-01-09 --calendar primary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp(cmd)
			if err != nil {
				return err
			}
			res, err := runFree(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			switch {
			case opts.JSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case opts.TUI:
				return startTUI(app, res)
			default:
				printFree(cmd.OutOrStdout(), res, app.Location)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&opts.From, "from", "", "First day (YYYY-MM-DD or natural language, default tomorrow)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last day (default six days after --from)")
	cmd.Flags().StringSliceVar(&opts.Calendars, "calendar", nil, "Calendar ID to include (repeatable, default from config)")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "Browse results interactively")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print results as JSON")
	return cmd
}

func runFree(ctx context.Context, app *App, opts freeOptions) (*schedule.Result, error) {
	rng, err := resolveRange(opts.From, opts.To, app.Now(), app.Location)
	if err != nil {
		return nil, err
	}
	provider, err := app.Provider(ctx)
	if err != nil {
		return nil, err
	}
	all, err := provider.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	all = schedule.SortCalendars(all)

	ids := opts.Calendars
	if len(ids) == 0 {
		ids = schedule.DefaultSelection(all, app.Config.Calendars)
	}
	cals := schedule.SelectCalendars(all, ids)
	if len(cals) == 0 {
		return nil, errors.New("no calendars selected; pass --calendar or run `meetme setup`")
	}
	if missing := missingIDs(cals, ids); len(missing) > 0 {
		app.Logger.Warn("ignoring unknown calendars", "ids", strings.Join(missing, ","))
	}
	return app.Planner(provider).FreeTimes(ctx, cals, rng)
}

// resolveRange turns the --from/--to flags into a day range. Without flags
// it covers tomorrow and the six days after.
func resolveRange(from, to string, now time.Time, loc *time.Location) (agenda.Range, error) {
	begin := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
	if from != "" {
		t, err := timeparse.ParseDate(from, now, loc)
		if err != nil {
			return agenda.Range{}, fmt.Errorf("--from: %w", err)
		}
		begin = t
	}
	end := time.Date(begin.Year(), begin.Month(), begin.Day()+6, 0, 0, 0, 0, loc)
	if to != "" {
		t, err := timeparse.ParseDate(to, now, loc)
		if err != nil {
			return agenda.Range{}, fmt.Errorf("--to: %w", err)
		}
		end = t
	}
	if end.Before(begin) {
		return agenda.Range{}, fmt.Errorf("%w: %s - %s", agenda.ErrInvertedRange, begin.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return agenda.Range{Begin: begin, End: end}, nil
}

func missingIDs(found []schedule.Calendar, ids []string) []string {
	have := map[string]bool{}
	for _, cal := range found {
		have[cal.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// printFree lists free intervals under one heading per day.
func printFree(w io.Writer, res *schedule.Result, loc *time.Location) {
	names := make([]string, 0, len(res.Calendars))
	for _, cal := range res.Calendars {
		names = append(names, cal.Summary)
	}
	fmt.Fprintln(w, gray("Calendars: "+strings.Join(names, ", ")))
	if len(res.Free) == 0 {
		fmt.Fprintln(w, "No free time in the selected range.")
		return
	}
	day := ""
	for _, iv := range res.Free {
		iv = iv.In(loc)
		heading := dayHeading(iv.Start)
		if heading != day {
			if day != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, heading)
			day = heading
		}
		fmt.Fprintf(w, "  %s  %s\n", slotLabel(iv), gray(formatDuration(iv.Duration())))
	}
}
