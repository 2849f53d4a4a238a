package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"meetme/internal/schedule"
)

func newCalendarsCmd() *cobra.Command {
	var showIDs bool
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List available calendars",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp(cmd)
			if err != nil {
				return err
			}
			provider, err := app.Provider(cmd.Context())
			if err != nil {
				return err
			}
			items, err := provider.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			printCalendars(cmd.OutOrStdout(), schedule.SortCalendars(items), app.Config.Calendars, showIDs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showIDs, "ids", false, "Show calendar IDs")
	return cmd
}

func printCalendars(w io.Writer, cals []schedule.Calendar, configured []string, showIDs bool) {
	if len(cals) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	selected := map[string]bool{}
	for _, id := range schedule.DefaultSelection(cals, configured) {
		selected[id] = true
	}
	for _, cal := range cals {
		mark := " "
		if selected[cal.ID] {
			mark = "*"
		}
		primary := ""
		if cal.Primary {
			primary = " (primary)"
		}
		fmt.Fprintf(w, "%s %s%s %s\n", mark, cal.Summary, primary, gray(cal.Description))
		if showIDs {
			fmt.Fprintf(w, "  id: %s\n", cal.ID)
		}
	}
}
