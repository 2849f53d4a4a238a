package cli

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
)

type choiceItem[T any] struct {
	Label string
	Item  T
}

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup for calendars and waking hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp(cmd)
			if err != nil {
				return err
			}

			printSection("Calendars")
			if err := setupCalendars(cmd, app); err != nil {
				return err
			}

			printSection("Waking hours")
			if err := setupHours(app); err != nil {
				return err
			}

			if err := app.SaveConfig(); err != nil {
				return err
			}
			fmt.Printf("\nSetup complete. Config saved to %s\n", app.ConfigPath)
			return nil
		},
	}
	return cmd
}

func setupCalendars(cmd *cobra.Command, app *App) error {
	provider, err := app.Provider(cmd.Context())
	if err != nil {
		return err
	}
	items, err := provider.ListCalendars(cmd.Context())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No calendars found.")
		return nil
	}
	choices := buildCalendarChoices(schedule.SortCalendars(items))
	defaults := defaultLabels(choices, schedule.DefaultSelection(items, app.Config.Calendars))

	prompt := &survey.MultiSelect{
		Message:  "Calendars to check for free time",
		Options:  labelsFromChoices(choices),
		Default:  defaults,
		PageSize: 12,
	}
	var selected []string
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return err
	}
	ids := make([]string, 0, len(selected))
	for _, label := range selected {
		choice, ok := findChoice(choices, label)
		if !ok {
			return fmt.Errorf("invalid calendar selection %q", label)
		}
		ids = append(ids, choice.Item.ID)
	}
	app.Config.Calendars = ids
	return nil
}

func setupHours(app *App) error {
	start, err := askClock("Day starts at", app.Config.WakingStart)
	if err != nil {
		return err
	}
	end, err := askClock("Day ends at", app.Config.WakingEnd)
	if err != nil {
		return err
	}
	hours := agenda.WakingHours{Start: start, End: end}
	if err := hours.Validate(); err != nil {
		return err
	}
	app.Config.WakingStart = start.String()
	app.Config.WakingEnd = end.String()
	app.Hours = hours
	return nil
}

func askClock(message, defaultValue string) (agenda.Clock, error) {
	var input string
	prompt := &survey.Input{Message: message, Default: defaultValue, Help: "e.g. 9am, 1:30pm or 13:30"}
	validate := func(ans interface{}) error {
		text, ok := ans.(string)
		if !ok {
			return errors.New("expected text")
		}
		_, err := agenda.ParseClock(text)
		return err
	}
	if err := survey.AskOne(prompt, &input, survey.WithValidator(survey.Required), survey.WithValidator(validate)); err != nil {
		return agenda.Clock{}, err
	}
	return agenda.ParseClock(input)
}

func buildCalendarChoices(cals []schedule.Calendar) []choiceItem[schedule.Calendar] {
	choices := make([]choiceItem[schedule.Calendar], 0, len(cals))
	seen := map[string]int{}
	for _, cal := range cals {
		label := cal.Summary
		if label == "" {
			label = cal.ID
		}
		if cal.Primary {
			label += " (primary)"
		}
		seen[label]++
		if seen[label] > 1 {
			label = fmt.Sprintf("%s [%s]", label, cal.ID)
		}
		choices = append(choices, choiceItem[schedule.Calendar]{Label: label, Item: cal})
	}
	return choices
}

func defaultLabels(choices []choiceItem[schedule.Calendar], ids []string) []string {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var labels []string
	for _, choice := range choices {
		if want[choice.Item.ID] {
			labels = append(labels, choice.Label)
		}
	}
	return labels
}

func labelsFromChoices[T any](choices []choiceItem[T]) []string {
	labels := make([]string, 0, len(choices))
	for _, choice := range choices {
		labels = append(labels, choice.Label)
	}
	return labels
}

func findChoice[T any](choices []choiceItem[T], label string) (choiceItem[T], bool) {
	for _, choice := range choices {
		if choice.Label == label {
			return choice, true
		}
	}
	var zero choiceItem[T]
	return zero, false
}

func printSection(title string) {
	fmt.Printf("\n\033[1m%s\033[0m\n", title)
}
