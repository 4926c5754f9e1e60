package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/job"
)

func newSlotsCmd() *cobra.Command {
	var (
		windowDays         int
		slotDurationMins   int
		ownerOnly          bool
		googleClientID     string
		googleClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Preview free meeting slots",
		Long: `List the free slots the gatekeeper would offer, using the calendar
provider and availability settings from the config file.

With calendar.type: none every working-hour slot in the window is free.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, false, false)

			provider, err := newCalendarProvider(cmd.Context(), cfg, googleCredentials{ClientID: googleClientID, ClientSecret: googleClientSecret}, nil, logger)
			if err != nil {
				return err
			}

			req := cfg.OrchestratorConfig().Availability
			if cmd.Flags().Changed("window-days") {
				req.WindowDays = windowDays
			}
			if cmd.Flags().Changed("slot-duration") {
				req.SlotDurationMins = slotDurationMins
			}
			if cmd.Flags().Changed("owner-only") {
				req.OwnerOnly = ownerOnly
			}

			slots, err := provider.Suggest(cmd.Context(), req)
			if err != nil {
				return err
			}
			printSlots(cmd.OutOrStdout(), req, slots)
			return nil
		},
	}

	cmd.Flags().IntVar(&windowDays, "window-days", 0, "Number of days to search (default: availability.window_days)")
	cmd.Flags().IntVar(&slotDurationMins, "slot-duration", 0, "Slot length in minutes (default: availability.slot_duration_mins)")
	cmd.Flags().BoolVar(&ownerOnly, "owner-only", true, "Only consult the owner calendar (default: availability.owner_only)")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (can also be set via GOOGLE_CLIENT_ID env var)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (can also be set via GOOGLE_CLIENT_SECRET env var)")

	return cmd
}

func printSlots(w io.Writer, req calendar.SuggestRequest, slots []job.Slot) {
	if len(slots) == 0 {
		fmt.Fprintf(w, "No free %d-minute slots in the next %d days.\n", req.SlotDurationMins, req.WindowDays)
		return
	}
	fmt.Fprintf(w, "%d free %d-minute slots in the next %d days:\n", len(slots), req.SlotDurationMins, req.WindowDays)
	for _, s := range slots {
		fmt.Fprintf(w, "  %s - %s\n", s.Start.Format("Mon 2006-01-02 15:04"), s.End.Format("15:04 MST"))
	}
}
