package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/infrastructure/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type seedWatch struct {
	campground string
	daysOut    int
	nights     int
	guests     int
	siteType   string
	maxPrice   string
	interval   int
}

// A spread of intervals so every stagger tier shows up in the live timers.
var seedWatches = []seedWatch{
	{"cg-yosemite-upper-pines", 30, 2, 4, "Tent", "45.00", 30},
	{"cg-yosemite-north-pines", 45, 3, 2, "", "", 60},
	{"cg-zion-watchman", 20, 2, 6, "RV", "60.00", 180},
	{"cg-glacier-many-glacier", 60, 4, 2, "Tent", "", 480},
	{"cg-acadia-blackwoods", 90, 2, 3, "", "35.50", 1440},
}

func newSeedCmd() *cobra.Command {
	var (
		ownerID string
		email   string
		entries int
	)

	c := &cobra.Command{
		Use:   "seed",
		Short: "Insert a dev user with sample watches and rebooking entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			users := postgres.NewUserRepository(pool)
			watches := postgres.NewWatchRepository(pool)
			queue := postgres.NewQueueEntryRepository(pool)
			out := cmd.OutOrStdout()

			if err := users.Upsert(ctx, ownerID, &email); err != nil {
				return fmt.Errorf("upsert user: %w", err)
			}
			fmt.Fprintf(out, "user %s <%s>\n", ownerID, email)

			today := time.Now().UTC().Truncate(24 * time.Hour)
			for _, s := range seedWatches {
				w := &domain.Watch{
					CampgroundID:         s.campground,
					ArrivalDate:          today.AddDate(0, 0, s.daysOut),
					DepartureDate:        today.AddDate(0, 0, s.daysOut+s.nights),
					Guests:               s.guests,
					CheckIntervalMinutes: s.interval,
					IsActive:             true,
					NotifyOnly:           true,
				}
				if s.siteType != "" {
					w.SiteType = &s.siteType
				}
				if s.maxPrice != "" {
					p := decimal.RequireFromString(s.maxPrice)
					w.MaxPrice = &p
				}

				created, err := watches.Create(ctx, ownerID, w)
				if err != nil {
					return fmt.Errorf("create watch %s: %w", s.campground, err)
				}
				fmt.Fprintf(out, "watch %s %s every %dm\n", created.ID, s.campground, s.interval)
			}

			for i := range entries {
				e := &domain.QueueEntry{
					BookingID:            uuid.NewString(),
					BookingReference:     fmt.Sprintf("SEED-%04d", i+1),
					IsActive:             true,
					CheckIntervalMinutes: 5,
					MaxAttempts:          3,
				}
				created, err := queue.Create(ctx, ownerID, e)
				if errors.Is(err, domain.ErrDuplicateQueueEntry) {
					fmt.Fprintf(out, "rebooking %s already enrolled\n", e.BookingReference)
					continue
				}
				if err != nil {
					return fmt.Errorf("create rebooking entry: %w", err)
				}
				fmt.Fprintf(out, "rebooking %s %s\n", created.ID, e.BookingReference)
			}

			fmt.Fprintln(out, "restart the server to pick up the new timers")
			return nil
		},
	}

	c.Flags().StringVar(&ownerID, "owner", "seed-user", "owner id (JWT subject)")
	c.Flags().StringVar(&email, "email", "seed@test.local", "owner email")
	c.Flags().IntVar(&entries, "entries", 2, "number of rebooking entries")
	return c
}
