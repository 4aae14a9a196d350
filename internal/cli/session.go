package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/admission"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the persisted admission session",
	}
	cmd.AddCommand(newSessionShowCmd(), newSessionClearCmd())
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored admission session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			s, err := postgres.NewSessionRepository(pool).Load(ctx)
			if errors.Is(err, domain.ErrSessionNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no admission session stored")
				return nil
			}
			if err != nil {
				return err
			}

			writeSession(cmd, s, time.Now())
			return nil
		},
	}
}

func newSessionClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored admission session; a running server keeps its in-memory copy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewSessionRepository(pool).Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "admission session cleared")
			return nil
		},
	}
}

func writeSession(cmd *cobra.Command, s *domain.AdmissionSession, now time.Time) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status:          %s\n", s.Status)
	fmt.Fprintf(out, "usable:          %t\n", s.Usable(now))
	if s.QueuePosition != nil {
		fmt.Fprintf(out, "queue position:  %d\n", *s.QueuePosition)
	}
	if s.EstimatedWaitSec != nil {
		fmt.Fprintf(out, "estimated wait:  %s\n", admission.FormatDuration(time.Duration(*s.EstimatedWaitSec)*time.Second))
	}
	if s.ExpiresAt != nil {
		fmt.Fprintf(out, "expires at:      %s\n", s.ExpiresAt.Format(time.RFC3339))
		fmt.Fprintf(out, "time remaining:  %s\n", admission.FormatDuration(s.ExpiresAt.Sub(now)))
	}
	fmt.Fprintf(out, "last checked:    %s\n", s.LastCheckedAt.Format(time.RFC3339))
}
