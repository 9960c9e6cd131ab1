package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/storage"
	"github.com/iudanet/outreach/pkg/api"
)

const defaultLogsLimit = 20

func (a *app) newLogsCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "logs <email>",
		Short: "Show recent mail delivery attempts of a user",
		Example: `  outreachctl logs alice@example.com
  outreachctl logs alice@example.com --limit 50 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := strings.TrimSpace(args[0])

			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			store, _, err := a.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, storage.ErrUserNotFound) {
					return fmt.Errorf("user %s not found", email)
				}
				return fmt.Errorf("failed to get user: %w", err)
			}

			outcomes, err := store.ListDispatches(ctx, user.ID, limit)
			if err != nil {
				return fmt.Errorf("failed to list delivery log: %w", err)
			}

			if asJSON {
				return writeLogsJSON(cmd.OutOrStdout(), outcomes)
			}
			return writeLogsTable(cmd.OutOrStdout(), outcomes)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLogsLimit, "maximum number of entries, newest first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func dispatchItems(outcomes []models.DispatchOutcome) []api.DispatchItem {
	items := make([]api.DispatchItem, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, api.DispatchItem{
			Timestamp: o.Timestamp.UTC().Format(time.RFC3339),
			ID:        o.ID,
			CompanyID: o.CompanyID,
			Succeeded: o.Succeeded,
		})
	}
	return items
}

func writeLogsJSON(w io.Writer, outcomes []models.DispatchOutcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dispatchItems(outcomes))
}

func writeLogsTable(w io.Writer, outcomes []models.DispatchOutcome) error {
	if len(outcomes) == 0 {
		_, err := fmt.Fprintln(w, "No delivery attempts recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tCOMPANY\tSTATUS")
	for _, item := range dispatchItems(outcomes) {
		status := "failed"
		if item.Succeeded {
			status = "sent"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", item.ID, item.Timestamp, item.CompanyID, status)
	}
	return tw.Flush()
}
