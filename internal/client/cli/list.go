package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/instanthost/internal/client/state"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *App) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List publishes recorded in the state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewStore(a.cfg.StateFile)
			publishes, warn := store.Load()
			if warn != nil {
				warnColor.Fprintf(a.errOut, "warning: %v\n", warn)
			}
			if len(publishes) == 0 {
				fmt.Fprintf(a.errOut, "No publishes recorded in %s\n", store.Path())
				return nil
			}

			slugs := make([]string, 0, len(publishes))
			for slug := range publishes {
				slugs = append(slugs, slug)
			}
			sort.Strings(slugs)

			cell := lipgloss.NewStyle().Padding(0, 1)
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return cell.Bold(true)
					}
					return cell
				}).
				Headers("SLUG", "SITE URL", "CLAIM URL", "EXPIRES")

			for _, slug := range slugs {
				rec := publishes[slug]
				claim, expires := "-", "never"
				if rec.ClaimURL != nil {
					claim = *rec.ClaimURL
				}
				if rec.ExpiresAt != nil {
					expires = humanize.Time(*rec.ExpiresAt)
				}
				t.Row(slug, rec.SiteURL, claim, expires)
			}

			_, err := fmt.Fprintln(a.out, t.String())
			return err
		},
	}
}
