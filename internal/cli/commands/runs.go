package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dashmail/internal/cli/client"
)

func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Short:   "Show recent and pending delivery runs",
		Aliases: []string{"run-history"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewAPIClient(viper.GetString("server"))

			records, err := c.ListRuns()
			if err != nil {
				return fmt.Errorf("failed to list runs: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "NAME\tETA\tSTATUS\tDURATION\tERROR\t")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
					r.Name, formatTime(r.ETA), r.Status, r.Duration, r.Error)
			}
			return w.Flush()
		},
	}

	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
