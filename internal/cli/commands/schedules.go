package commands

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dashmail/internal/cli/client"
)

func NewSchedulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedules",
		Short:   "Inspect email report schedules",
		Aliases: []string{"schedule", "sched"},
	}

	cmd.AddCommand(newSchedulesListCommand())
	cmd.AddCommand(newSchedulesRunCommand())
	return cmd
}

func newSchedulesListCommand() *cobra.Command {
	var reportType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active schedules of one report type",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewAPIClient(viper.GetString("server"))

			schedules, err := c.ListSchedules(reportType)
			if err != nil {
				return fmt.Errorf("failed to list %s schedules: %v", reportType, err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tCRONTAB\tDELIVERY\tGROUP\tRECIPIENTS\t")
			for _, s := range schedules {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t\n",
					s.ID, s.Crontab, s.DeliveryType, s.DeliverAsGroup, s.Recipients)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&reportType, "type", "t", "dashboard", "Report type (dashboard or slice)")
	return cmd
}

func newSchedulesRunCommand() *cobra.Command {
	var reportType string

	cmd := &cobra.Command{
		Use:   "run [schedule_id]",
		Short: "Trigger one immediate delivery for a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid schedule ID %q", args[0])
			}

			c := client.NewAPIClient(viper.GetString("server"))

			taskID, err := c.TriggerRun(reportType, uint(id))
			if err != nil {
				return fmt.Errorf("failed to trigger run: %v", err)
			}

			fmt.Printf("Enqueued task %s\n", taskID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportType, "type", "t", "dashboard", "Report type (dashboard or slice)")
	return cmd
}
