package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/VoiceDNA/pkg/voicedna"
)

var (
	historyLimit  int
	historyDelete string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversion runs",
	Long: `List conversion runs recorded in the history database, newest first.

Runs are recorded when history is enabled in the config file or with
--history.

Examples:
  voicedna history --limit 5
  voicedna history --delete 3f2b9c1e-8d4a-4f6e-9b7a-2c1d0e5f6a7b
  voicedna --db ~/voicedna/runs.sqlite3 history`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		conv, err := newConverter(cfg, voicedna.WithHistory(cfg.History.DBPath))
		if err != nil {
			return err
		}
		defer conv.Close()

		out := cmd.OutOrStdout()
		if historyDelete != "" {
			if err := conv.DeleteRun(historyDelete); err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render("Deleted run "+historyDelete))
			return nil
		}

		runs, err := conv.History(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, dimStyle.Render("No runs recorded."))
			return nil
		}

		total, err := conv.CountRuns("")
		if err != nil {
			return err
		}
		failed, err := conv.CountRuns("failed")
		if err != nil {
			return err
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d run(s)", len(runs)))+
			dimStyle.Render(fmt.Sprintf("  of %d recorded, %d failed", total, failed)))
		for _, r := range runs {
			state := okStyle.Render(r.State)
			if !r.OK() {
				state = errStyle.Render(r.State + " at " + r.FailedAt)
			}
			fmt.Fprintf(out, "\n%s  %s  %s\n",
				dimStyle.Render(r.CreatedAt.Format("2006-01-02 15:04:05")), state, dimStyle.Render(r.ID))
			fmt.Fprintf(out, "  %s -> %s (model %s, %+d st, %s)\n",
				r.InputPath, r.OutputPath, r.ModelPath, r.Semitones, r.Device)
			if r.Error != "" {
				fmt.Fprintf(out, "  %s\n", errStyle.Render(r.Error))
			}
			for _, w := range r.Warnings {
				fmt.Fprintf(out, "  %s\n", warnStyle.Render("warning: "+w))
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
	historyCmd.Flags().StringVar(&historyDelete, "delete", "", "delete the run with this ID")
}
