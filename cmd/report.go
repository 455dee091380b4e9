package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/dashboard"
	"github.com/KaramelBytes/shipsight/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repProduct string
	repRegion  string
	repStart   string
	repEnd     string
	repOutput  string
	repJSON    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the sentiment and delivery summary for a filter selection",
	Example: `  shipsight report
  shipsight report --region Northeast --start 2024-01-01 --end 2024-03-31
  shipsight report --product Parka --json --output parka.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := analysis.ParseFilters(repProduct, repRegion, repStart, repEnd)
		if err != nil {
			return err
		}
		svc, logger, err := newService()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		defer svc.Close()

		ctx := commandContext(cmd)
		sessions := chat.NewStore(0, logger)
		defer sessions.Close()
		sess, err := cliSession(ctx, svc, sessions)
		if err != nil {
			return err
		}
		snap, err := svc.Snapshot(ctx, sess, f)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), snap, repJSON, repOutput)
	},
}

type reportJSON struct {
	*analysis.Snapshot
	Chart analysis.BarChart `json:"chart"`
}

// writeReport prints the snapshot, or saves it when path is set.
func writeReport(w io.Writer, snap *analysis.Snapshot, asJSON bool, path string) error {
	var out []byte
	if asJSON {
		b, err := utils.PrettyJSON(reportJSON{Snapshot: snap, Chart: analysis.RegionChart(snap.Regions)})
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		out = b
	} else {
		out = []byte(snap.Markdown())
	}
	if path == "" {
		fmt.Fprintln(w, string(out))
		return nil
	}
	if err := utils.SafeWriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(w, "✓ Wrote report to %s\n", path)
	return nil
}

// cliSession opens a one-shot session. Under the interactive profile the
// configured warehouse parameters stand in for the ones a dashboard user
// would type.
func cliSession(ctx context.Context, svc *dashboard.Service, sessions *chat.Store) (*chat.Session, error) {
	sess := sessions.Get("")
	if cfg.Interactive() {
		if err := svc.ConnectSession(ctx, sess, cfg.Warehouse); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&repProduct, "product", analysis.All, "product filter")
	reportCmd.Flags().StringVar(&repRegion, "region", analysis.All, "region filter")
	reportCmd.Flags().StringVar(&repStart, "start", "", "first day of the date range (YYYY-MM-DD, needs --end)")
	reportCmd.Flags().StringVar(&repEnd, "end", "", "last day of the date range (YYYY-MM-DD, needs --start)")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "optional path to write the report")
	reportCmd.Flags().BoolVar(&repJSON, "json", false, "emit JSON instead of text")
}
