package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlcfg/internal/health"
	"github.com/mesh-intelligence/sqlcfg/internal/locks"
)

// reportOutput is the JSON form of a health report.
type reportOutput struct {
	ID    string    `json:"id"`
	Time  time.Time `json:"time"`
	Files []string  `json:"files"`
}

func newMonitorCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Hold the database file open and report locked files",
		Long: "Monitor opens the database file and prints the configuration files held\n" +
			"by this process at a fixed interval until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = s.interval
			}

			f, err := a.openFile()
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			logSink := health.LogSink{Logger: a.logger}
			sink := health.SinkFunc(func(r health.Report) error {
				if err := logSink.Emit(r); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(out, reportOutput{ID: r.ID, Time: r.Time, Files: r.Files})
				}
				_, err := fmt.Fprintf(out, "%s locked=%d %s\n",
					r.Time.Format(time.RFC3339), len(r.Files), strings.Join(r.Files, " "))
				return err
			})
			reporter := health.NewReporter(locks.Default(), sink, health.WithInterval(interval))
			if err := reporter.Start(ctx); err != nil {
				return err
			}
			a.logger.Debug("monitor started", "file", f.FileName(), "interval", interval)

			select {
			case <-ctx.Done():
			case <-reporter.Done():
			}
			reporter.Stop()
			return reporter.Err()
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between reports (default: health_interval from config.yaml)")
	return cmd
}
