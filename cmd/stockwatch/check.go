package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

func newCheckCmd() *cobra.Command {
	var triggerEvent string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every product once, alert on changes and persist the state.",
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime) error {
			trigger := rt.cfg.RunTrigger()
			if cmd.Flags().Changed("trigger") {
				trigger = monitor.ClassifyTrigger(triggerEvent)
			}

			report, err := rt.app.Check(cmd.Context(), trigger)
			rt.app.PushMetrics(cmd.Context())
			if err != nil {
				rt.logger.Error("check failed", zap.Error(err))
				return err
			}
			rt.logger.Info("check complete",
				zap.String("run_id", report.RunID),
				zap.Int("products", report.Products),
				zap.Int("failures", report.Failures),
				zap.Int("alerts", report.Alerts),
				zap.Bool("summary_sent", report.SummarySent),
			)
			return nil
		}),
	}

	cmd.Flags().StringVar(&triggerEvent, "trigger", "", "override the trigger event (schedule, workflow_dispatch, ...)")
	return cmd
}
