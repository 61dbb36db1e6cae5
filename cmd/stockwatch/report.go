package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Send the stock summary of the persisted state without probing.",
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime) error {
			state, err := rt.app.Report(cmd.Context())
			if err != nil {
				rt.logger.Error("report failed", zap.Error(err))
				return err
			}
			rt.logger.Info("report sent", zap.Int("known_products", len(state)))
			return nil
		}),
	}
}
