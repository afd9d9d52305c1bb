package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/animus-labs/tfbridge/internal/config"
	"github.com/animus-labs/tfbridge/internal/platform/k8s"
)

func newStatusCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status RUN_ID",
		Short: "Reconcile and print the status of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			reg, db, err := openRegistry(ctx, cfg)
			if err != nil {
				return err
			}
			if db != nil {
				defer func() { _ = db.Close() }()
			}

			var kube *k8s.Client
			if cfg.Engine == config.EngineTekton {
				if kube, err = k8s.NewInClusterClient(); err != nil {
					return err
				}
			}
			eng, err := newEngine(cfg, kube, logger)
			if err != nil {
				return err
			}
			reconciler, err := newReconciler(cfg, reg, eng, logger)
			if err != nil {
				return err
			}

			record, err := reg.Get(ctx, args[0])
			if err != nil {
				return err
			}
			snap, err := reconciler.Reconcile(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"id":        record.RunID,
				"execution": record.Execution,
				"state":     snap.State,
				"result":    snap.Result,
				"reason":    snap.Reason,
				"degraded":  snap.Degraded,
			})
		},
	}
}
