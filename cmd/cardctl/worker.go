package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/mailer"
	"github.com/campus-nfc/card-service/internal/mq"
	"github.com/campus-nfc/card-service/internal/observability"
	"github.com/campus-nfc/card-service/internal/worker"
)

var metricsAddr string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background workers",
}

var emailWorkerCmd = &cobra.Command{
	Use:   "email",
	Short: "Consume email jobs and deliver them through Mailgun",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx := cmd.Context()
		sender, err := mailer.NewMailgun(cfg.Mailgun)
		if err != nil {
			return err
		}
		consumer, err := mq.NewBackend(ctx, cfg.MQ, logger)
		if err != nil {
			return fmt.Errorf("init message broker: %w", err)
		}
		defer consumer.Close() //nolint:errcheck

		metrics := observability.NewMetrics()
		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("metrics listener", zap.Error(err))
				}
			}()
			defer srv.Close() //nolint:errcheck
		}

		return worker.NewEmailWorker(consumer, sender, cfg.MQ.EmailQueue, metrics, logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(emailWorkerCmd)

	emailWorkerCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9091", "address serving /metrics; empty disables it")
}
