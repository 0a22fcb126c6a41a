package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bountylab/reviewd/internal/fetch"
	"github.com/bountylab/reviewd/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the review worker against the Redis queue",
	Long: `Consume queued review jobs and run the full pipeline for each:
fetch, chunk, generate, aggregate, label, persist, notify. Concurrency
and throughput are bounded by worker.concurrency and
worker.rate_per_second.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, err := getBroker()
		if err != nil {
			return err
		}
		s, err := getStore()
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		w := worker.New(broker, fetch.NewGitHub(), s, worker.Config{
			Concurrency:    viper.GetInt("worker.concurrency"),
			RatePerSecond:  viper.GetFloat64("worker.rate_per_second"),
			MaxChunkTokens: viper.GetInt("review.max_chunk_tokens"),
		}, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ui.Info("Worker running (%d goroutines), Ctrl-C to stop", viper.GetInt("worker.concurrency"))
		w.Run(ctx)
		ui.Info("Worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
