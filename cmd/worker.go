package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume processing messages",
	Long:  `Runs the processing worker until interrupted. Any number of workers may consume the same queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Queue.Backend == "memory" {
			return fmt.Errorf("the memory queue is in-process only; use serve instead")
		}
		if workerConcurrency > 0 {
			cfg.Worker.Concurrency = workerConcurrency
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		return a.worker.Run(ctx)
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "consumer loops (overrides worker.concurrency)")
	rootCmd.AddCommand(workerCmd)
}
