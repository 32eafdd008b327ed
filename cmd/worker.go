/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fastship/backend/config"
	"github.com/fastship/backend/internal/mailer"
	"github.com/fastship/backend/internal/mq"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the mail delivery worker",
	Long: `Starts the mail delivery worker. It consumes mail jobs from the
queue and sends them over SMTP. Usage:

	fastship worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		queue, err := mq.Connect(cmd.Context(), cfg.Queue)
		if err != nil {
			return fmt.Errorf("connect queue: %w", err)
		}
		defer func() {
			_ = queue.Close()
		}()

		sender := mailer.NewSMTPSender(cfg.Mail)
		mail, err := mailer.New(sender, cfg.ClientDomain)
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}

		worker := mailer.NewWorker(mail, queue, logger)
		logger.Info("mail worker started", "queue", mq.MailQueue)
		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
