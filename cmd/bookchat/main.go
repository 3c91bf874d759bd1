package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/liao/bookchat/internal/config"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bookchat",
	Short: "Answer questions about books over HTTP, QQ or the terminal",
	Long: `bookchat classifies each question, retrieves book context for it and
streams a grounded answer from Gemini. Conversation history is kept per book.

Example usage:
  bookchat serve                              # HTTP + SSE server
  bookchat bot                                # QQ private chat bot
  bookchat ask --book 42 "Who is the keeper?" # one question, streamed to stdout
  bookchat history --book 42 --clear          # clear a book's history`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, botCmd, askCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("bookchat failed", "error", err)
		os.Exit(1)
	}
}
