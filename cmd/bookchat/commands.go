package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liao/bookchat/internal/answer"
	"github.com/liao/bookchat/internal/bot"
	"github.com/liao/bookchat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server with SSE streaming",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(cfg.Server.Addr, a.answers, a.history)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		// 优雅关闭
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the QQ private chat bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}

		b := bot.New(cfg.Bot, a.answers, a.history)

		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			slog.Info("shutting down...")
			b.Stop()
			a.Close()
			os.Exit(0)
		}()

		b.Run(ctx)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask --book <id> <question>",
	Short: "Ask one question and stream the answer to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, _ := cmd.Flags().GetString("book")
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.answers.Answer(ctx, bookID, strings.Join(args, " "), answer.WriterSink{W: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		if res.State == answer.StateCancelled {
			return errors.New("interrupted")
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history --book <id> [--clear]",
	Short: "Print or clear a book's conversation history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, _ := cmd.Flags().GetString("book")
		clearHistory, _ := cmd.Flags().GetBool("clear")

		history, closeHistory, err := newHistoryStore(cfg)
		if err != nil {
			return err
		}
		defer closeHistory()

		if clearHistory {
			if err := history.Clear(cmd.Context(), bookID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "history for book %s cleared\n", bookID)
			return nil
		}

		turns, err := history.History(cmd.Context(), bookID)
		if err != nil {
			return err
		}
		for _, t := range turns {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", t.Timestamp.Format(time.DateTime), t.Role, t.Content)
		}
		if len(turns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no history")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("book", "", "book id")
	_ = askCmd.MarkFlagRequired("book")

	historyCmd.Flags().String("book", "", "book id")
	historyCmd.Flags().Bool("clear", false, "delete the history instead of printing it")
	_ = historyCmd.MarkFlagRequired("book")
}
