package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "salesagent",
		Short:         "AutoStream conversational sales agent",
		Long:          "salesagent answers product questions about AutoStream, qualifies interested users and registers them as leads.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("process environment config: %w", err)
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := wireApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("wire agent: %w", err)
			}
			defer app.Close()

			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           app.handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      2 * time.Minute,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logx.Info().Str("addr", srv.Addr).Msg("Server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err, ok := <-errCh:
				if ok {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			stop()

			logx.Info().Msg("Shutting down gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logx.Info().Msg("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		sessionID string
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent on stdin/stdout",
		Long:  "chat runs the agent in-process against one session. Type /reset to start over and /quit to leave.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(func(o *logx.LoggerOpts) {
				o.Output = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr })
				if !verbose {
					o.Level = zerolog.WarnLevel.String()
				}
			})
			if err != nil {
				return fmt.Errorf("process environment config: %w", err)
			}

			ctx := cmd.Context()
			app, err := wireApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("wire agent: %w", err)
			}
			defer app.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			return chatLoop(ctx, cmd, app, sessionID, verbose)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (random when empty)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show intent, path and debug logs")
	return cmd
}

func chatLoop(ctx context.Context, cmd *cobra.Command, app *application, sessionID string, verbose bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s. Type /reset to start over, /quit to exit.\n", sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := app.agent.ResetSession(ctx, sessionID); err != nil {
				fmt.Fprintf(out, "Reset failed: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Conversation reset.")
			continue
		}

		res, err := app.agent.SubmitTurn(ctx, model.TurnInput{SessionID: sessionID, Message: line})
		fmt.Fprintf(out, "Agent: %s\n", res.Reply)
		if verbose {
			fmt.Fprintf(out, "  [intent=%s status=%s path=%s pending=%s cost=$%.6f]\n",
				res.Intent, res.Status, strings.Join(res.Path, ">"), res.PendingField, res.TotalCostUSD)
		}
		if err != nil && verbose {
			fmt.Fprintf(out, "  [error: %v]\n", err)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
