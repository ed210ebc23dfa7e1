// @title        FlowChat API
// @version      1.0
// @description  Chat backend with streaming replies, edit and regenerate, and background memory extraction.
// @BasePath     /api
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flowchat/backend/internal/app"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flowchat-server",
		Short:         "Run the FlowChat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if code := app.Run(ctx); code != 0 {
				return fmt.Errorf("server exited with code %d", code)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("port", 8000, "HTTP listen port")
	flags.String("store", "sqlite", "Durable store: sqlite or redis")
	flags.String("database-path", "/data/flow.db", "SQLite database file")
	flags.String("redis-addr", "", "Redis address when --store=redis")
	flags.String("provider", "ollama", "Model provider: ollama or openai")
	flags.String("log-level", "INFO", "DEBUG, INFO, WARN or ERROR")

	for key, flag := range map[string]string{
		"APP_PORT":      "port",
		"STORE_DRIVER":  "store",
		"DATABASE_PATH": "database-path",
		"REDIS_ADDR":    "redis-addr",
		"LLM_PROVIDER":  "provider",
		"LOG_LEVEL":     "log-level",
	} {
		// Only flags that are set explicitly override the environment.
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
