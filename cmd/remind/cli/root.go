package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/logging"
)

var (
	envPath    string
	configPath string
	userID     string
	logLevel   string
	profileDB  string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "remind",
	Short: "Long-term memory for conversational agents",
	Long: `remind stores atomic facts about a user as versioned, embedding-indexed
records. Facts are superseded rather than overwritten and deleted softly,
so every change stays auditable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		logging.Default().Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, core.UserMessage(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envPath, "env", "", "Path to a .env file (default: searched from the working directory)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file; overrides --env")
	RootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User the command acts for")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: LOG_LEVEL or info)")
	RootCmd.PersistentFlags().StringVar(&profileDB, "profile-db", "", "SQLite file for user profiles (default: the sqlite store path or remind_profiles.db)")
}
