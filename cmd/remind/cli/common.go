package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/logging"
	"github.com/yashdiniz/focusa-remind/pkg/profile"
	profileSQLite "github.com/yashdiniz/focusa-remind/pkg/profile/sqlite"
)

const defaultProfileDB = "remind_profiles.db"

// loadConfig reads configuration, installs the process logger and attaches
// a command-scoped logger to cmd's context.
func loadConfig(cmd *cobra.Command) (*core.Config, error) {
	var (
		cfg *core.Config
		err error
	)
	switch {
	case configPath != "":
		cfg, err = core.LoadConfigFromFile(configPath)
	case envPath != "":
		cfg, err = core.LoadConfigFromEnvFile(envPath)
	default:
		cfg, err = core.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	logging.SetDefault(logging.New(lvl, nil))

	logger := logging.Default().With("command", cmd.Name())
	if userID != "" {
		logger = logger.With("user_id", userID)
	}
	cmd.SetContext(logging.With(cmd.Context(), logger))
	return cfg, nil
}

// openClient loads configuration and builds a client.
func openClient(cmd *cobra.Command) (*core.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return core.NewClient(cfg, core.WithLogger(logging.From(cmd.Context())))
}

func openProfiles(cfg *core.Config) (profile.Store, error) {
	path := profileDB
	if path == "" {
		path = defaultProfileDB
		if cfg != nil && cfg.VectorStore.Provider == "sqlite" && cfg.VectorStore.DBPath != "" {
			path = cfg.VectorStore.DBPath
		}
	}
	return profileSQLite.NewStore(&profileSQLite.Config{DBPath: path})
}

func requireUser() error {
	if userID == "" {
		return fmt.Errorf("%w: --user is required", core.ErrInvalidInput)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: memory id %q", core.ErrInvalidInput, s)
	}
	return id, nil
}

// parseIDs keeps the ids that parse. The rest cannot name a stored record,
// so they are skipped the way Delete skips unknown ids.
func parseIDs(logger *slog.Logger, args []string) []int64 {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			logger.Debug("skipping unparsable memory id", "id", a)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
