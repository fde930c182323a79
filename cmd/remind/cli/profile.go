package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/profile"
)

var (
	profileName     string
	profileLanguage string
	profileTimezone string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the user's profile",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the name, language and timezone used in prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		p := core.Profile{Name: profileName, Language: profileLanguage, Timezone: profileTimezone}
		if err := store.Save(cmd.Context(), userID, p); err != nil {
			return err
		}
		rec, err := store.Get(cmd.Context(), userID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rec)
	},
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(cmd.Context(), userID)
		if errors.Is(err, profile.ErrNotFound) {
			return writeJSON(cmd.OutOrStdout(), &profile.Record{UserID: userID})
		}
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rec)
	},
}

func init() {
	RootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd, profileGetCmd)

	profileSetCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileSetCmd.Flags().StringVar(&profileLanguage, "language", "", "Preferred language")
	profileSetCmd.Flags().StringVar(&profileTimezone, "timezone", "", "IANA timezone, e.g. Asia/Kolkata")
}
