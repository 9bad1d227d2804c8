package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/recall-go/pkg/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile [name]",
	Short: "Show or switch the active performance profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if len(args) == 0 {
			var names []string
			for name := range cfg.Performance.Profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				marker := " "
				if name == cfg.Performance.DefaultProfile {
					marker = "*"
				}
				profile := cfg.Performance.Profiles[name]
				fmt.Fprintf(out, "%s %-15s maxLatency=%s tiers=%v\n",
					marker, name, profile.MaxLatency, profile.EnabledTiers)
			}
			return nil
		}

		name := args[0]
		if _, ok := cfg.Performance.Profiles[name]; !ok {
			return fmt.Errorf("unknown profile: %s", name)
		}

		viper.Set("performance.defaultProfile", name)
		if err := viper.WriteConfig(); err != nil {
			return err
		}

		fmt.Fprintf(out, "active profile set to %s\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
