package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/memclient"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the memory service over the configured transport",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := memclient.New(cfg.MemoryService)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		if err := client.Connect(cmd.Context()); err != nil {
			return err
		}

		health, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "transport:  %s\n", client.Name())
		fmt.Fprintf(out, "backend:    %s\n", health.Storage.Backend)
		fmt.Fprintf(out, "status:     %s\n", health.Storage.Status)
		fmt.Fprintf(out, "memories:   %d\n", health.Storage.TotalMemories)
		if health.Storage.EmbeddingModel != "" {
			fmt.Fprintf(out, "embeddings: %s\n", health.Storage.EmbeddingModel)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
