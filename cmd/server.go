package cmd

import (
	"github.com/spf13/cobra"
	"recording-ingest/config"
	server2 "recording-ingest/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start http ingest server",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
