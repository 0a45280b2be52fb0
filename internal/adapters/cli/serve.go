package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newServeCommand(serve ServeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Starts the HTTP API on API_PORT. When NATS_URL is set the server also
consumes ingestion requests published with --publish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if serve == nil {
				return errors.New("server not configured")
			}
			return serve(cmd.Context())
		},
	}
}
