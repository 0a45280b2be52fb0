package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTranslateCommand(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text to Sinhala",
		Long:  `Translates text with the configured translation service. Useful for checking connectivity and quota.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if load == nil {
				return errors.New("services not configured")
			}
			services, cleanup, err := load(ctx)
			if err != nil {
				return err
			}
			if cleanup != nil {
				defer cleanup()
			}
			if services.Translator == nil {
				return errors.New("translator not configured")
			}

			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			heading.Fprintln(out, "Original text:")
			fmt.Fprintln(out, text)
			fmt.Fprintln(out)
			heading.Fprintln(out, "Translated to Sinhala:")
			fmt.Fprintln(out, services.Translator.Translate(ctx, text))
			return nil
		},
	}
}
