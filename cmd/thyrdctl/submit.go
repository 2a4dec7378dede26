package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/shared"
)

func submitCmd() *cobra.Command {
	var in app.SpaceInput
	var tags string
	cmd := &cobra.Command{
		Use:   "submit <name>",
		Short: "Create a space in the upstream directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			in.Tags = app.SplitTags(tags)
			return runSubmit(cmd.Context(), in)
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "Free-text description")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&in.Photo, "photo", "", "Photo URL or data: URL")
	cmd.Flags().StringVar(&in.Location, "location", "", "Location reference")
	return cmd
}

func runSubmit(ctx context.Context, in app.SpaceInput) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := newDirectory(shared.Load())
	if err != nil {
		return err
	}
	id, err := app.NewSyncService(client, nil, nil).Submit(ctx, in)
	if err != nil {
		return err
	}
	log.Info().Int64("id", id).Str("backend", string(client.Backend())).Msg("space submitted")
	fmt.Fprintln(os.Stdout, id)
	return nil
}
