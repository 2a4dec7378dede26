package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"thyrd_spaces/internal/app"
	"thyrd_spaces/internal/domain"
	"thyrd_spaces/internal/listing"
	"thyrd_spaces/internal/shared"
)

func searchCmd() *cobra.Command {
	var q domain.SearchQuery
	var page, size int
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Browse the upstream directory without touching local storage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Keyword = args[0]
			}
			return runSearch(cmd.Context(), q, page, size)
		},
	}
	cmd.Flags().StringVar(&q.Category, "category", "", "Category to filter (all for none)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number, 1-based")
	cmd.Flags().IntVar(&size, "page-size", 0, "Results per page (default PAGE_SIZE)")
	return cmd
}

func runSearch(ctx context.Context, q domain.SearchQuery, page, size int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := shared.Load()
	if size <= 0 {
		size = cfg.PageSize
	}

	client, err := newDirectory(cfg)
	if err != nil {
		return err
	}
	all, err := app.NewSyncService(client, nil, nil).FetchAll(ctx)
	if err != nil {
		return err
	}

	matched := listing.Filter(all, q)
	items := listing.Paginate(matched, page, size)
	if len(items) == 0 {
		fmt.Fprintln(os.Stdout, "No matches found.")
		return nil
	}
	for _, sp := range items {
		sum := listing.Summarize(sp.Reviews)
		fmt.Fprintf(os.Stdout, "%d\t%s\t[%s]\t%s\n", sp.ID, sp.Name, strings.Join(sp.Tags, ", "), sum.Label())
	}
	fmt.Fprintf(os.Stdout, "page %d of %d (%d matches)\n", page, listing.PageCount(len(matched), size), len(matched))
	return nil
}
