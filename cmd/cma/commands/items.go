package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewItemsCommand creates the items command group.
func NewItemsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item", "records"},
		Short:   "Manage items",
		Long:    "List and inspect records of the content model",
	}

	cmd.AddCommand(newItemsListCommand())
	cmd.AddCommand(newItemsGetCommand())

	return cmd
}

func newItemsListCommand() *cobra.Command {
	var (
		itemType    string
		perPage     int
		concurrency int
		allPages    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long:  "List items, optionally filtered by item type. Use --all to fetch every page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			params := cma.NewQueryParams()
			if itemType != "" {
				params.WithFilter("type", itemType)
			}

			items, total, err := listItems(cmd.Context(), client.Items(), params, perPage, concurrency, allPages)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), outputFormat(), items, func(table *tablewriter.Table) {
				table.Header("ID", "Item Type", "Status", "Updated")

				for _, item := range items {
					itemTypeID, _ := item[cma.ItemTypeIDKey].(string)
					_ = table.Append(item.ID(), itemTypeID, metaString(item, "status"), metaString(item, "updated_at"))
				}

				table.Footer("", "", "Total", strconv.Itoa(total))
			})
		},
	}

	cmd.Flags().StringVar(&itemType, "type", "", "filter by item type id or api key")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "items per page (default 30, max 500)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "pages fetched in parallel with --all (default 3, max 10)")
	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")

	return cmd
}

func listItems(
	ctx context.Context,
	items cma.ItemsClient,
	params cma.QueryParams,
	perPage, concurrency int,
	allPages bool,
) ([]cma.Item, int, error) {
	if !allPages {
		if perPage > 0 {
			params["page[limit]"] = strconv.Itoa(perPage)
		}

		page, err := items.List(ctx, params)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list items: %w", err)
		}

		return page.Items, page.TotalCount, nil
	}

	seq, err := items.ListPagedIterator(ctx, params, cma.PaginationOptions{
		PerPage:     perPage,
		Concurrency: concurrency,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	all, err := cma.CollectAll(seq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	return all, len(all), nil
}

func newItemsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ITEM_ID",
		Short: "Get item details",
		Long:  "Display every field of a specific item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			item, err := client.Items().Find(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get item: %w", err)
			}

			return render(cmd.OutOrStdout(), outputFormat(), item, propertyTable(item))
		},
	}
}
