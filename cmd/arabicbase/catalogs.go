package main

import (
	"github.com/spf13/cobra"

	"github.com/arabicbase/arabicbase/internal/cache"
	"github.com/arabicbase/arabicbase/internal/domain"
)

// catalogCommand builds the dialects or categories command tree.
func (a *app) catalogCommand(use string, kind domain.CatalogKind) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   use,
		Short: "List your " + use + ", or every known one with --global",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}
			if global {
				if err := c.LoadGlobalData(ctx); err != nil {
					return err
				}
			}

			v, err := c.View(ctx)
			if err != nil {
				return err
			}
			return a.printNames(catalogNames(v, kind, global))
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "list the global catalog")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Subscribe to a " + string(kind),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				c, err := a.engine(ctx)
				if err != nil {
					return err
				}
				add := c.AddDialect
				if kind == domain.CatalogCategory {
					add = c.AddCategory
				}
				if err := add(ctx, args[0]); err != nil {
					return err
				}
				return a.printf("subscribed to %s\n", args[0])
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Unsubscribe from a " + string(kind) + " and delete your entries filed under it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				c, err := a.engine(ctx)
				if err != nil {
					return err
				}
				remove := c.RemoveDialect
				if kind == domain.CatalogCategory {
					remove = c.RemoveCategory
				}
				n, err := remove(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printf("unsubscribed from %s, %d entries deleted\n", args[0], n)
			},
		},
	)
	return cmd
}

func catalogNames(v *cache.View, kind domain.CatalogKind, global bool) []string {
	switch {
	case kind == domain.CatalogDialect && global:
		return v.GlobalDialects
	case kind == domain.CatalogDialect:
		return v.Dialects
	case global:
		return v.GlobalCategories
	default:
		return v.Categories
	}
}
