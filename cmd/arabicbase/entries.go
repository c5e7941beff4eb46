package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arabicbase/arabicbase/internal/ai"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/search"
)

func (a *app) entriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "Manage vocabulary entries",
	}
	cmd.AddCommand(
		a.entriesListCommand(),
		a.entriesAddCommand(),
		a.entriesUpdateCommand(),
		a.entriesDeleteCommand(),
		a.entriesEnrichCommand(),
		a.entriesForkCommand(),
		a.entriesSearchCommand(),
	)
	return cmd
}

func (a *app) entriesListCommand() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your entries, or the community catalog with --global",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}

			var entries []*domain.Entry
			if global {
				if err := c.LoadGlobalEntries(ctx); err != nil {
					return err
				}
				entries, err = c.GlobalEntries(ctx)
			} else {
				entries, err = c.Entries(ctx)
			}
			if err != nil {
				return err
			}
			return a.printEntries(entries)
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "list every user's entries")
	return cmd
}

// entryFlags are the editable fields of an entry.
type entryFlags struct {
	term            string
	transliteration string
	translation     string
	dialect         string
	category        string
	entryType       string
	tags            []string
	notes           string
}

func (f *entryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.term, "term", "", "Arabic term")
	fs.StringVar(&f.transliteration, "transliteration", "", "Latin transliteration")
	fs.StringVar(&f.translation, "translation", "", "English meaning")
	fs.StringVar(&f.dialect, "dialect", "", "dialect name")
	fs.StringVar(&f.category, "category", "", "category name")
	fs.StringVar(&f.entryType, "type", string(domain.EntryTypeWord), "word, phrase, idiom, slang, grammar, cultural or other")
	fs.StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
	fs.StringVar(&f.notes, "notes", "", "free-form notes")
}

// apply copies every flag the user set onto e.
func (f *entryFlags) apply(fs *pflag.FlagSet, e *domain.Entry) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("term", &e.Term, f.term)
	set("transliteration", &e.Transliteration, f.transliteration)
	set("translation", &e.Translation, f.translation)
	set("dialect", &e.Dialect, f.dialect)
	set("category", &e.Category, f.category)
	set("notes", &e.Notes, f.notes)
	if fs.Changed("type") || e.Type == "" {
		e.Type = domain.EntryType(f.entryType)
	}
	if fs.Changed("tag") {
		e.Tags = f.tags
	}
}

func (a *app) entriesAddCommand() *cobra.Command {
	var (
		f       entryFlags
		suggest bool
		wait    bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry to your library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}

			e := &domain.Entry{Tags: []string{}}
			f.apply(cmd.Flags(), e)
			if suggest && e.Translation == "" {
				a.suggest(ctx, e)
			}

			added, err := c.AddEntry(ctx, e)
			if err != nil {
				return err
			}
			if wait {
				if err := a.waitForEnrichment(ctx); err != nil {
					return err
				}
				if added, err = c.Entry(ctx, added.ID); err != nil {
					return err
				}
			}
			return a.printEntry(added)
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&suggest, "suggest", false, "fill an empty translation from the enrichment service")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for enrichment before printing")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

// suggest fills the translation and transliteration of e when the service
// proposes them.
func (a *app) suggest(ctx context.Context, e *domain.Entry) {
	client, err := do.Invoke[*ai.Client](a.injector)
	if err != nil {
		return
	}
	s := client.SuggestTranslation(ctx, e.Term, e.Dialect, e.Category, e.Type)
	if s.Translation != "" {
		e.Translation = s.Translation
	}
	if e.Transliteration == "" && s.Transliteration != "" {
		e.Transliteration = s.Transliteration
	}
}

func (a *app) entriesUpdateCommand() *cobra.Command {
	var (
		f    entryFlags
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an entry in your library",
		Long: "Edits the fields given as flags. Changing the term, transliteration, translation, " +
			"dialect, category or type schedules new insights.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}

			e, err := c.Entry(ctx, args[0])
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), e)

			updated, err := c.UpdateEntry(ctx, e)
			if err != nil {
				return err
			}
			if wait {
				if err := a.waitForEnrichment(ctx); err != nil {
					return err
				}
				if updated, err = c.Entry(ctx, updated.ID); err != nil {
					return err
				}
			}
			return a.printEntry(updated)
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for enrichment before printing")
	return cmd
}

func (a *app) entriesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an entry from your library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}
			if err := c.DeleteEntry(ctx, args[0]); err != nil {
				return err
			}
			return a.printf("deleted %s\n", args[0])
		},
	}
}

func (a *app) entriesEnrichCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "enrich <id>",
		Short: "Generate insights for an entry that has none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}

			scheduled, err := c.EnrichEntry(ctx, args[0])
			if err != nil {
				return err
			}
			if !scheduled {
				return a.printf("%s already has insights or could not be queued\n", args[0])
			}
			if !wait {
				return a.printf("enrichment scheduled for %s\n", args[0])
			}

			if err := a.waitForEnrichment(ctx); err != nil {
				return err
			}
			e, err := c.Entry(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printEntry(e)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the insights before exiting")
	return cmd
}

func (a *app) entriesForkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fork <id>",
		Short: "Copy a community entry into your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}
			if err := c.LoadGlobalEntries(ctx); err != nil {
				return err
			}

			src, err := c.Entry(ctx, args[0])
			if err != nil {
				return err
			}
			forked, err := c.ForkEntry(ctx, src)
			if err != nil {
				return err
			}
			return a.printEntry(forked)
		},
	}
}

func (a *app) entriesSearchCommand() *cobra.Command {
	var q search.Query

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search the community catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}
			if err := c.LoadGlobalEntries(ctx); err != nil {
				return err
			}

			if len(args) == 1 {
				q.Text = args[0]
			}
			entries, err := c.SearchGlobal(ctx, q)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return a.printEntries(entries)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&q.Dialect, "dialect", "", "only entries of this dialect")
	fs.StringVar(&q.Category, "category", "", "only entries of this category")
	fs.StringVar((*string)(&q.Type), "type", "", "only entries of this type")
	fs.StringVar(&q.Concept, "concept", "", "only entries sharing this meaning")
	fs.StringVar(&q.SortBy, "sort", "", "sort by relevance, recent, votes or term")
	fs.IntVar(&q.Limit, "limit", 50, "maximum results")
	return cmd
}
