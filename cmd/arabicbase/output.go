package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/arabicbase/arabicbase/internal/domain"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) error {
	if a.asJSON {
		return a.printJSON(map[string]string{"message": strings.TrimSpace(fmt.Sprintf(format, args...))})
	}
	_, err := fmt.Fprintf(a.out, format, args...)
	return err
}

func (a *app) printNames(names []string) error {
	if names == nil {
		names = []string{}
	}
	if a.asJSON {
		return a.printJSON(names)
	}
	for _, n := range names {
		if _, err := fmt.Fprintln(a.out, n); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printEntries(entries []*domain.Entry) error {
	if entries == nil {
		entries = []*domain.Entry{}
	}
	if a.asJSON {
		return a.printJSON(entries)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTERM\tTRANSLATION\tDIALECT\tCATEGORY\tTYPE\tVOTES\tINSIGHTS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t+%d/-%d\t%s\n",
			e.ID, e.Term, e.Translation, e.Dialect, e.Category, e.Type,
			e.Upvotes, e.Downvotes, yesNo(e.HasAIInsights))
	}
	return tw.Flush()
}

func (a *app) printEntry(e *domain.Entry) error {
	if a.asJSON {
		return a.printJSON(e)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("id", e.ID)
	row("term", e.Term)
	row("transliteration", e.Transliteration)
	row("translation", e.Translation)
	row("dialect", e.Dialect)
	row("category", e.Category)
	row("type", string(e.Type))
	row("tags", strings.Join(e.Tags, ", "))
	row("notes", e.Notes)
	row("concept", e.ConceptID)
	row("votes", fmt.Sprintf("+%d/-%d", e.Upvotes, e.Downvotes))
	if e.HasAIInsights && e.AIEnrichment != nil {
		row("synonyms", strings.Join(e.AIEnrichment.Synonyms, ", "))
		row("example", e.AIEnrichment.ExampleUsage)
		row("culture", e.AIEnrichment.CulturalContext)
		row("grammar", e.AIEnrichment.GrammaticalNotes)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
