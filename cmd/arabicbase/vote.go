package main

import (
	"github.com/spf13/cobra"

	"github.com/arabicbase/arabicbase/internal/domain"
)

func (a *app) voteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <id> <up|down>",
		Short: "Vote on a community entry",
		Long: "Clicking the vote you already hold removes it; clicking the other " +
			"direction switches it.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.VoteUp), string(domain.VoteDown)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.engine(ctx)
			if err != nil {
				return err
			}
			if err := c.LoadGlobalEntries(ctx); err != nil {
				return err
			}

			res, err := c.Vote(ctx, args[0], domain.VoteType(args[1]))
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(res)
			}
			if !res.Synced {
				a.logger().Warn("vote was not saved; counters reloaded")
			}
			current, err := c.Entry(ctx, args[0])
			if err != nil {
				return err
			}
			to := string(res.To)
			if to == "" {
				to = "none"
			}
			return a.printf("%s  vote=%s  up=%d  down=%d\n", current.ID, to, current.Upvotes, current.Downvotes)
		},
	}
}
