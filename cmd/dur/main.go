package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "durance/internal/cli"
	"durance/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "dur",
		Short:        "Durance ownership game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newRegisterCmd(&apiBase),
		newAccountCmd(&apiBase),
		newOwnedCmd(&apiBase),
		newHistoryCmd(&apiBase),
		newBuyCmd(&apiBase),
		newFreeCmd(&apiBase),
		newShieldCmd(&apiBase),
		newUpgradeCmd(&apiBase),
		newTransferCmd(&apiBase),
		newWorkCmd(&apiBase),
		newMarketCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newSearchCmd(&apiBase),
		newJobsCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", arg)
	}
	return id, nil
}

func newRegisterCmd(apiBase *string) *cobra.Command {
	var name, referral string
	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).CreateAccount(ctx, id, name, referral)
			if err != nil {
				return err
			}
			printSuccess("Account ready.")
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&referral, "referral", "", "referral token")
	return cmd
}

func newAccountCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "account <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Account(ctx, id)
			if err != nil {
				return err
			}
			printAccount(out)
			return nil
		},
	}
}

func newOwnedCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "owned <id>",
		Short: "List an owner's assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Owned(ctx, id)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newHistoryCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show an asset's ownership history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).History(ctx, id)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <buyer-id> <asset-id>",
		Short: "Purchase an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buyerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			assetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Purchase(ctx, buyerID, assetID)
			if err != nil {
				return err
			}
			printSuccess("Purchase complete.")
			printJSON(out)
			return nil
		},
	}
}

func newFreeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "free <asset-id>",
		Short: "Buy your own freedom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).Liberate(ctx, id); err != nil {
				return err
			}
			printSuccess("Freedom purchased.")
			return nil
		},
	}
}

func newShieldCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shield <owner-id> <asset-id>",
		Short: "Shield an owned asset for 24h",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			assetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Shield(ctx, ownerID, assetID)
			if err != nil {
				return err
			}
			printSuccess("Shield raised.")
			printJSON(out)
			return nil
		},
	}
}

func newUpgradeCmd(apiBase *string) *cobra.Command {
	var info bool
	cmd := &cobra.Command{
		Use:   "upgrade <owner-id> <asset-id>",
		Short: "Upgrade an owned asset (or show its track with --info)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			client := newClient(apiBase)
			if info {
				id, err := parseID(args[len(args)-1])
				if err != nil {
					return err
				}
				out, err := client.UpgradeInfo(ctx, id)
				if err != nil {
					return err
				}
				printJSON(out)
				return nil
			}
			if len(args) != 2 {
				return fmt.Errorf("owner-id and asset-id are required")
			}
			ownerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			assetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			out, err := client.Upgrade(ctx, ownerID, assetID)
			if err != nil {
				return err
			}
			printSuccess("Upgrade complete.")
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&info, "info", false, "show the upgrade track instead of buying a level")
	return cmd
}

func newTransferCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from-id> <to-id> <amount>",
		Short: "Transfer coins",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromID, err := parseID(args[0])
			if err != nil {
				return err
			}
			toID, err := parseID(args[1])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).Transfer(ctx, fromID, toID, amount); err != nil {
				return err
			}
			printSuccess("Transfer complete.")
			return nil
		},
	}
}

func newWorkCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Manage work cycles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "send <owner-id>",
			Short: "Send all owned assets to work",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := newClient(apiBase).SendToWork(ctx, id)
				if err != nil {
					return err
				}
				printSuccess("Workers dispatched.")
				printJSON(out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "collect <owner-id>",
			Short: "Collect finished work rewards",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := newClient(apiBase).CollectRewards(ctx, id)
				if err != nil {
					return err
				}
				printSuccess("Rewards collected.")
				printJSON(out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status <owner-id>",
			Short: "Show work status",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := newClient(apiBase).WorkStatus(ctx, id)
				if err != nil {
					return err
				}
				printJSON(out)
				return nil
			},
		},
	)
	return cmd
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var sort string
	var exclude int64
	var limit int
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Browse purchasable accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Browse(ctx, sort, exclude, limit)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "random", "price_asc, price_desc, or random")
	cmd.Flags().Int64Var(&exclude, "exclude", 0, "account id to exclude")
	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show market statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).MarketStats(ctx)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	})
	return cmd
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top <assets|balance|value>",
		Short: "Show a leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, args[0], limit)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max rows")
	return cmd
}

func newSearchCmd(apiBase *string) *cobra.Command {
	var exclude int64
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search accounts by display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Search(ctx, args[0], exclude)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&exclude, "exclude", 0, "account id to exclude")
	return cmd
}

func newJobsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:       "jobs <income|reprice|fluctuate|cleanup|stats>",
		Short:     "Trigger an admin batch job",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"income", "reprice", "fluctuate", "cleanup", "stats"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).RunJob(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess("Job complete.")
			printJSON(out)
			return nil
		},
	}
}
