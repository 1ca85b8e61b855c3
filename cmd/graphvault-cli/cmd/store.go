package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"graphvault/internal/adapters/term"
	"graphvault/internal/application"
	"graphvault/internal/application/commands"
)

var (
	pathIncoming bool
	pathCopy     bool
	checkRepair  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data root and an empty global index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewInitCommand(GetStore()).Execute(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(term.Success.Render(result.Message))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node and edge totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewStatsCommand(GetStore()).Execute(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", term.Label.Render("root:  "), result.Root)
		fmt.Printf("%s %s\n", term.Label.Render("format:"), result.Format)
		fmt.Printf("%s %d\n", term.Label.Render("nodes: "), result.Totals.Nodes)
		fmt.Printf("%s %d\n", term.Label.Render("edges: "), result.Totals.Edges)
		return nil
	},
}

var pathCmd = &cobra.Command{
	Use:   "path <id> [to-id]",
	Short: "Print where a node, or an edge mirror, is stored",
	Long: `Print the file of a node, or with a second ID the file of the edge
between them. Edge paths address the outgoing mirror unless --incoming is set.

Examples:
  graphvault-cli path 42
  graphvault-cli path 1 2 --incoming --copy`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := application.ParseIDArg("fromID", args[0])
		if err != nil {
			return err
		}

		pathCommand := commands.NewNodePathCommand(GetStore(), id)
		if len(args) == 2 {
			to, err := application.ParseIDArg("toID", args[1])
			if err != nil {
				return err
			}
			dir := application.Outgoing
			if pathIncoming {
				dir = application.Incoming
			}
			pathCommand = commands.NewEdgePathCommand(GetStore(), id, to, dir)
		}

		path, err := pathCommand.Execute(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(path)

		if pathCopy {
			if err := clipboard.WriteAll(path); err != nil {
				return fmt.Errorf("failed to copy path: %w", err)
			}
			fmt.Fprintln(os.Stderr, term.MutedText.Render("copied to clipboard"))
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify edge mirrors, manifests and the node registry",
	Long: `Check walks both edge trees and the node registry and reports every
inconsistency. With --repair the findings are fixed, treating the outgoing
mirror of an edge as authoritative, and the store is checked again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewCheckCommand(GetStore(), checkRepair).Execute(context.Background())
		if result == nil {
			return err
		}

		remaining := result.Report
		if result.After != nil {
			remaining = result.After
		}
		for _, f := range remaining.Findings {
			fmt.Println(term.Finding(f))
		}
		if remaining.OK() {
			fmt.Println(term.Success.Render(result.Message))
		} else {
			fmt.Println(term.WarningMsg.Render(result.Message))
		}
		if err != nil {
			return err
		}
		if !remaining.OK() {
			return fmt.Errorf("%d problems remaining", len(remaining.Findings))
		}
		return nil
	},
}

func init() {
	pathCmd.Flags().BoolVarP(&pathIncoming, "incoming", "i", false, "address the incoming mirror of the edge")
	pathCmd.Flags().BoolVarP(&pathCopy, "copy", "c", false, "copy the path to the clipboard")
	checkCmd.Flags().BoolVar(&checkRepair, "repair", false, "fix the findings")

	rootCmd.AddCommand(initCmd, statsCmd, pathCmd, checkCmd)
}
