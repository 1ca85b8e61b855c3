package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"graphvault/internal/adapters/term"
	"graphvault/internal/application"
	"graphvault/internal/application/commands"
)

var (
	edgeProps    []string
	edgeIncoming bool
)

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage edges",
	Long: `Save, list and delete directed, weighted edges between existing nodes.

Examples:
  graphvault-cli edge save 1 3 0.9 premise
  graphvault-cli edge list 1
  graphvault-cli edge list 3 --incoming
  graphvault-cli edge to 3
  graphvault-cli edge delete 1 3`,
}

var edgeSaveCmd = &cobra.Command{
	Use:   "save <from> <to> <weight> [content]",
	Short: "Create or replace an edge",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		from, to, err := parseEndpoints(args)
		if err != nil {
			return err
		}
		weight, err := application.ParseWeight(args[2])
		if err != nil {
			return err
		}
		props, err := application.ParseProperties(edgeProps)
		if err != nil {
			return err
		}
		var content string
		if len(args) == 4 {
			content = args[3]
		}

		saveCmd := commands.NewSaveEdgeCommand(GetStore(), from, to, weight, content)
		saveCmd.Properties = props
		result, err := saveCmd.Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Println(term.Success.Render(result.Message))
		return nil
	},
}

var edgeListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List the outgoing (or incoming) edges of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := application.ParseIDArg("nodeID", args[0])
		if err != nil {
			return err
		}
		dir := application.Outgoing
		if edgeIncoming {
			dir = application.Incoming
		}

		result, err := commands.NewListEdgesCommand(GetStore(), id, dir).Execute(ctx)
		if err != nil {
			return err
		}
		printEdges(result)
		return nil
	},
}

var edgeToCmd = &cobra.Command{
	Use:   "to <id>",
	Short: "List the edges pointing at a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := application.ParseIDArg("nodeID", args[0])
		if err != nil {
			return err
		}

		result, err := commands.NewEdgesToCommand(GetStore(), id).Execute(ctx)
		if err != nil {
			return err
		}
		printEdges(result)
		return nil
	},
}

var edgeDeleteCmd = &cobra.Command{
	Use:   "delete <from> <to>",
	Short: "Delete an edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		from, to, err := parseEndpoints(args)
		if err != nil {
			return err
		}

		result, err := commands.NewDeleteEdgeCommand(GetStore(), from, to).Execute(ctx)
		if err != nil {
			return err
		}

		if result.Deleted {
			fmt.Println(term.Success.Render(result.Message))
		} else {
			fmt.Println(term.MutedText.Render(result.Message))
		}
		return nil
	},
}

func parseEndpoints(args []string) (int64, int64, error) {
	from, err := application.ParseIDArg("fromID", args[0])
	if err != nil {
		return 0, 0, err
	}
	to, err := application.ParseIDArg("toID", args[1])
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func printEdges(result *commands.EdgesResult) {
	if len(result.Edges) == 0 && len(result.Skipped) == 0 {
		fmt.Println("No edges found")
		return
	}
	for _, e := range result.Edges {
		fmt.Println(term.Edge(e))
	}
	fmt.Print(term.Skipped(result.Skipped))
}

func init() {
	edgeSaveCmd.Flags().StringArrayVarP(&edgeProps, "prop", "p", nil, "extended property as key=value (repeatable)")
	edgeListCmd.Flags().BoolVarP(&edgeIncoming, "incoming", "i", false, "list edges ending at the node")

	edgeCmd.AddCommand(edgeSaveCmd, edgeListCmd, edgeToCmd, edgeDeleteCmd)
	rootCmd.AddCommand(edgeCmd)
}
