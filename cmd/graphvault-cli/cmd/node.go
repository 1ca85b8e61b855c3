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
	nodeType  string
	nodeProps []string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage nodes",
	Long: `Save, read, delete and list nodes.

Examples:
  graphvault-cli node save 1 "Socrates is a man" --type simo --prop source=wiki
  graphvault-cli node get 1
  graphvault-cli node delete 1
  graphvault-cli node list`,
}

var nodeSaveCmd = &cobra.Command{
	Use:   "save <id> <content>",
	Short: "Create or replace a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := application.ParseIDArg("nodeID", args[0])
		if err != nil {
			return err
		}
		t, err := application.ParseNodeType(nodeType)
		if err != nil {
			return err
		}
		props, err := application.ParseProperties(nodeProps)
		if err != nil {
			return err
		}

		saveCmd := commands.NewSaveNodeCommand(GetStore(), id, args[1])
		saveCmd.Type = t
		saveCmd.Properties = props
		result, err := saveCmd.Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Println(term.Success.Render(result.Message))
		return nil
	},
}

var nodeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := application.ParseIDArg("nodeID", args[0])
		if err != nil {
			return err
		}

		node, err := commands.NewGetNodeCommand(GetStore(), id).Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Print(term.Node(*node))
		return nil
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a node and every edge touching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := application.ParseIDArg("nodeID", args[0])
		if err != nil {
			return err
		}

		result, err := commands.NewDeleteNodeCommand(GetStore(), id).Execute(ctx)
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

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all node IDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		ids, err := commands.NewListNodesCommand(GetStore()).Execute(ctx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	nodeSaveCmd.Flags().StringVarP(&nodeType, "type", "t", "standard", "node type: standard, simo or miso")
	nodeSaveCmd.Flags().StringArrayVarP(&nodeProps, "prop", "p", nil, "extended property as key=value (repeatable)")

	nodeCmd.AddCommand(nodeSaveCmd, nodeGetCmd, nodeDeleteCmd, nodeListCmd)
	rootCmd.AddCommand(nodeCmd)
}
