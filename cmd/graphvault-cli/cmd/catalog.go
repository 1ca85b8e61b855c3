package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"graphvault/internal/adapters/term"
	"graphvault/internal/application"
	"graphvault/internal/application/commands"
)

var (
	syncForce bool
	topLimit  int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the SQLite catalog of the store",
	Long: `The catalog is a query cache rebuilt from the store. It is never
authoritative: sync replaces its whole content.

Examples:
  graphvault-cli catalog sync
  graphvault-cli catalog search mortal
  graphvault-cli catalog top --limit 5
  graphvault-cli catalog show 3`,
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the catalog from the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer catalog.Close()

		result, err := commands.NewSyncCatalogCommand(GetStore(), catalog, syncForce).Execute(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(term.Success.Render(result.Message))
		return nil
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search node content",
	Long: `Search node content and IDs in the catalog.

Results are ranked by relevance using fuzzy matching. The catalog is
synced first when the store changed since the last sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer catalog.Close()

		if _, err := commands.NewSyncCatalogCommand(GetStore(), catalog, false).Execute(ctx); err != nil {
			return err
		}
		results, err := commands.NewSearchCommand(catalog, args[0]).Execute(ctx)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found")
			return nil
		}
		for _, r := range results {
			fmt.Println(term.CatalogNode(r.CatalogNode))
		}
		return nil
	},
}

var catalogTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the most connected nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer catalog.Close()

		if _, err := commands.NewSyncCatalogCommand(GetStore(), catalog, false).Execute(ctx); err != nil {
			return err
		}
		nodes, err := commands.NewTopNodesCommand(catalog, topLimit).Execute(ctx)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Println(term.CatalogNode(n))
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <nodeID>",
	Short: "Show a catalog node and the edges pointing at it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := application.ParseIDArg("nodeID", args[0])
		if err != nil {
			return err
		}
		catalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer catalog.Close()

		if _, err := commands.NewSyncCatalogCommand(GetStore(), catalog, false).Execute(ctx); err != nil {
			return err
		}
		result, err := commands.NewShowCatalogNodeCommand(catalog, id).Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Println(term.CatalogNode(*result.Node))
		if len(result.Incoming) == 0 {
			fmt.Println(term.Label.Render("No incoming edges"))
			return nil
		}
		fmt.Println(term.Label.Render("Incoming edges:"))
		for _, e := range result.Incoming {
			fmt.Println(term.Edge(e))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Save the nodes and edges of a YAML document as one unit",
	Long: `Import reads a YAML document and saves it as a single batch: either
every record is written or, on failure, none is.

  nodes:
    - id: 1
      type: simo
      content: Socrates is a man
      properties: {source: wiki}
  edges:
    - from: 1
      to: 2
      weight: 0.5
      content: supports

Use - to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		batch, err := commands.ParseBatch(in)
		if err != nil {
			return err
		}
		result, err := commands.NewSaveBatchCommand(GetStore(), batch).Execute(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(term.Success.Render(result.Message))
		return nil
	},
}

func init() {
	catalogSyncCmd.Flags().BoolVarP(&syncForce, "force", "f", true, "rebuild even when the catalog looks current")
	catalogTopCmd.Flags().IntVarP(&topLimit, "limit", "n", 10, "number of nodes to list")

	catalogCmd.AddCommand(catalogSyncCmd, catalogSearchCmd, catalogTopCmd, catalogShowCmd)
	rootCmd.AddCommand(catalogCmd, importCmd)
}
