package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var collectionsJSON bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List indexed collections",
	RunE:  runCollections,
}

var collectionsDropCmd = &cobra.Command{
	Use:   "drop NAME",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDrop,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsDropCmd)
	collectionsCmd.Flags().BoolVar(&collectionsJSON, "json", false, "output as JSON")
}

func runCollections(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetConfig())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	infos, err := st.ListCollections()
	if err != nil {
		return err
	}

	if collectionsJSON {
		output, _ := json.MarshalIndent(infos, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	if len(infos) == 0 {
		fmt.Println("No collections. Run 'catalograg index' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOCUMENTS\tMODEL\tDIM\tDISTANCE\tBUILT")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\n",
			info.Name, info.Count, info.Model, info.Dimension, info.Distance, info.BuiltAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runCollectionsDrop(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetConfig())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	if err := st.DeleteCollection(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted collection %q\n", args[0])
	return nil
}
