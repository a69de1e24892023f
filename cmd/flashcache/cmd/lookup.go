package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <key|file>",
	Short: "Show the cached result for a key",
	Long:  "Print the result location cached for a key, or for the text of a file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) (err error) {
	key, err := resolveKey(args[0])
	if err != nil {
		return err
	}

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	loc, ok, err := c.Lookup(cmd.Context(), key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("(not cached)")
		return nil
	}
	fmt.Println(loc)
	return nil
}
