package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Finish interrupted evictions",
	Long:  "Remove the rows and result files of evictions that were interrupted by a crash or a failed file removal.",
	Args:  cobra.NoArgs,
	RunE:  runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) (err error) {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	n, err := c.Recover(cmd.Context())
	fmt.Fprintf(os.Stderr, "Completed %d pending evictions\n", n)
	return err
}
