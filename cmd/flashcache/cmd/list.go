package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache entries",
	Long:  "List all cache entries, least recently updated first. That is the order they will be evicted in.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the number of cache entries",
	Args:  cobra.NoArgs,
	RunE:  runSize,
}

func init() {
	listCmd.Flags().Bool("long", false, "show full keys")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(sizeCmd)
}

func runList(cmd *cobra.Command, args []string) (err error) {
	long, _ := cmd.Flags().GetBool("long")

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	entries, err := c.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("(no entries)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		key := e.Key
		if !long && len(key) > 12 {
			key = key[:12]
		}
		state := ""
		if e.Evicting {
			state = "evicting"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			key, humanize.Bytes(uint64(e.Size)), humanize.Time(e.UpdatedAt), e.Location, state)
	}
	return w.Flush()
}

func runSize(cmd *cobra.Command, args []string) (err error) {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	n, err := c.Size(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%d/%d\n", n, c.Limit())
	return nil
}
