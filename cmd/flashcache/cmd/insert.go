package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aweris/flashcache"
)

var insertCmd = &cobra.Command{
	Use:   "insert <key> <path>",
	Short: "Record an existing result file",
	Long:  "Add a cache entry pointing at an existing result file, evicting the oldest entries if the cache is full.",
	Args:  cobra.ExactArgs(2),
	RunE:  runInsert,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <key> <path>",
	Short: "Re-point an entry at a new result file",
	Long:  "Update an existing cache entry to a regenerated result file. The old file is left in place.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runInsert(cmd *cobra.Command, args []string) (err error) {
	key, path, err := keyAndPath(args)
	if err != nil {
		return err
	}

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	if err := c.Insert(cmd.Context(), key, path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Inserted %s -> %s\n", key.Short(), path)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) (err error) {
	key, path, err := keyAndPath(args)
	if err != nil {
		return err
	}

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	if err := c.Refresh(cmd.Context(), key, path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Refreshed %s -> %s\n", key.Short(), path)
	return nil
}

func keyAndPath(args []string) (flashcache.Key, string, error) {
	key, err := flashcache.ParseKey(args[0])
	if err != nil {
		return "", "", err
	}
	path, err := filepath.Abs(args[1])
	if err != nil {
		return "", "", err
	}
	return key, path, nil
}
