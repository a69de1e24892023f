package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/aweris/flashcache"
	"github.com/aweris/flashcache/internal/flashcards"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print cache keys for text files",
	Long:  "Normalize each file's text and print the cache key it would be stored under.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	keys := make([]flashcache.Key, len(args))

	p := pool.New().WithContext(cmd.Context()).WithMaxGoroutines(concurrency())
	for i, path := range args {
		p.Go(func(context.Context) error {
			key, err := hashFile(path)
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	for i, key := range keys {
		fmt.Printf("%s\t%s\n", key, args[i])
	}
	return nil
}

func hashFile(path string) (flashcache.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := flashcards.CleanText(string(data))
	if text == "" {
		return "", fmt.Errorf("%s: %w", path, flashcards.ErrEmptyDocument)
	}
	return flashcache.HashText(text), nil
}

// resolveKey accepts either a key or the path of a text file to hash.
func resolveKey(arg string) (flashcache.Key, error) {
	if key, err := flashcache.ParseKey(arg); err == nil {
		return key, nil
	}
	if _, err := os.Stat(arg); err != nil {
		return "", fmt.Errorf("%q is neither a cache key nor a readable file", arg)
	}
	return hashFile(arg)
}
