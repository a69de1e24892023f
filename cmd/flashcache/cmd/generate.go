package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/flashcache/internal/flashcards"
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>...",
	Short: "Generate flashcards for text files",
	Long: `Generate flashcards for each text file, reusing cached results for text
that was processed before. With --force every file is regenerated and its
cache entry refreshed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	flags := generateCmd.Flags()
	flags.Bool("force", false, "regenerate even when a cached result exists")
	flags.Bool("print", false, "print the flashcards as JSON")
	flags.String("prompt", "", "prompt sent before the document text")
	flags.Int("chunk-size", flashcards.DefaultChunkSize, "characters of text per generation request")
	flags.Int("concurrency", 4, "documents processed at once")
	flags.String("model", "", "chat completion model")
	flags.Duration("timeout", time.Minute, "timeout per generation request")

	viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
	viper.BindPFlag("openai.model", flags.Lookup("model"))

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) (err error) {
	force, _ := cmd.Flags().GetBool("force")
	printCards, _ := cmd.Flags().GetBool("print")
	prompt, _ := cmd.Flags().GetString("prompt")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	docs := make([]flashcards.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, flashcards.Document{Name: filepath.Base(path), Text: string(data)})
	}

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c, &err)

	gen := flashcards.NewOpenAI(&flashcards.OpenAIConfig{
		BaseURL: viper.GetString("openai.base_url"),
		APIKey:  viper.GetString("openai.api_key"),
		Model:   viper.GetString("openai.model"),
		Timeout: timeout,
	})

	p := flashcards.NewPipeline(c, gen,
		flashcards.WithPrompt(prompt),
		flashcards.WithChunkSize(chunkSize),
		flashcards.WithConcurrency(concurrency()),
		flashcards.WithLogger(logger()),
	)

	results, err := p.ProcessAll(cmd.Context(), docs, force)
	if err != nil {
		return err
	}

	for _, res := range results {
		status := "generated"
		if res.Cached {
			status = "cached"
		}
		fmt.Printf("%s\t%s\t%s\t%d cards\t%s\n", res.Name, res.Key.Short(), status, len(res.Cards), res.Location)
		if printCards {
			out, err := json.MarshalIndent(res.Cards, "", "    ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		}
	}
	return nil
}

func concurrency() int {
	if n := viper.GetInt("concurrency"); n > 0 {
		return n
	}
	return 1
}
