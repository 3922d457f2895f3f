package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"craggo/src/core/crag"
	"craggo/src/infrastructure/integrations/ollama"
	"craggo/src/infrastructure/integrations/websearch"
	"craggo/src/infrastructure/retry"
	"craggo/src/log"
	"craggo/src/storage/weaviate"
)

var askQuery string

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a single query from the command line",
	Long: `The ask command runs one query through the full corrective pipeline
without starting the HTTP server. Useful for smoke testing a deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
			Timeout: 120 * time.Second,
		})
		provider := ollama.NewProvider(oc, viper.GetString("ollama.model"),
			ollama.WithTemperature(viper.GetFloat64("ollama.temperature")))
		retryOpts := []retry.Option{retry.WithMaxAttempts(viper.GetInt("crag.retry_attempts"))}
		llm := crag.NewRetryingProvider(provider, retryOpts...)

		wc := weaviateClient.New(weaviateClient.Config{
			Host:   viper.GetString("weaviate.host"),
			Scheme: "http",
		})
		wsdk := weaviate.NewSDK(wc)

		retriever, err := buildRetriever(wsdk, oc)
		if err != nil {
			log.Error(err, "Failed to build retriever")
			return
		}

		searcher := websearch.NewClient(viper.GetString("websearch.url"), &http.Client{
			Timeout: 30 * time.Second,
		})

		orchestrator := crag.NewOrchestrator(retriever, searcher, llm,
			crag.WithTopK(viper.GetInt("crag.top_k")),
			crag.WithRetryOptions(retryOpts...),
		)

		answer, err := orchestrator.Answer(ctx, "cli", askQuery)
		if err != nil {
			fmt.Printf("Error answering query: %v\n", err)
			return
		}

		fmt.Printf("Decision: %s\n", answer.Decision)
		fmt.Println("-------------------")
		fmt.Println(answer.Text)
		fmt.Println("-------------------")
		if len(answer.Sources) > 0 {
			fmt.Println("Sources:")
			for _, s := range answer.Sources {
				if s.Link != "" {
					fmt.Printf("- %s (%s)\n", s.Title, s.Link)
				} else {
					fmt.Printf("- %s\n", s.Title)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	settingDefaultConfig()

	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "Query to answer (required)")
	askCmd.MarkFlagRequired("query")
}
