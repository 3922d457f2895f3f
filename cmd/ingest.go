package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"craggo/src/core/ingest"
	"craggo/src/fsutil"
	"craggo/src/infrastructure/integrations/ollama"
	"craggo/src/retrieval"
	"craggo/src/storage/weaviate"
)

var (
	ingestDir    string
	chunkSize    int
	chunkOverlap int
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index a directory of text documents",
	Long: `The ingest command splits every file in a directory into chunks,
embeds them and writes them to the chunk index. It bypasses the upload and
job queue path, which makes it suitable for seeding a local corpus.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		fs := fsutil.NewLocalFileStore()
		files, err := fs.ListFiles(ingestDir)
		if err != nil {
			fmt.Printf("Error listing directory: %v\n", err)
			return
		}
		if len(files) == 0 {
			fmt.Println("No files to ingest")
			return
		}

		oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
			Timeout: 120 * time.Second,
		})

		wc := weaviateClient.New(weaviateClient.Config{
			Host:   viper.GetString("weaviate.host"),
			Scheme: "http",
		})
		wsdk := weaviate.NewSDK(wc)

		if err := wsdk.EnsureChunkSchema(ctx, weaviate.DefaultChunkClass); err != nil {
			fmt.Printf("Error ensuring chunk schema: %v\n", err)
			return
		}

		var elasticRetriever *retrieval.ElasticRetriever
		if viper.GetString("crag.retriever") == "elastic" {
			es, err := elasticsearch.NewClient(elasticsearch.Config{
				Addresses: []string{viper.GetString("elasticsearch.url")},
			})
			if err != nil {
				fmt.Printf("Error creating elasticsearch client: %v\n", err)
				return
			}
			elasticRetriever = retrieval.NewElasticRetriever(es, viper.GetString("elasticsearch.index"))
		}

		embeddingModel := viper.GetString("ollama.embedding_model")
		bar := progressbar.Default(int64(len(files)), "indexing")

		var totalChunks int
		for _, file := range files {
			content, err := fs.ReadFile(file)
			if err != nil {
				fmt.Printf("\nError reading %s: %v\n", file, err)
				continue
			}

			sourceID := filepath.Base(file)
			chunks, err := ingest.SplitDocument(sourceID, string(content), chunkSize, chunkOverlap)
			if err != nil {
				fmt.Printf("\nError splitting %s: %v\n", file, err)
				continue
			}
			if len(chunks) == 0 {
				bar.Add(1)
				continue
			}

			objects := make([]weaviate.ChunkObject, 0, len(chunks))
			for _, chunk := range chunks {
				vector, err := oc.GetEmbedding(ctx, embeddingModel, chunk.Content)
				if err != nil {
					fmt.Printf("\nError embedding chunk %d of %s: %v\n", chunk.Position, file, err)
					return
				}
				objects = append(objects, weaviate.ChunkObject{
					Vector:   vector,
					Content:  chunk.Content,
					SourceID: chunk.SourceID,
					Position: chunk.Position,
				})
			}

			if err := wsdk.BatchAddChunks(ctx, weaviate.DefaultChunkClass, objects); err != nil {
				fmt.Printf("\nError indexing %s: %v\n", file, err)
				return
			}

			if elasticRetriever != nil {
				if err := elasticRetriever.IndexChunks(ctx, chunks); err != nil {
					fmt.Printf("\nError indexing %s for BM25: %v\n", file, err)
					return
				}
			}

			totalChunks += len(chunks)
			bar.Add(1)
		}

		fmt.Printf("\nIndexed %d chunks from %d files\n", totalChunks, len(files))
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	settingDefaultConfig()

	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Directory of documents to ingest (required)")
	ingestCmd.MarkFlagRequired("dir")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", ingest.DefaultChunkSize, "Chunk size in characters")
	ingestCmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", ingest.DefaultChunkOverlap, "Chunk overlap in characters")
}
