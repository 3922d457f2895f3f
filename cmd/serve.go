package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "craggo/handler/http"
	"craggo/src/core/crag"
	"craggo/src/infrastructure/integrations/ollama"
	"craggo/src/infrastructure/integrations/websearch"
	jobctrl "craggo/src/infrastructure/job"
	"craggo/src/infrastructure/retry"
	"craggo/src/log"
	"craggo/src/retrieval"
	"craggo/src/storage/minioctrl"
	"craggo/src/storage/postgres/chunkctrl"
	"craggo/src/storage/postgres/resourcectrl"
	"craggo/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the corrective RAG server",
	Long:  `The serve command starts an HTTP server that answers queries through the corrective pipeline and accepts document uploads for ingestion.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	// Initialize PostgreSQL connection
	db, err := openDatabase()
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	if err := db.AutoMigrate(&resourcectrl.Resource{}, &chunkctrl.Chunk{}, &jobctrl.Job{}); err != nil {
		log.Error(err, "Failed to migrate database")
		return
	}

	// Initialize Ollama client and LLM provider
	oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
		Timeout: 120 * time.Second,
	})
	provider := ollama.NewProvider(oc, viper.GetString("ollama.model"),
		ollama.WithTemperature(viper.GetFloat64("ollama.temperature")))
	retryOpts := []retry.Option{retry.WithMaxAttempts(viper.GetInt("crag.retry_attempts"))}
	llm := crag.NewRetryingProvider(provider, retryOpts...)

	// Initialize Weaviate client
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

	// Initialize web search client
	searcher := websearch.NewClient(viper.GetString("websearch.url"), &http.Client{
		Timeout: 30 * time.Second,
	})

	// Initialize the corrective pipeline
	orchestrator := crag.NewOrchestrator(retriever, searcher, llm,
		crag.WithTopK(viper.GetInt("crag.top_k")),
		crag.WithHistory(crag.NewHistory(viper.GetInt("crag.history_limit"))),
		crag.WithRetryOptions(retryOpts...),
	)

	// Initialize MinioService
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		log.Error(err, "Failed to initialize minio service")
		return
	}

	resourceService, err := resourcectrl.NewResourceService(db)
	if err != nil {
		log.Error(err, "Failed to initialize resource service")
		return
	}

	// Initialize AMQP publisher for ingest jobs
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Error(err, "Failed to create AMQP publisher")
		return
	}
	defer amqpPublisher.Close()

	// The server only enqueues jobs; the worker command runs them.
	jobRepo := jobctrl.NewPostgresJobRepository(db)
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false), nil)

	checkers := []httpHdlr.HealthChecker{
		{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "weaviate", Check: wsdk.Live},
		{Name: "ollama", Check: func(ctx context.Context) error {
			_, err := oc.ListModels(ctx)
			return err
		}},
	}

	handler := httpHdlr.NewHandler(orchestrator, jobService, minioService, resourceService, checkers)

	// Setup gin router
	r := gin.Default()

	// Register routes
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Get underlying *sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}

func openDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))

	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// buildRetriever picks the local retrieval backend from configuration.
func buildRetriever(wsdk *weaviate.SDK, oc *ollama.Client) (crag.Retriever, error) {
	embeddingModel := viper.GetString("ollama.embedding_model")

	switch backend := viper.GetString("crag.retriever"); backend {
	case "weaviate":
		return retrieval.NewWeaviateRetriever(wsdk, oc, embeddingModel), nil
	case "hybrid":
		alpha := float32(viper.GetFloat64("crag.hybrid_alpha"))
		return retrieval.NewWeaviateRetriever(wsdk, oc, embeddingModel, retrieval.WithHybrid(alpha)), nil
	case "elastic":
		es, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{viper.GetString("elasticsearch.url")},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return retrieval.NewElasticRetriever(es, viper.GetString("elasticsearch.index")), nil
	default:
		return nil, fmt.Errorf("unknown retriever backend: %s", backend)
	}
}
