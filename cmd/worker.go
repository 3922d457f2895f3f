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
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"craggo/src/infrastructure/integrations/ollama"
	jobctrl "craggo/src/infrastructure/job"
	"craggo/src/log"
	"craggo/src/retrieval"
	"craggo/src/storage/minioctrl"
	"craggo/src/storage/postgres/chunkctrl"
	"craggo/src/storage/postgres/resourcectrl"
	"craggo/src/storage/weaviate"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingest worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	settingDefaultConfig()
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Initialize logger
	logger := watermill.NewStdLogger(false, false)

	// Initialize PostgreSQL connection
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&resourcectrl.Resource{}, &chunkctrl.Chunk{}, &jobctrl.Job{}); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(
		subscriberConfig,
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	// Initialize router
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	// Add middleware
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	// Initialize MinioService
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	// Initialize OllamaClient
	ollamaClient := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
		Timeout: 120 * time.Second,
	})

	// Initialize Weaviate SDK
	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.host"),
		Scheme: "http",
	})
	wsdk := weaviate.NewSDK(wc)

	// Initialize ResourceService
	resourceService, err := resourcectrl.NewResourceService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize resource service: %v", err)
	}

	// Initialize ChunkService
	chunkService, err := chunkctrl.NewChunkService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize chunk service: %v", err)
	}

	// The BM25 index is only maintained when a lexical backend is configured.
	var elasticRetriever *retrieval.ElasticRetriever
	if backend := viper.GetString("crag.retriever"); backend == "elastic" {
		es, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{viper.GetString("elasticsearch.url")},
		})
		if err != nil {
			return fmt.Errorf("failed to create elasticsearch client: %v", err)
		}
		elasticRetriever = retrieval.NewElasticRetriever(es, viper.GetString("elasticsearch.index"))
	}

	// Initialize IngestTask
	ingestTask := jobctrl.NewIngestTask(
		resourceService,
		chunkService,
		minioService,
		ollamaClient,
		wsdk,
		viper.GetString("ollama.embedding_model"),
		weaviate.DefaultChunkClass,
		elasticRetriever,
	)

	// Initialize job repository and service
	jobRepo := jobctrl.NewPostgresJobRepository(db)
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, logger, ingestTask)

	// Add handler for processing jobs
	router.AddNoPublisherHandler(
		"job_processor",
		"jobs",
		amqpSubscriber,
		func(msg *message.Message) error {
			return jobService.ProcessJobMessage(msg)
		},
	)

	// Run the router
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := router.Run(ctx); err != nil {
			log.Error(err, "Router stopped with error")
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info("Shutting down...")
	cancel()
	<-router.Running()
	log.Info("Router stopped")

	return nil
}
