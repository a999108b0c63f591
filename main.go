package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config" // alias to avoid clashing with internal/config
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"plate_reader/internal/api"
	"plate_reader/internal/api/handler"
	"plate_reader/internal/api/middleware"
	"plate_reader/internal/camera"
	"plate_reader/internal/capture"
	"plate_reader/internal/config"
	"plate_reader/internal/domain"
	"plate_reader/internal/iot"
	"plate_reader/internal/publisher"
	"plate_reader/internal/repository/postgresql"
	"plate_reader/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected.")

	detectionRepo := postgresql.NewPgDetectionRepository(db)
	settingsRepo := postgresql.NewPgSettingsRepository(db)

	// 3. AWS SDK Config
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Cannot load AWS SDK config: %v", err)
	}
	log.Println("AWS SDK config loaded for region:", cfg.AWSRegion)

	// 4. Detection backend
	var detector capture.DetectionClient
	switch cfg.DetectionBackend {
	case config.BackendRekognition:
		rekClient, err := service.NewRekognitionDetectionClient(rekognition.NewFromConfig(awsSDKCfg), cfg.PlatePattern)
		if err != nil {
			log.Fatalf("Cannot create Rekognition detection client: %v", err)
		}
		detector = rekClient
		log.Println("Detection backend: AWS Rekognition")
	default:
		detector = service.NewHTTPDetectionClient(cfg.DetectionAPIURL, cfg.DetectionNetworkTimeout)
		log.Println("Detection backend: HTTP API at", cfg.DetectionAPIURL)
	}

	// 5. Result sinks
	var sinks publisher.Multi
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := publisher.NewKafkaProducer(publisher.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			ClientID:     cfg.KafkaClientID,
			MaxRetries:   cfg.KafkaMaxRetries,
			RetryBackoff: cfg.KafkaRetryBackoff,
		})
		if err != nil {
			log.Fatalf("Cannot create Kafka producer: %v", err)
		}
		sinks = append(sinks, kafkaProducer)
	} else {
		log.Println("WARNING: KAFKA_BROKERS not set. Plates will not be published to Kafka.")
	}
	if cfg.IoTEndpoint != "" {
		iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
			endpointWithSchema := cfg.IoTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		})
		sinks = append(sinks, publisher.NewIoTPublisher(iotDataPlaneClient, cfg.IoTResultTopic))
	} else {
		log.Println("WARNING: IOT_ENDPOINT not set. Plates will not be published to AWS IoT.")
	}
	var platePublisher publisher.PlatePublisher
	if len(sinks) > 0 {
		platePublisher = sinks
	}

	dispatcher := service.NewResultDispatcher(detectionRepo, platePublisher, 64)
	dispatcher.Start()

	// 6. Capture controller
	webSocketManager := handler.NewWebSocketManager()
	hubCtx, cancelHub := context.WithCancel(context.Background())
	go webSocketManager.Run(hubCtx)
	log.Println("WebSocket Manager started.")

	opts := capture.DefaultOptions()
	opts.NetworkTimeout = cfg.DetectionNetworkTimeout
	opts.WatchdogTimeout = cfg.DetectionWatchdogTimeout
	opts.OverlayClearAfter = cfg.OverlayClearAfter
	opts.HistoryCapacity = cfg.HistoryCapacity
	opts.EncodeMaxWidth = cfg.EncodeMaxWidth
	opts.EncodeQuality = cfg.EncodeQuality
	opts.Notifier = capture.MultiNotifier{webSocketManager, dispatcher}
	controller := capture.NewController(camera.NewSource(), detector, domain.DefaultCaptureSettings(), opts)

	// 7. Services
	settingsService := service.NewSettingsService(settingsRepo, controller)
	if err := settingsService.Load(context.Background()); err != nil {
		log.Printf("WARNING: cannot restore saved settings, using defaults: %v", err)
	}
	detectionService := service.NewDetectionService(detectionRepo)
	authService := service.NewAuthService([]domain.Operator{{
		Username:     cfg.OperatorUsername,
		PasswordHash: cfg.OperatorPasswordHash,
		Role:         domain.RoleAdmin,
	}}, cfg.JWTSecret, cfg.JWTExpirationHours)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 8. SQS trigger consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSTriggerQueueURL == "" {
		log.Println("WARNING: SQS_TRIGGER_QUEUE_URL not set. Remote capture triggers are disabled.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqs.NewFromConfig(awsSDKCfg), cfg.SQSTriggerQueueURL, controller)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS Consumer stopped.")
		}()
	}

	// purge persisted detections past retention
	wg.Add(1)
	go func() {
		defer wg.Done()
		startRetentionJob(consumerCtx, detectionService, time.Duration(cfg.RetentionDays)*24*time.Hour)
	}()

	// 9. Setup HTTP Router
	router := api.SetupRouter(authService, authMiddleware, controller, settingsService, detectionService, webSocketManager)

	// 10. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}

	controller.Stop()
	cancelHub()

	log.Println("Waiting for background workers to stop (max 5 seconds)...")
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		log.Println("Background workers stopped.")
	case <-time.After(5 * time.Second):
		log.Println("Background workers did not stop in time.")
	}

	dispatcher.Close()
	if platePublisher != nil {
		platePublisher.Close()
	}

	log.Println("Server stopped.")
}

func startRetentionJob(ctx context.Context, detections *service.DetectionService, retention time.Duration) {
	if retention <= 0 {
		log.Println("Detection retention disabled.")
		return
	}
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if _, err := detections.PurgeOlderThan(purgeCtx, retention); err != nil {
			log.Printf("Error purging old detections: %v", err)
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
