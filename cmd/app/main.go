package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/skyvale/cloudpoints/pkg/api"
	"github.com/skyvale/cloudpoints/pkg/catalog"
	"github.com/skyvale/cloudpoints/pkg/config"
	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/handlers"
	"github.com/skyvale/cloudpoints/pkg/ledger"
	dynamoledger "github.com/skyvale/cloudpoints/pkg/ledger/dynamodb"
	"github.com/skyvale/cloudpoints/pkg/middleware"
	"github.com/skyvale/cloudpoints/pkg/otp"
	"github.com/skyvale/cloudpoints/pkg/panel"
	"github.com/skyvale/cloudpoints/pkg/reconcile"
	"github.com/skyvale/cloudpoints/pkg/shop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	discord := directory.NewDiscordClient(cfg.DiscordBotToken, 15*time.Second)

	// Ledger snapshot backend: the points channel by default, DynamoDB when
	// configured.
	var snapshots ledger.SnapshotStore
	switch cfg.SnapshotBackend {
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("unable to load SDK config, %v", err)
		}
		snapshots = dynamoledger.New(dynamodb.NewFromConfig(awsCfg), cfg.LedgerTableName)
	default:
		snapshots = ledger.NewChannelStore(discord, cfg.PointsChannelID)
	}

	store := ledger.NewCachedStore(snapshots,
		ledger.WithCacheTTL(cfg.CacheTTL),
		ledger.WithPersistInterval(cfg.PersistInterval),
	)
	defer store.Close()

	// OTP store: Redis when an address is configured so multiple instances
	// share credentials, in-memory otherwise.
	var credentials otp.CredentialStore = otp.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore, err := otp.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		credentials = redisStore
	}
	issuer := otp.NewIssuer(credentials)

	cat := catalog.Load(cfg.ItemsFile)
	if cat.Len() == 0 {
		slog.Warn("no usable items configured, falling back to the built-in catalog", "path", cfg.ItemsFile)
		cat = catalog.Default()
	}

	executor := panel.NewClient(cfg.PanelBaseURL, cfg.PanelAPIKey, 20*time.Second)

	// Ambiguous deliveries go to the reconciliation queue when one is
	// configured; otherwise they are only logged.
	var recorder reconcile.Recorder = &reconcile.NoopRecorder{}
	if cfg.ReconcileQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("unable to load SDK config, %v", err)
		}
		recorder = reconcile.NewSQSRecorder(sqs.NewFromConfig(awsCfg), cfg.ReconcileQueueURL)
	}

	shopService := shop.New(store, cat, issuer, discord, executor, recorder, cfg.ServerID)

	handler := handlers.NewApiHandler(shopService, cat, cfg.DiscordConfigured(), cfg.PanelConfigured())

	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(logger))
	router.Use(middleware.Cors)
	api.HandlerFromMux(handler, router)

	slog.Info("starting server", "port", cfg.HTTPPort, "snapshot_backend", cfg.SnapshotBackend)

	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
