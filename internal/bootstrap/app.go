// Package bootstrap wires configuration, storage, and services into a
// runnable application. Both the API server and the analysis worker
// build the same App and differ only in which parts they drive.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"skincare-backend/internal/analysis"
	"skincare-backend/internal/dispatch"
	"skincare-backend/internal/photos"
	"skincare-backend/internal/products"
	"skincare-backend/internal/queue"
	"skincare-backend/internal/recommendations"
	"skincare-backend/internal/shared/config"
	"skincare-backend/internal/shared/storage/db"
	"skincare-backend/internal/shared/storage/object"
	"skincare-backend/internal/shared/storage/object/local"
	"skincare-backend/internal/shared/storage/object/s3"
	"skincare-backend/internal/shared/telemetry"
	"skincare-backend/internal/trends"
)

// App holds the wired services and their shared resources.
type App struct {
	Config config.Config

	DB    *sql.DB // nil when running on in-memory repositories
	Store object.ObjectStore

	Photos          *photos.Service
	Products        products.Repo
	Recommendations recommendations.Repo
	Analysis        *analysis.Service
	Trends          *trends.Service

	pool *dispatch.Pool // set when dispatching in-process
}

// Build constructs the App for the API server. When ANALYSIS_QUEUE_URL
// is set, requests are dispatched to SQS for a separate worker
// deployment; otherwise an in-process pool runs them.
func Build(cfg config.Config) (*App, error) {
	app, err := buildCore(cfg, db.DefaultServerOptions())
	if err != nil {
		return nil, err
	}

	if cfg.QueueURL != "" {
		client, err := queue.NewSQSClient(context.Background(), cfg.AWSRegion, cfg.QueueURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("sqs client: %w", err)
		}
		app.Analysis.Dispatcher = &queue.Dispatcher{Client: client}
	} else {
		app.pool = dispatch.NewPool(app.Analysis, cfg.DispatchWorkers)
		app.Analysis.Dispatcher = app.pool
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"database":     app.DB != nil,
		"sqs_dispatch": cfg.QueueURL != "",
	})
	return app, nil
}

// BuildWorker constructs the App for the queue worker. The worker only
// consumes, so no dispatcher is attached.
func BuildWorker(cfg config.Config) (*App, error) {
	return buildCore(cfg, db.DefaultWorkerOptions())
}

func buildCore(cfg config.Config, dbOpts db.Options) (*App, error) {
	app := &App{Config: cfg}

	store, err := newObjectStore(cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	var (
		photoRepo   photos.Repo
		productRepo products.Repo
		recRepo     recommendations.Repo
		requestRepo analysis.Repo
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(dbOpts))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.DB = sqlDB
		photoRepo = &photos.PGRepo{DB: sqlDB}
		productRepo = &products.PGRepo{DB: sqlDB}
		recRepo = &recommendations.PGRepo{DB: sqlDB}
		requestRepo = &analysis.PGRepo{DB: sqlDB}
	} else {
		// In-memory repositories keep local development dependency-free.
		photoRepo = photos.NewMemoryRepo()
		productRepo = products.NewMemoryRepo()
		recRepo = recommendations.NewMemoryRepo()
		requestRepo = analysis.NewMemoryRepo()
	}

	app.Photos = &photos.Service{Store: store, Repo: photoRepo}
	app.Products = productRepo
	app.Recommendations = recRepo
	app.Analysis = &analysis.Service{
		Repo:   requestRepo,
		Photos: photoRepo,
		Engine: analysis.MockEngine{},
		Recommender: &recommendations.Generator{
			Repo:     recRepo,
			Products: productRepo,
		},
	}
	app.Trends = &trends.Service{Repo: requestRepo}
	return app, nil
}

func newObjectStore(cfg config.Config) (object.ObjectStore, error) {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		return store, nil
	}
	return local.New(cfg.LocalStoreDir), nil
}

// Shutdown drains the in-process dispatch pool, if any.
func (a *App) Shutdown(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	return a.pool.Shutdown(ctx)
}

// Close releases shared resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
