package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/execdash/execdash/internal/config"
	"github.com/execdash/execdash/router"
	"github.com/execdash/execdash/services"
	"github.com/execdash/execdash/storage"
	"github.com/execdash/execdash/store"
	"github.com/execdash/execdash/workers"
)

var inMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the HTTP API and the guarded dashboard areas.

Environment Variables:
  DATABASE_URL         - PostgreSQL connection string (not needed with --memory)
  REDIS_URL            - Redis for workspace creation locks (optional)
  SUPABASE_URL         - Supabase project URL, used for JWKS
  SUPABASE_JWT_SECRET  - HS256 secret (legacy projects)
  S3_ENDPOINT          - Supabase Storage S3 endpoint`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, config.App)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&inMemory, "memory", false, "Keep rows and objects in memory (local development)")
}

func runServe(ctx context.Context, cfg config.Config) error {
	log := logrus.StandardLogger()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		st      *store.Store
		objects storage.ObjectStore
	)
	if inMemory {
		log.Warn("Running with in-memory store; data is lost on exit")
		st = store.NewMemoryStore().Store()
		objects = storage.NewMemoryStore()
	} else {
		pg, err := openDatabase(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		log.Info("Connected to database successfully")
		st = store.NewPostgresStore(pg)

		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			return err
		}
		objects = s3Store
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unavailable, workspace creation runs without locks")
			redisClient = nil
		}
	}

	auditWorker := workers.NewAuditWorker(st.Audit, cfg.AuditBufferSize, log)
	auditWorker.Start()
	defer auditWorker.Close()

	engine := router.NewGinRouter(router.Dependencies{
		Store:     st,
		Objects:   objects,
		Redis:     redisClient,
		Auth:      services.NewSupabaseAuthService(cfg.SupabaseURL, cfg.SupabaseJWTSecret),
		AuditSink: auditWorker,
		Config:    cfg,
		Log:       log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting execdash on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Stopped")
	return nil
}
