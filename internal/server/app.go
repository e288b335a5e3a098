// Package server wires configuration, storage, the model manager and the
// HTTP and gRPC front ends into one process and runs it until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/archive"
	"github.com/dmitrijs2005/platerecon/internal/server/auth"
	"github.com/dmitrijs2005/platerecon/internal/server/config"
	"github.com/dmitrijs2005/platerecon/internal/server/httpapi"
	"github.com/dmitrijs2005/platerecon/internal/server/inference"
	"github.com/dmitrijs2005/platerecon/internal/server/model"
	"github.com/dmitrijs2005/platerecon/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/platerecon/internal/server/services"

	gs "github.com/dmitrijs2005/platerecon/internal/server/grpc"
)

// Seams for tests.
var (
	openDB         = repomanager.OpenPostgres
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newArchive     = func(ctx context.Context, c *config.Config) (archive.Archive, error) {
		return archive.NewS3Archive(ctx, c)
	}
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	loader        *model.ONNXLoader
	models        *model.Manager
	userService   *services.UserService
	reconstructor *services.ReconstructionService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, true)

	if c.SecretKey == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		c.SecretKey = key
		logger.Warn(ctx, "SECRET_KEY is not set, using a random key; tokens will not survive a restart")
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	tokens := auth.NewTokenService([]byte(c.SecretKey))
	us, err := services.NewUserService(db, rm, tokens, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var arch archive.Archive = archive.Nop{}
	if c.ArchiveEnabled() {
		arch, err = newArchive(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		logger.Info(ctx, "archiving reconstructions", "bucket", c.S3Bucket)
	}

	loader := &model.ONNXLoader{LibraryPath: c.ONNXRuntimeLib}
	models := model.NewManager(model.Config{
		Dir:       c.ModelDir,
		Pattern:   c.ModelPattern,
		Serialize: c.SerializeInference,
	}, loader, logger)

	pipeline := inference.NewPipeline(models, c.InputHeight, c.InputWidth).WithMaxPixels(c.MaxImagePixels)
	rs := services.NewReconstructionService(pipeline, arch, logger)

	return &App{
		config:        c,
		logger:        logger,
		db:            db,
		loader:        loader,
		models:        models,
		userService:   us,
		reconstructor: rs,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// loadModel runs in the background so the servers accept connections (and
// report not-ready) while the artifact is deserialized.
func (app *App) loadModel(ctx context.Context) {
	if err := app.models.Load(ctx); err != nil {
		app.logger.Error(ctx, "model is not available, reconstruction requests will get 503", "error", err)
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.userService, app.reconstructor, app.models, app.config.MaxUploadBytes, app.logger)
	router := httpapi.NewRouter(h, httpapi.RateLimit{
		Requests: app.config.RateLimitRequests,
		Window:   app.config.RateLimitWindow,
	})

	s := httpapi.NewHTTPServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.models.Ready())
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or one of
// the servers fails, then releases the model and the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	go app.loadModel(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if err := app.models.Close(); err != nil {
		app.logger.Error(ctx, "model close failed", "error", err)
	}
	if err := app.loader.Close(); err != nil {
		app.logger.Error(ctx, "onnxruntime shutdown failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
