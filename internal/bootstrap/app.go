package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"cvforge-backend/internal/llm"
	openai "cvforge-backend/internal/llm/openai"
	"cvforge-backend/internal/materials"
	"cvforge-backend/internal/queue"
	"cvforge-backend/internal/resumes"
	"cvforge-backend/internal/shared/config"
	"cvforge-backend/internal/shared/server"
	"cvforge-backend/internal/shared/storage/db"
	"cvforge-backend/internal/shared/storage/object"
	localstore "cvforge-backend/internal/shared/storage/object/local"
	s3store "cvforge-backend/internal/shared/storage/object/s3"
	"cvforge-backend/internal/structure"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	ResumesRepo      resumes.Repo
	ResumesService   *resumes.Service
	MaterialsService *materials.Service
	ResumesHandler   *resumes.Handler
	MaterialsHandler *materials.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultServerOptions(), true)
}

// BuildWorker prepares dependencies for the queue consumer. No router is
// assembled and the pool is sized for worker concurrency.
func BuildWorker(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultWorkerOptions(), false)
}

func build(cfg config.Config, dbOpts db.Options, withRouter bool) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	if withRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:           app.Config,
			ResumesHandler:   app.ResumesHandler,
			MaterialsHandler: app.MaterialsHandler,
		})
	}

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildServices(app *App) error {
	var repo resumes.Repo
	if app.DB != nil {
		repo = &resumes.PGRepo{DB: app.DB}
	} else {
		repo = resumes.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	completer := materials.Completer(promptPlaceholder{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		llmClient = openaiClient

		promptClient, err := openai.NewPromptClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		completer = promptClient
	}

	structurer := structure.NewService(llmClient)
	resumeSvc := resumes.NewService(repo, app.Store, structurer, app.Config.StructuringTimeout)
	resumeSvc.Queue = app.Queue
	materialSvc := &materials.Service{
		Resumes:   resumeSvc,
		Completer: completer,
		Store:     app.Store,
	}

	app.ResumesRepo = repo
	app.ResumesService = resumeSvc
	app.MaterialsService = materialSvc
	app.ResumesHandler = &resumes.Handler{Service: resumeSvc}
	app.MaterialsHandler = &materials.Handler{Service: materialSvc}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

type promptPlaceholder struct{}

func (promptPlaceholder) Complete(ctx context.Context, system, prompt string) (string, error) {
	_ = ctx
	_ = system
	_ = prompt
	return "", errors.New("llm prompt client not configured")
}
