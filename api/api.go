package api

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/project"
)

// Pipeline is the stage surface the API drives. *pipeline.Pipeline
// implements it.
type Pipeline interface {
	Brainstorm(ctx context.Context, owner project.Owner, in pipeline.BrainstormInput) (*pipeline.BrainstormOutput, error)
	Synthesize(ctx context.Context, owner project.Owner, projectID string, opts pipeline.StageOptions) (*pipeline.SynthesizeOutput, error)
	Bootstrap(ctx context.Context, owner project.Owner, projectID string, opts pipeline.StageOptions) (*pipeline.BootstrapOutput, error)
	Research(ctx context.Context, owner project.Owner, projectID string, in pipeline.ResearchInput) (*pipeline.ResearchOutput, error)
	Download(ctx context.Context, projectID string, w io.Writer) error
	Project(ctx context.Context, projectID string) (*pipeline.ProjectView, error)
	Artifacts(ctx context.Context, projectID string) ([]project.Artifact, error)
}

// Memory is the memory surface the API drives. *memory.Engine implements
// it.
type Memory interface {
	Remember(ctx context.Context, in memory.NewItem) (string, error)
	Recall(ctx context.Context, q memory.Query) ([]memory.Recalled, error)
	Forget(ctx context.Context, memoryID string) error
	Reflect(ctx context.Context, owner project.Owner, projectID string) (*memory.ReflectResult, error)
	Reconcile(ctx context.Context, batchSize int) (*memory.ReconcileResult, error)
}

// Server is the API server for the factory pipeline and memory engine.
type Server struct {
	config   Config
	pipeline Pipeline
	memory   Memory
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server. The pipeline and memory engine are
// injected so the CLI can share them with other components.
func NewServer(config Config, pipe Pipeline, mem Memory, log *slog.Logger) (*Server, error) {
	if pipe == nil {
		return nil, errors.New("pipeline is required")
	}
	if mem == nil {
		return nil, errors.New("memory engine is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.DefaultOwner == "" {
		config.DefaultOwner = "default"
	}

	s := &Server{
		config:   config,
		pipeline: pipe,
		memory:   mem,
		logger:   log,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/", s.handleRoot)
	app.Get("/ping", s.handlePing)

	app.Post("/brainstorm", s.handleBrainstorm)
	app.Post("/synthesize", s.handleSynthesize)
	app.Post("/bootstrap", s.handleBootstrap)
	app.Post("/research", s.handleResearch)
	app.Post("/download", s.handleDownload)

	app.Get("/projects/:id", s.handleGetProject)
	app.Get("/projects/:id/artifacts", s.handleListArtifacts)

	app.Post("/memory/remember", s.handleRemember)
	app.Post("/memory/recall", s.handleRecall)
	app.Post("/memory/forget", s.handleForget)
	app.Post("/memory/reflect", s.handleReflect)
	app.Post("/memory/reconcile", s.handleReconcile)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	s.app = app
	return s, nil
}

// App exposes the fiber app, e.g. for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
