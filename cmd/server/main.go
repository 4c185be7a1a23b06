package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noteforge-server/internal/ai"
	"noteforge-server/internal/config"
	"noteforge-server/internal/handler"
	"noteforge-server/internal/repository"
	"noteforge-server/internal/repository/memory"
	"noteforge-server/internal/service"
	"noteforge-server/internal/storage"
	"noteforge-server/internal/websocket"
	"noteforge-server/pkg/logger"

	"github.com/rs/zerolog/log"
)

type repositories struct {
	notes       repository.NoteRepository
	versions    repository.NoteVersionRepository
	tags        repository.TagRepository
	attachments repository.AttachmentRepository
	close       func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	repos, err := openRepositories(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open storage")
	}
	defer repos.close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	})
	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(wsManager))
	go wsManager.Run(ctx)

	files := storage.NewLocal(cfg.Storage.UploadDir, cfg.Storage.URLPrefix, cfg.Storage.MaxFileSize)
	generator := ai.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)

	noteService := service.NewNoteService(repos.notes, repos.versions, repos.tags, wsManager)
	versionService := service.NewVersionService(noteService, repos.versions, wsManager)
	tagService := service.NewTagService(noteService, repos.tags, wsManager)
	attachmentService := service.NewAttachmentService(noteService, repos.attachments, files, wsManager)
	generateService := service.NewGenerateService(generator, cfg.OpenAI.MaxTokens)
	noteService.SetAttachmentPurger(attachmentService)

	r := handler.NewRouter(handler.Handlers{
		Note:       handler.NewNoteHandler(noteService),
		Version:    handler.NewVersionHandler(versionService),
		Tag:        handler.NewTagHandler(tagService),
		Attachment: handler.NewAttachmentHandler(attachmentService, cfg.Storage.MaxUploadSize),
		Generate:   handler.NewGenerateHandler(generateService),
		Upload:     handler.NewUploadHandler(files),
		WebSocket: handler.NewWebSocketHandler(
			wsManager,
			cfg.JWT.Secret,
			cfg.WebSocket.ReadBufferSize,
			cfg.WebSocket.WriteBufferSize,
		),
	}, cfg.JWT.Secret, cfg.CORS, cfg.Storage.URLPrefix)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("env", cfg.Server.Env).
			Str("driver", cfg.Database.Driver).
			Msg("starting noteforge server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()

	log.Info().Msg("server stopped gracefully")
}

func openRepositories(cfg config.DatabaseConfig) (*repositories, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return &repositories{
			notes:       memory.NewNoteRepository(),
			versions:    memory.NewNoteVersionRepository(),
			tags:        memory.NewTagRepository(),
			attachments: memory.NewAttachmentRepository(),
			close:       func() error { return nil },
		}, nil
	}

	gw, err := repository.NewGateway(cfg.CouchURL(), cfg.Name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := gw.EnsureSchema(ctx); err != nil {
		gw.Close()
		return nil, err
	}

	db := gw.DB()
	log.Info().Str("host", cfg.Host).Str("port", cfg.Port).Str("db", cfg.Name).Msg("connected to CouchDB")

	return &repositories{
		notes:       repository.NewNoteRepository(db),
		versions:    repository.NewNoteVersionRepository(db),
		tags:        repository.NewTagRepository(db),
		attachments: repository.NewAttachmentRepository(db),
		close:       gw.Close,
	}, nil
}
