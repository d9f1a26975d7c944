// Package main is the entry point for the Sala Trece room server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/infra/archive"
	"github.com/MRamiBalles/SalaTrece/server/internal/infra/storage"
	"github.com/MRamiBalles/SalaTrece/server/internal/network"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/config"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

func main() {
	configPath := flag.String("config", "", "YAML room config (overrides "+config.EnvConfigPath+")")
	addr := flag.String("addr", "", "listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	debug := flag.Bool("debug", false, "use the short debug room")
	seed := flag.Int64("seed", 0, "random seed, 0 for wall clock")
	flag.Parse()

	log.Println("[TRECE-SERVER] Initializing 'Sala Trece' authoritative room server...")
	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	cfg, err := loadConfig(*configPath, *debug)
	if err != nil {
		appLogger.Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string, debug bool) (config.Config, error) {
	if path == "" && !debug {
		return config.FromEnv()
	}
	base := config.Default()
	if debug {
		base = config.Debug()
	}
	if path == "" {
		return base, base.Validate()
	}
	return config.LoadOver(base, path)
}

func run(cfg config.Config, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger = appLogger.With(zap.String("room", cfg.RoomID))
	m := metrics.Get()

	appLogger.Info("initializing SQLite database", zap.String("path", cfg.DBPath))
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	progressRepo := storage.NewSQLiteProgressRepository(db)
	reconstructor := storage.NewReconstructor(eventRepo, progressRepo)

	progress, err := reconstructor.LoadOrRebuild(ctx, cfg.RoomID)
	if err != nil {
		return err
	}
	lastSeq, err := eventRepo.MaxSeq(ctx, cfg.RoomID)
	if err != nil {
		return err
	}

	archiveWriter := archive.NewWriter(cfg.ArchiveDir, cfg.RoomID, m)
	defer archiveWriter.Close()

	persister := events.NewAsyncPersister(events.Fanout{
		storage.NewEventSink(eventRepo, m),
		storage.NewProgressProjector(progressRepo, cfg.RoomID, progress),
		archiveWriter,
	}, cfg.Network.PersistBuffer, func(e events.GameEvent, err error) {
		appLogger.Error("event persistence failed", zap.String("event", string(e.Type)), zap.Int64("seq", e.Seq), zap.Error(err))
	})
	defer persister.Close()

	appLogger.Info("bootstrapping event log", zap.Int64("last_seq", lastSeq))
	eventLog := events.NewEventLog(cfg.RoomID, persister)
	eventLog.SetSeq(lastSeq)

	room, err := engine.NewEngine(cfg, engine.Deps{
		EventLog: eventLog,
		Logger:   appLogger,
		Metrics:  m,
		Source:   chance.New(cfg.Seed),
	})
	if err != nil {
		return err
	}
	var solved []engine.PuzzleID
	for _, p := range progress {
		if p.Solved {
			solved = append(solved, engine.PuzzleID(p.Puzzle))
		}
	}
	room.RestoreSolved(solved...)
	appLogger.Info("restored progress", zap.Int("solved", len(solved)))

	schema, err := network.CompileActionSchema()
	if err != nil {
		return err
	}
	hub := network.NewHub(room, schema, network.HubOptions{
		SendBuffer:           cfg.Network.ClientSendBuffer,
		MaxMessagesPerSecond: cfg.Network.MaxMessagesPerSecond,
	}, appLogger, m)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewActionBridge(room, schema, appLogger).RegisterRoutes(mux)
	network.NewReplayHandler(cfg.RoomID, eventLog, reconstructor, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", m.Handler())
	mux.HandleFunc("/metrics/prometheus", m.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog, network.DefaultPollInterval)
	roomDone := make(chan struct{})
	go func() {
		defer close(roomDone)
		room.Run(ctx)
	}()

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP API & WS server listening", zap.String("addr", cfg.ListenAddr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-roomDone
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown", zap.Error(err))
	}
	<-roomDone
	return nil
}
