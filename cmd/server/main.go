package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	apihttp "github.com/2xkl/PeerFlow/internal/api/http"
	"github.com/2xkl/PeerFlow/internal/app"
	"github.com/2xkl/PeerFlow/internal/metrics"
	mongorepo "github.com/2xkl/PeerFlow/internal/repository/mongo"
	"github.com/2xkl/PeerFlow/internal/services/torrent/engine/anacrolix"
	"github.com/2xkl/PeerFlow/internal/storage/local"
	"github.com/2xkl/PeerFlow/internal/telemetry"
	"github.com/2xkl/PeerFlow/internal/usecase"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "peerflow", cfg.TraceSampleRate)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "peerflow"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("dataDir", cfg.DataDir),
		slog.Duration("metadataTimeout", cfg.MetadataTimeout),
		slog.Duration("progressInterval", cfg.ProgressInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo := mongorepo.NewRepository(mongoClient, cfg.MongoDatabase, cfg.MongoCollection)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	store, err := local.New(cfg.DataDir)
	if err != nil {
		logger.Error("blob store init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine, err := anacrolix.New(anacrolix.Config{
		DataDir:         cfg.DataDir,
		MetadataTimeout: cfg.MetadataTimeout,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("transfer engine init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Re-add previously active sessions in the background so the HTTP
	// server starts serving immediately.
	restoreUC := usecase.RestoreSessions{
		Engine:      engine,
		Repo:        repo,
		Log:         logger,
		Concurrency: cfg.RestoreConcurrency,
	}
	go func() {
		result, err := restoreUC.Execute(rootCtx)
		if err != nil {
			logger.Error("session restore pass failed", slog.String("error", err.Error()))
			return
		}
		metrics.SessionsRestoredTotal.WithLabelValues("restored").Add(float64(result.Restored))
		metrics.SessionsRestoredTotal.WithLabelValues("failed").Add(float64(result.Failed))
		logger.Info("session restore finished",
			slog.Int("restored", result.Restored),
			slog.Int("failed", result.Failed),
			slog.Int("skipped", result.Skipped),
		)
	}()

	addUC := usecase.AddSession{Engine: engine, Repo: repo, Now: time.Now, DataDir: cfg.DataDir}
	listUC := usecase.ListSessions{Engine: engine, Repo: repo, Log: logger}
	getUC := usecase.GetSession{Engine: engine, Repo: repo, Log: logger}
	removeUC := usecase.RemoveSession{Engine: engine, Repo: repo}
	pauseUC := usecase.PauseSession{Engine: engine, Repo: repo}
	resumeUC := usecase.ResumeSession{Engine: engine, Repo: repo}
	streamUC := usecase.ResolveStreamInfo{Repo: repo, Store: store}

	handler := apihttp.NewServer(addUC,
		apihttp.WithListSessions(listUC),
		apihttp.WithGetSession(getUC),
		apihttp.WithRemoveSession(removeUC),
		apihttp.WithPauseSession(pauseUC),
		apihttp.WithResumeSession(resumeUC),
		apihttp.WithResolveStreamInfo(streamUC),
		apihttp.WithEngine(engine),
		apihttp.WithBlobStore(store),
		apihttp.WithAllowedOrigins(cfg.CORSOrigins),
		apihttp.WithLogger(logger),
	)

	go broadcastProgress(rootCtx, engine, handler, cfg.ProgressInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := engine.Close(); err != nil {
		logger.Warn("engine close error", slog.String("error", err.Error()))
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// broadcastProgress pushes live snapshots to WebSocket listeners and
// refreshes the Prometheus gauges from the same engine read.
func broadcastProgress(ctx context.Context, engine *anacrolix.Engine, handler *apihttp.Server, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshots := engine.AllSnapshots(ctx)
			metrics.ActiveSessions.Set(float64(len(snapshots)))
			var dlTotal, ulTotal, peersTotal int64
			for _, snap := range snapshots {
				dlTotal += snap.DownloadRate
				ulTotal += snap.UploadRate
				peersTotal += int64(snap.Peers)
			}
			metrics.DownloadSpeedBytes.Set(float64(dlTotal))
			metrics.UploadSpeedBytes.Set(float64(ulTotal))
			metrics.PeersConnected.Set(float64(peersTotal))

			handler.BroadcastProgress(ctx)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
