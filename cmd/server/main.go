package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"multiview/internal/keybind"
	"multiview/internal/multiview"
	"multiview/internal/platform/config"
	"multiview/internal/platform/logger"
	"multiview/internal/platform/metrics"
	"multiview/internal/platform/retry"
	"multiview/internal/player"
	"multiview/internal/settings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	storeCfg := settings.Config{
		Backend:     config.GetEnv("STORE_BACKEND", "memory"),
		Path:        config.GetEnv("STORE_PATH", "multiview-settings.json"),
		DatabaseURL: config.GetEnv("DATABASE_URL", ""),
	}
	keysFile := config.GetEnv("KEYBINDINGS_FILE", "")
	sampleInterval := config.GetEnvDuration("SAMPLE_INTERVAL", multiview.DefaultSampleInterval)
	lockAspect := config.GetEnvBool("PIP_LOCK_ASPECT", false)
	settle := retry.Policy{
		Interval:    multiview.SettlePolicy.Interval,
		MaxAttempts: config.GetEnvInt("SETTLE_FRAMES", multiview.SettlePolicy.MaxAttempts),
	}
	origins := splitList(config.GetEnv("WS_ALLOWED_ORIGINS", ""))

	log := logger.New(logLevel, logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := settings.Open(ctx, storeCfg)
	if err != nil {
		log.Error("settings store unavailable", "backend", storeCfg.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var presets map[keybind.Action][]string
	if keysFile != "" {
		presets, err = keybind.LoadTOML(keysFile)
		if err != nil {
			log.Warn("keybinding presets ignored", "path", keysFile, "error", err)
		}
	}

	met := metrics.New()
	hub := multiview.NewHub(log, met)
	hub.AllowOrigins(origins...)
	ctrl := multiview.New(multiview.Config{
		Log:      log,
		Metrics:  met,
		Settings: settings.NewAdapter(store, log),
		Factory:  player.RemoteFactory(hub),
		Out:      hub,
		Presets:  presets,

		SettlePolicy: settle,
		LockAspect:   lockAspect,
	})
	defer ctrl.Close()
	ctrl.Restore(ctx)

	h := multiview.NewHandler(ctrl, log, met)
	hub.OnMessage(h.HandleMessage)
	hub.OnJoin(h.Greeting)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", met.Handler(nil).ServeHTTP)
	r.Get("/ws", hub.ServeWS)
	h.Routes(r)

	srv := &http.Server{Addr: ":" + port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return ctrl.RunSampler(gctx, sampleInterval) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining connections")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	log.Info("server starting",
		"port", port,
		"store_backend", storeCfg.Backend,
		"sample_interval", sampleInterval.String(),
		"settle_frames", settle.MaxAttempts,
		"log_level", logLevel,
	)

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
