package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"agile-live/internal/api"
	"agile-live/internal/config"
	"agile-live/internal/data"
	"agile-live/internal/logging"
	"agile-live/internal/metrics"
	"agile-live/internal/pipeline"
	"agile-live/internal/publish"
	"agile-live/internal/render"
	"agile-live/internal/scheduler"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (default: search ./configs and .)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	restore, err := logging.Init(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer restore()

	if err := run(cfg); err != nil {
		zap.L().Fatal("[API] Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tariff := cfg.Tariff.ToModel()
	if dump, err := cfg.Dump(); err == nil {
		zap.L().Debug("[API] Effective config\n" + string(dump))
	}
	zap.L().Info("[API] Starting",
		zap.String("tariff", tariff.Code()),
		zap.String("timezone", cfg.Analysis.Timezone),
		zap.String("env", cfg.Server.Env))

	productsPath := data.GetDefaultProductsPath()
	checkProduct(productsPath, tariff.ProductCode)

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	engine, err := pipeline.New(opts)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := data.NewOctopusClient(cfg.Source.BaseURL, cfg.Source.Timeout)
	if cfg.Source.PageSize > 0 {
		client.PageSize = cfg.Source.PageSize
	}
	if cfg.Source.MaxPages > 0 {
		client.MaxPages = cfg.Source.MaxPages
	}
	closeCache := attachCache(ctx, cfg, client)
	defer closeCache()

	hub := publish.NewHub(nil)
	hub.OnCount = m.SetSubscribers
	defer hub.Close()

	var source data.Source = client
	if cfg.Source.File != "" {
		zap.L().Info("[API] Serving prices from file", zap.String("file", cfg.Source.File))
		source = data.FileSource{Path: cfg.Source.File}
	}

	refresher := &scheduler.Refresher{
		Source:     source,
		Tariff:     tariff,
		Engine:     engine,
		Metrics:    m,
		Publishers: []scheduler.Publisher{hub},
		Timeout:    cfg.Source.Timeout,
	}

	if cfg.MQTT.Broker != "" {
		mq, err := publish.NewMQTTPublisher(publish.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain,
		})
		if err != nil {
			// The dashboard still works without the broker.
			zap.L().Warn("[MQTT] Broker unavailable, publishing disabled", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		} else {
			refresher.Publishers = append(refresher.Publishers, mq)
			defer mq.Close()
		}
	}

	sched := scheduler.NewScheduler(ctx, refresher, opts.Location)
	if err := sched.Register(cfg.Schedule.Spec); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule.Spec, err)
	}
	sched.RunNow()
	sched.Start()
	defer sched.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Refresher:    refresher,
		Tariff:       tariff,
		Renderer:     render.New(render.DefaultStyle()),
		Metrics:      m,
		Hub:          hub,
		ProductsPath: productsPath,
		CORSOrigins:  cfg.Server.CORSOrigins,
		StaticDir:    cfg.Server.StaticDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("[API] Listening", zap.String("addr", srv.Addr))
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

	zap.L().Info("[API] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// attachCache puts a response cache in front of the client: Redis when
// configured and reachable, otherwise in-process memory.
func attachCache(ctx context.Context, cfg *config.Config, client *data.OctopusClient) func() {
	if !cfg.Cache.Enabled {
		return func() {}
	}
	if cfg.Cache.RedisAddr != "" {
		rc, err := data.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err == nil {
			zap.L().Info("[Cache] Using Redis", zap.String("addr", cfg.Cache.RedisAddr))
			client.Cache = rc
			return func() { _ = rc.Close() }
		}
		zap.L().Warn("[Cache] Redis unavailable, falling back to memory", zap.Error(err))
	}
	mc := data.NewMemoryCache(cfg.Cache.TTL, time.Minute)
	client.Cache = mc
	return mc.Close
}

// checkProduct warns when the configured product is missing from, or retired
// in, the local catalogue. A missing catalogue is fine.
func checkProduct(path, code string) {
	list, err := data.LoadProducts(path)
	if err != nil {
		zap.L().Debug("[API] No product catalogue", zap.String("path", path), zap.Error(err))
		return
	}
	p, ok := list.Find(code)
	switch {
	case !ok:
		zap.L().Warn("[API] Product not in catalogue, run update-products", zap.String("product", code))
	case !p.AvailableAt(time.Now()):
		zap.L().Warn("[API] Product is no longer available", zap.String("product", code))
	}
}
