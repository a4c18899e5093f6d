package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/routecodex/routecodex/internal/config"
	"github.com/routecodex/routecodex/internal/constants"
	"github.com/routecodex/routecodex/internal/executor"
	"github.com/routecodex/routecodex/internal/httpapi"
	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/logging"
	tracing "github.com/routecodex/routecodex/internal/monitoring/tracing"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/routingconfig"
	"github.com/routecodex/routecodex/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the legacy admin/ambient configuration file")
	routingPath := flag.String("routing", "routing.yaml", "Path to the provider/route configuration file")
	cooldownPath := flag.String("oauth-cooldown-file", "oauth_cooldown.json", "Path to the OAuth repair cooldown state file")
	addr := flag.String("addr", ":8080", "Listen address")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg := config.LoadWithFile(*configPath)
	if cfg != nil {
		if *debug {
			cfg.Security.Debug = true
			cfg.SyncFromDomains()
		}
		if err := logging.Setup(cfg); err != nil {
			log.WithError(err).Warn("failed to configure logging; continuing with defaults")
		}
		logging.InstallWebSocketLogging()
	}

	traceShutdown, err := tracing.Init(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	routingCfg, err := routingconfig.Load(*routingPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load routing configuration")
	}
	if routingCfg.DefaultRoute == "" {
		log.Fatal("routing configuration must set default_route")
	}

	registry := providerruntime.NewDefaultRegistry()
	routingconfig.RegisterProviders(registry, routingCfg)
	router := routingconfig.BuildRouter(routingCfg)
	lookup := executor.NewConfigLookup(routingCfg)
	oauthMgr := oauth.NewManager(*cooldownPath)
	translate := llmswitch.NewTranslate(llmswitch.Default())
	snapshots := snapshot.NewRingRecorder(512)

	exec := executor.New(executor.Deps{
		Router:    executor.NewVRouterAdapter(router),
		Registry:  registry,
		Translate: translate,
		OAuth:     oauthMgr,
		Snapshots: snapshots,
		Lookup:    lookup,
	})

	api := httpapi.New(exec, executor.NewConversationStore(), snapshots)
	if cfg != nil && (cfg.ManagementKey != "" || cfg.ManagementKeyHash != "") {
		api.WithManagementKey(config.ManagementKeyValidator(cfg))
	}

	if !(*debug) {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	root := engine.Group("/")
	api.RegisterRoutes(root)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{Addr: *addr, Handler: engine}

	go func() {
		log.Infof("RouteCodex listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	_ = server.Shutdown(shutdownCtx)
	registry.CleanupAll()

	time.Sleep(constants.ServerGracefulWait)
	log.Info("server stopped")
}
