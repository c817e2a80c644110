package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}
	repos := repo.NewGorm(gdb)

	var prod events.Publisher = events.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		prod = events.NewKafkaProducer(brokers, cfg.KafkaTopic)
		logger.Info("kafka producer ready", "brokers", brokers, "topic", cfg.KafkaTopic)
	}

	var index search.Index
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch unavailable, searching the database", "error", err)
		} else {
			index = &search.ElasticIndex{ES: es, Index: cfg.ESIndex}
		}
	}

	authSvc := &service.AuthService{
		Users:    repos.Users,
		Sessions: repos.Sessions,
		Tokens:   &tokens.Issuer{Secret: []byte(cfg.SessionSecret), TTL: cfg.SessionTTL},
		Events:   prod,
	}
	if err := authSvc.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if n, err := authSvc.PurgeSessions(ctx); err != nil {
		logger.Warn("session purge failed", "error", err)
	} else if n > 0 {
		logger.Info("ended sessions purged", "count", n)
	}

	renderer, err := httpserver.NewRenderer(web.Templates)
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	var assets fs.FS
	if cfg.StaticDir != "" {
		assets = os.DirFS(cfg.StaticDir)
	} else if assets, err = fs.Sub(web.Static, "static"); err != nil {
		log.Fatalf("static assets: %v", err)
	}

	m := metrics.New()
	fl := flash.New(cfg.FlashSecret, cfg.CookieSecure)
	view := &httpserver.View{Flash: fl}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(httpserver.Common(logger, m, cfg.CookieSecure)...)

	httpserver.Register(e, &httpserver.Deps{
		Renderer: renderer,
		View:     view,
		Guard:    &authmw.Guard{Resolver: authSvc, Flash: fl, CookieSecure: cfg.CookieSecure},
		Metrics:  m,
		Store: &httpserver.StoreHTTP{
			Catalog:  &service.CatalogService{Products: repos.Products, Index: index},
			Checkout: &service.CheckoutService{Products: repos.Products, Events: prod},
			View:     view,
			Metrics:  m,
		},
		Auth: &httpserver.AuthHTTP{Svc: authSvc, View: view, Metrics: m, CookieSecure: cfg.CookieSecure},
		Admin: &httpserver.AdminHTTP{
			Svc: &service.AdminService{
				Users:    repos.Users,
				Products: repos.Products,
				Sessions: repos.Sessions,
				Images:   &storage.Images{Dir: cfg.UploadDir, URLPrefix: cfg.UploadURLPrefix},
				Index:    index,
				Events:   prod,
			},
			View: view,
		},
		Assets:          assets,
		UploadDir:       cfg.UploadDir,
		UploadURLPrefix: cfg.UploadURLPrefix,
		Ready:           func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	go func() {
		logger.Info("http server starting", "addr", cfg.ServerAddr, "env", cfg.Env)
		if err := e.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
