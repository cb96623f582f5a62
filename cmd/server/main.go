package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agromarket/internal/config"
	"github.com/mamadbah2/agromarket/internal/events"
	"github.com/mamadbah2/agromarket/internal/repository"
	"github.com/mamadbah2/agromarket/internal/repository/memory"
	"github.com/mamadbah2/agromarket/internal/repository/mongodb"
	"github.com/mamadbah2/agromarket/internal/repository/sheets"
	"github.com/mamadbah2/agromarket/internal/repository/sqlstore"
	"github.com/mamadbah2/agromarket/internal/scheduler"
	"github.com/mamadbah2/agromarket/internal/server/handlers"
	"github.com/mamadbah2/agromarket/internal/server/router"
	"github.com/mamadbah2/agromarket/internal/service/matching"
	"github.com/mamadbah2/agromarket/internal/service/transport"
	catalogclient "github.com/mamadbah2/agromarket/pkg/clients/catalog"
	"github.com/mamadbah2/agromarket/pkg/logger"
)

// store is what every persistence driver provides.
type store interface {
	repository.FarmReader
	repository.ProductCatalog
	repository.DemandSource
	repository.SupplySource
	repository.TransportStore
}

// publisher is a transport.Publisher that must be flushed on shutdown.
type publisher interface {
	transport.Publisher
	Close() error
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	st, closeStore, err := openStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	farms, catalog, err := catalogSources(context.Background(), cfg, st, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init catalog", zap.String("source", cfg.Catalog.Source), zap.Error(err))
	}

	var pub publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaProducer(cfg.Kafka, baseLogger.Named("events.kafka"))
		baseLogger.Info("kafka event publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		baseLogger.Warn("kafka brokers missing, domain events disabled")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			baseLogger.Error("failed to close event publisher", zap.Error(err))
		}
	}()

	loc := cfg.Location()
	matchingSvc := matching.NewService(farms, catalog, st, st, loc, baseLogger.Named("svc.matching"))
	transportSvc := transport.NewService(st, pub, baseLogger.Named("svc.transport"))

	engine := router.New(
		handlers.NewRecommendationHandler(matchingSvc, baseLogger.Named("handlers.recommendations")),
		handlers.NewTransportHandler(transportSvc, baseLogger.Named("handlers.transport")),
		baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Scheduler.RouteSweepCron, loc, transportSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(context.Background()); err != nil {
				log.Error("failed to close mongodb connection", zap.Error(err))
			}
		}, nil
	case config.DriverSQLite:
		repo, err := sqlstore.Open(cfg.SQLite.Path, log.Named("repo.sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Error("failed to close sqlite database", zap.Error(err))
			}
		}, nil
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// catalogSources picks where farm profiles and products are read from. The
// sheets source only covers products; farms still come from the store.
func catalogSources(ctx context.Context, cfg *config.Config, st store, log *zap.Logger) (repository.FarmReader, repository.ProductCatalog, error) {
	switch cfg.Catalog.Source {
	case config.CatalogFromStore:
		return st, st, nil
	case config.CatalogFromHTTP:
		client := catalogclient.NewClient(cfg.Catalog)
		return client, client, nil
	case config.CatalogFromSheets:
		sheetRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, log.Named("repo.sheets"))
		if err != nil {
			return nil, nil, err
		}
		return st, sheets.NewProductCatalog(sheetRepo, cfg.Sheets.ProductsRange, log.Named("catalog.sheets")), nil
	}
	return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
}
