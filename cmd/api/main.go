package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/shambadirect/storefront/api/controllers"
	"github.com/shambadirect/storefront/api/routes"
	"github.com/shambadirect/storefront/internal/cart"
	"github.com/shambadirect/storefront/internal/checkout"
	"github.com/shambadirect/storefront/internal/delivery"
	"github.com/shambadirect/storefront/internal/inventory"
	"github.com/shambadirect/storefront/internal/orders"
	"github.com/shambadirect/storefront/pkg/config"
	"github.com/shambadirect/storefront/pkg/db"
	"github.com/shambadirect/storefront/pkg/logger"
	"github.com/shambadirect/storefront/pkg/maps"
	"github.com/shambadirect/storefront/pkg/metrics"
	"github.com/shambadirect/storefront/pkg/migrate"
	"github.com/shambadirect/storefront/pkg/pubsub"
	"github.com/shambadirect/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

type orderEventPublisher interface {
	Publish(ctx context.Context, event pubsub.Event) (string, error)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]controllers.Pinger{"db": dbClient}

	productRepo := inventory.NewRepository(dbClient.DB())
	snapshot, err := inventory.NewSnapshot(productRepo, logg)
	if err != nil {
		return err
	}
	if err := snapshot.Refresh(ctx); err != nil {
		logg.Warn(ctx, "initial product fetch failed, starting with an empty list")
	}

	storage, err := openCartStorage(ctx, cfg, logg, checks, &closers)
	if err != nil {
		return err
	}
	cartStore, err := cart.NewStore(ctx, storage, snapshot, logg, metrics.NewCartMetrics(registry))
	if err != nil {
		return err
	}

	estimator, suggester, err := buildEstimator(cfg, logg, registry)
	if err != nil {
		return err
	}

	var publisher orderEventPublisher
	if cfg.FeatureFlags.PublishOrder {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		closers = append(closers, psClient)
		checks["pubsub"] = psClient
		eventPublisher, err := pubsub.NewEventPublisher(psClient.OrdersPublisher())
		if err != nil {
			return err
		}
		publisher = eventPublisher
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo, dbClient, publisher, logg, metrics.NewOrderMetrics(registry))
	if err != nil {
		return err
	}

	flow, err := checkout.NewFlow(cartStore, snapshot, estimator, orderService, logg, cfg.Delivery.LookupTimeout)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, registry, checks, snapshot, productRepo, cartStore, flow, orderRepo, suggester),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_storage": cfg.Cart.Backend(),
	})
	logg.Info(serverCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openCartStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger, checks map[string]controllers.Pinger, closers *[]io.Closer) (cart.Storage, error) {
	switch cfg.Cart.Backend() {
	case config.CartStorageRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, client)
		checks["redis"] = client
		storage, err := cart.NewRedisStorage(client)
		if err != nil {
			return nil, err
		}
		return storage, nil
	case config.CartStorageMemory:
		logg.Warn(ctx, "cart storage is in memory, the cart will not survive restarts")
		return cart.NewMemoryStorage(), nil
	default:
		storage, err := cart.OpenBoltStorage(cfg.Cart.BoltPath)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, storage)
		checks["cart_storage"] = storage
		return storage, nil
	}
}

// buildEstimator prices delivery through the maps API when a key is set and
// falls back to the placeholder distance otherwise.
func buildEstimator(cfg *config.Config, logg *logger.Logger, registry prometheus.Registerer) (delivery.Estimator, controllers.AddressSuggester, error) {
	fee, err := delivery.NewLinearFee(cfg.Delivery.BaseFee, cfg.Delivery.PerKmFee)
	if err != nil {
		return nil, nil, err
	}

	if cfg.GoogleMaps.APIKey == "" {
		logg.Warn(context.Background(), "no maps api key configured, using placeholder delivery distances")
		return delivery.PlaceholderEstimator{Fee: fee}, nil, nil
	}

	client, err := maps.NewClient(cfg.GoogleMaps.APIKey)
	if err != nil {
		return nil, nil, err
	}
	service, err := delivery.NewDistanceService(delivery.Settings{
		Origin:           cfg.Delivery.Origin,
		RegionCode:       cfg.Delivery.RegionCode,
		BreakerTimeout:   cfg.Delivery.BreakerTimeout,
		BreakerThreshold: cfg.Delivery.BreakerThreshold,
	}, client, fee, logg, metrics.NewDeliveryMetrics(registry))
	if err != nil {
		return nil, nil, err
	}
	return service, service, nil
}
