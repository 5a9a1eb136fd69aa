// README: Entry point; loads config, wires stores, collaborators and services, runs the HTTP and Telegram transports.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flytaxi/internal/config"
	httptransport "flytaxi/internal/http"
	"flytaxi/internal/infra"
	"flytaxi/internal/logger"
	"flytaxi/internal/maps"
	"flytaxi/internal/modules/availability"
	"flytaxi/internal/modules/order"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/modules/profile"
	"flytaxi/internal/modules/rating"
	"flytaxi/internal/telegram"
	"flytaxi/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("flytaxi stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, lg *zap.Logger) error {
	var (
		profiles     order.ProfileStore = profile.NewMemoryStore()
		ratingStore  rating.Store       = rating.NewMemoryStore()
		sessions     order.SessionStore = order.NewMemorySessionStore()
		tariffSource *pricing.Store
	)

	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := infra.Migrate(ctx, pool); err != nil {
			return err
		}
		profiles = profile.NewPGStore(pool)
		ratingStore = rating.NewPGStore(pool)
		tariffSource = pricing.NewStore(pool)
		lg.Info("using postgres for profiles, ratings and tariffs")
	}

	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sessions = order.NewRedisSessionStore(client, cfg.Redis.SessionTTL)
		lg.Info("using redis for rider sessions", zap.Duration("ttl", cfg.Redis.SessionTTL))
	}

	tariffs, err := pricing.LoadOrDefault(ctx, tariffSource)
	if err != nil {
		return err
	}
	pricingSvc, err := pricing.NewService(tariffs)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Order.Timezone)
	if err != nil {
		return fmt.Errorf("FLYTAXI_TIMEZONE: %w", err)
	}
	policy := availability.DefaultPolicy()
	if err := policy.Validate(); err != nil {
		return err
	}
	clock := availability.NewClock(policy, loc, nil)

	deps := order.Deps{
		Sessions:     sessions,
		Profiles:     profiles,
		Pricing:      pricingSvc,
		Availability: clock,
		Log:          lg.Named("order"),
	}
	if cfg.Maps.APIKey != "" {
		client, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		deps.Geocoder = maps.NewGeocodeService(client, "ua")
		deps.Router = maps.NewRouteService(client)
		deps.Maps = maps.NewStaticMapService(client)
	} else {
		lg.Warn("FLYTAXI_MAPS_API_KEY not set, using offline coordinates-only maps")
		deps.Geocoder = maps.OfflineGeocoder{}
		deps.Router = maps.OfflineRouter{}
	}

	ratingSvc := rating.NewService(ratingStore, lg.Named("rating"))
	deps.Ratings = ratingSvc

	orderSvc, err := order.NewService(deps, order.Options{
		RouteTimeout:  cfg.Order.RouteTimeout,
		DriverID:      types.ID(cfg.Order.DriverID),
		RatingSubject: order.RatingSubject(cfg.Order.RatingSubject),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Addr != "" {
		var verifier infra.TokenVerifier
		if cfg.Firebase.ProjectID != "" {
			verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
			if err != nil {
				return err
			}
		} else {
			lg.Warn("FLYTAXI_FIREBASE_PROJECT_ID not set, rider endpoints are unauthenticated")
		}
		server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
			Order:    orderSvc,
			Ratings:  ratingSvc,
			Fares:    pricingSvc,
			Clock:    clock,
			Verifier: verifier,
			Log:      lg.Named("http"),
		})
		g.Go(func() error { return server.Run(gctx) })
	}

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(cfg.Telegram.Token, orderSvc, lg.Named("telegram"))
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.Run(gctx) })
	}

	lg.Info("flytaxi started",
		zap.String("timezone", loc.String()),
		zap.String("rating_subject", cfg.Order.RatingSubject),
		zap.Int("tariffs", len(tariffs)),
	)
	return g.Wait()
}
