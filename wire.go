package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	appcart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	appidentity "github.com/Zhima-Mochi/minishop-storefront/internal/application/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/notification"
	apporder "github.com/Zhima-Mochi/minishop-storefront/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-storefront/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-storefront/internal/config"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/cache"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/notify"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/rabbitmq"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-storefront/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-storefront/internal/presentation/worker"
	"github.com/redis/go-redis/v9"
)

// stores groups the persistence ports. Browse may be cached; Products never is.
type stores struct {
	Browse   catalog.Reader
	Catalog  catalog.Repository
	Products catalog.Repository
	Orders   domorder.Repository
	Users    identity.Repository
	Carts    cart.Store

	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, log observability.Logger, seed bool) (*stores, error) {
	s := &stores{}

	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(cfg.Postgres.DSN, postgres.Up, log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		}, log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		products := postgres.NewProductRepository(pool)
		s.Catalog, s.Products = products, products
		s.Orders = postgres.NewOrderRepository(pool)
		s.Users = postgres.NewUserRepository(pool)
		if seed {
			if err := seedCatalog(ctx, products); err != nil {
				s.Close()
				return nil, err
			}
		}
	default:
		products := memory.NewProductRepository()
		if seed {
			if err := seedCatalog(ctx, products); err != nil {
				return nil, err
			}
		}
		s.Catalog, s.Products = products, products
		s.Orders = memory.NewOrderRepository()
		s.Users = memory.NewUserRepository()
	}
	s.Browse = s.Catalog
	s.Carts = memory.NewCartStore()

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			s.Close()
			return nil, fmt.Errorf("redis: ping %s: %w", cfg.Redis.Addr, err)
		}
		s.closers = append(s.closers, func() { _ = rdb.Close() })

		cached := cache.NewCatalog(s.Catalog, rdb, cfg.Redis.CacheTTL, log)
		s.Browse, s.Catalog, s.Products = cached, cached, cached.Authoritative()
		s.Carts = cache.NewCartStore(rdb, cfg.Redis.CartTTL)
		log.Info("redis_enabled", observability.F("addr", cfg.Redis.Addr))
	}
	return s, nil
}

// app is the assembled service: HTTP surface plus the event bus and its consumers.
type app struct {
	handler http.Handler
	bus     *outbox.Bus
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, st *stores, tel observability.Observability, metrics http.Handler) (*app, error) {
	log := tel.Logger()
	a := &app{}

	bus := outbox.NewBus(log, outbox.Options{
		QueueSize:      cfg.Outbox.QueueSize,
		Concurrency:    cfg.Outbox.Concurrency,
		HandlerTimeout: cfg.Outbox.HandlerTimeout,
	})
	a.bus = bus

	signer, err := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	provider := auth.NewStoredRoles(signer, st.Users)
	guard := access.NewGuard(log)
	ids := id.NewUUIDGenerator()

	deps := apporder.Deps{
		Orders:    access.NewGuardedOrders(st.Orders, guard),
		Products:  access.NewGuardedCatalog(st.Products, guard),
		Users:     st.Users,
		Carts:     st.Carts,
		IDs:       ids,
		Publisher: bus,
		Tel:       tel,
	}

	svc := httppresentation.Services{
		Catalog:  appcatalog.NewService(st.Browse, access.NewGuardedCatalog(st.Catalog, guard), ids, guard, tel),
		Cart:     appcart.NewService(st.Carts, st.Browse, guard, tel),
		Users:    appidentity.NewService(st.Users, guard, tel),
		Orders:   apporder.NewQueries(deps, guard),
		Checkout: access.Wrap(guard, apporder.NewCheckoutUseCase(deps), access.Customer...),
		Transit:  apporder.NewTransitionUseCase(deps, guard),
		Cancel:   apporder.NewCancelUseCase(deps, guard),
		Payments: apppayment.NewRecordPaymentUseCase(deps.Orders, bus, tel),
	}

	eventCtx := workerpresentation.EventContext(tel, "notification")
	notification.NewWorker(notify.NewLogNotifier(log), bus, tel).Start(eventCtx)

	if cfg.RabbitMQ.Enabled() {
		conn, ch, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			_ = ch.Close()
			_ = conn.Close()
		})
		fwd := rabbitmq.NewForwarder(ch, cfg.RabbitMQ.Exchange, tel)
		mw := workerpresentation.EventContext(tel, "rabbitmq")
		for _, name := range domorder.EventNames() {
			bus.Subscribe(name, mw(fwd.Forward))
		}
		log.Info("rabbitmq_forwarding_enabled", observability.F("exchange", cfg.RabbitMQ.Exchange))
	}

	a.handler = httppresentation.NewHandler(svc, httppresentation.Options{
		Identity:      provider,
		Guard:         guard,
		WebhookSecret: cfg.Payment.WebhookSecret,
		Metrics:       metrics,
		Tel:           tel,
	}).Router()
	return a, nil
}
