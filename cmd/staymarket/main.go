package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"staymarket/internal/app/commands"
	availabilityapp "staymarket/internal/app/handlers/availability"
	calendarapp "staymarket/internal/app/handlers/calendar"
	quoteapp "staymarket/internal/app/handlers/quote"
	reservationapp "staymarket/internal/app/handlers/reservation"
	searchapp "staymarket/internal/app/handlers/search"
	"staymarket/internal/app/middleware"
	appoutbox "staymarket/internal/app/outbox"
	"staymarket/internal/app/policies"
	"staymarket/internal/app/queries"
	"staymarket/internal/app/uow"
	domainproperty "staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/money"
	domaintenant "staymarket/internal/domain/tenant"
	"staymarket/internal/infra/broker/kafka"
	"staymarket/internal/infra/config"
	mongodb "staymarket/internal/infra/db/mongo"
	ginserver "staymarket/internal/infra/http/gin"
	"staymarket/internal/infra/obs"
	infraoutbox "staymarket/internal/infra/outbox"
	"staymarket/internal/infra/payments"
	"staymarket/internal/infra/pms"
	"staymarket/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	seedPath := getenv("SEED_FIXTURES", defaultSeedPath())
	if err := app.loadSeedFixtures(ctx, seedPath, logger); err != nil {
		logger.Warn("seed fixtures load failed", "error", err, "path", seedPath)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	ready    func() error
	seed     func(ctx context.Context, t *domaintenant.Tenant, props []*domainproperty.Property) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		uowFactory  uow.Factory
		outboxStore appoutbox.Outbox
		idStore     middleware.IdempotencyStore
		worker      *infraoutbox.Worker
		ready       = func() error { return nil }
	)

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		factory := mongodb.Factory{
			DB:               client.DB,
			TenantsRepo:      mongodb.NewTenantRepository(client.DB),
			PropertiesRepo:   mongodb.NewPropertyRepository(client.DB),
			CalendarStore:    mongodb.NewCalendarStore(client.DB),
			QuotesRepo:       mongodb.NewQuoteRepository(client.DB),
			ReservationsRepo: mongodb.NewReservationRepository(client.DB),
			GuestsRepo:       mongodb.NewGuestRepository(client.DB),
		}
		uowFactory = factory
		idStore = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		store := infraoutbox.NewStore(client.DB)
		outboxStore = store
		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka producer: %w", err)
			}
			worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		} else {
			logger.Warn("no kafka brokers configured, outbox events stay queued")
		}
	} else {
		logger.Info("no MONGO_URI set, using in-memory storage")
		uowFactory = memory.Factory{
			TenantsRepo:      memory.NewTenantRepository(),
			PropertiesRepo:   memory.NewPropertyRepository(),
			CalendarStore:    memory.NewCalendarStore(),
			QuotesRepo:       memory.NewQuoteRepository(),
			ReservationsRepo: memory.NewReservationRepository(),
			GuestsRepo:       memory.NewGuestRepository(),
		}
		outboxStore = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
	}

	var externalRates policies.ExternalRatesPort
	if cfg.PMSBaseURL != "" {
		externalRates = &pms.Client{
			HTTP:         &http.Client{},
			BaseURL:      cfg.PMSBaseURL,
			TokenURL:     cfg.PMSTokenURL,
			ClientID:     cfg.PMSClientID,
			ClientSecret: cfg.PMSClientSecret,
			Timeout:      cfg.PMSTimeout,
			Logger:       logger,
		}
	}
	var paymentsPort policies.PaymentsPort
	if cfg.PaymentsURL != "" {
		paymentsPort = &payments.Client{HTTP: &http.Client{}, BaseURL: cfg.PaymentsURL, Timeout: 10 * time.Second}
	}

	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, quoteapp.GenerateQuoteCommand{}.Key(), &quoteapp.GenerateQuoteHandler{
		UoWFactory:    uowFactory,
		ExternalRates: externalRates,
		Outbox:        outboxStore,
		Encoder:       encoder,
		QuoteTTL:      cfg.QuoteTTL,
		Logger:        logger,
	})
	commands.RegisterHandler(commandBus, reservationapp.CreateReservationCommand{}.Key(), &reservationapp.CreateReservationHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Terms:      reservationapp.DefaultRefundTerms(),
	})
	commands.RegisterHandler(commandBus, reservationapp.ConfirmReservationCommand{}.Key(), &reservationapp.ConfirmReservationHandler{
		UoWFactory: uowFactory,
		Payments:   paymentsPort,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, reservationapp.CancelReservationCommand{}.Key(), &reservationapp.CancelReservationHandler{
		UoWFactory: uowFactory,
		Payments:   paymentsPort,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, reservationapp.CompleteReservationCommand{}.Key(), &reservationapp.CompleteReservationHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, calendarapp.SetOverrideCommand{}.Key(), &calendarapp.SetOverrideHandler{
		UoWFactory: uowFactory,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, calendarapp.GetCalendarQuery{}.Key(), &calendarapp.GetCalendarHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, reservationapp.GetReservationQuery{}.Key(), &reservationapp.GetReservationHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, searchapp.SearchStaysQuery{}.Key(), &searchapp.SearchStaysHandler{
		UoWFactory:    uowFactory,
		ExternalRates: externalRates,
		Concurrency:   cfg.SearchConcurrency,
		Logger:        logger,
	})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	seed := func(ctx context.Context, t *domaintenant.Tenant, props []*domainproperty.Property) error {
		unit, err := uowFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
		seedCtx := ctx
		if injector, ok := unit.(interface {
			InjectContext(context.Context) context.Context
		}); ok {
			seedCtx = injector.InjectContext(ctx)
		}
		if err := unit.Tenants().Save(seedCtx, t); err != nil {
			return err
		}
		for _, p := range props {
			if err := unit.Properties().Save(seedCtx, p); err != nil {
				return err
			}
		}
		if err := unit.Commit(seedCtx); err != nil {
			return err
		}
		committed = true
		return nil
	}

	return application{
		handlers: ginserver.Handlers{
			Quote:       ginserver.QuoteHandler{Commands: commandBusWithMiddleware},
			Reservation: ginserver.ReservationHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
			Search:      ginserver.SearchHandler{Queries: queryBusWithMiddleware},
			Calendar:    ginserver.CalendarHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		},
		worker: worker,
		ready:  ready,
		seed:   seed,
	}, nil
}

// loadSeedFixtures imports demo tenants and properties so the dev setup has
// something to search and book.
func (a application) loadSeedFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("seed fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []tenantFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures {
		tenant, err := domaintenant.NewTenant(domaintenant.TenantID(fx.ID), fx.Name, fx.Currency, now)
		if err != nil {
			logger.Error("tenant fixture invalid", "tenant_id", fx.ID, "error", err)
			continue
		}
		var props []*domainproperty.Property
		for _, pf := range fx.Properties {
			prop, err := domainproperty.NewProperty(domainproperty.CreateParams{
				ID:          domainproperty.PropertyID(pf.ID),
				TenantID:    tenant.ID,
				Title:       pf.Title,
				MaxGuests:   pf.MaxGuests,
				Bedrooms:    pf.Bedrooms,
				Bathrooms:   pf.Bathrooms,
				BasePrice:   money.Money{Amount: pf.BasePrice, Currency: tenant.Currency},
				CleaningFee: money.Money{Amount: pf.CleaningFee, Currency: tenant.Currency},
				MinNights:   pf.MinNights,
				MaxNights:   pf.MaxNights,
				ExternalID:  pf.ExternalID,
				Now:         now,
			})
			if err != nil {
				logger.Error("property fixture invalid", "property_id", pf.ID, "error", err)
				continue
			}
			if err := prop.Activate(now); err != nil {
				logger.Error("property fixture activation failed", "property_id", pf.ID, "error", err)
				continue
			}
			prop.ClearEvents()
			props = append(props, prop)
		}
		if err := a.seed(ctx, tenant, props); err != nil {
			logger.Error("cannot store fixtures", "tenant_id", fx.ID, "error", err)
			continue
		}
		logger.Info("tenant fixture imported", "tenant_id", tenant.ID, "properties", len(props))
	}
	return nil
}

type tenantFixture struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Currency   string            `json:"currency"`
	Properties []propertyFixture `json:"properties"`
}

type propertyFixture struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MaxGuests   int    `json:"max_guests"`
	Bedrooms    int    `json:"bedrooms"`
	Bathrooms   int    `json:"bathrooms"`
	BasePrice   int64  `json:"base_price"`
	CleaningFee int64  `json:"cleaning_fee"`
	MinNights   int    `json:"min_nights"`
	MaxNights   int    `json:"max_nights"`
	ExternalID  string `json:"external_id"`
}

func defaultSeedPath() string {
	return filepath.Join("data", "tenants.json")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
