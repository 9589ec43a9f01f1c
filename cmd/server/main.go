// Command server assembles the scrip ledger and serves its HTTP surface.
// main only wires dependencies and owns the process lifecycle; business
// logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"scrip/internal/admin"
	adminhandler "scrip/internal/admin/handler"
	"scrip/internal/attestation"
	"scrip/internal/audit"
	"scrip/internal/credential"
	credentialmetrics "scrip/internal/credential/metrics"
	jwttoken "scrip/internal/jwt_token"
	"scrip/internal/platform/config"
	"scrip/internal/platform/httpserver"
	"scrip/internal/platform/logger"
	"scrip/internal/platform/middleware"
	"scrip/internal/platform/postgres"
	platformredis "scrip/internal/platform/redis"
	"scrip/internal/registry"
	registryhandler "scrip/internal/registry/handler"
	registrymetrics "scrip/internal/registry/metrics"
	"scrip/internal/resolver"
	resolverhandler "scrip/internal/resolver/handler"
	resolvermetrics "scrip/internal/resolver/metrics"
	"scrip/internal/token"
	"scrip/internal/valueledger"
	valuehandler "scrip/internal/valueledger/handler"
	valuemetrics "scrip/internal/valueledger/metrics"
	"scrip/internal/verifier"
	verifiermetrics "scrip/internal/verifier/metrics"
	id "scrip/pkg/domain"
	"scrip/pkg/platform/circuit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.Server.LogLevel))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// Stores: Postgres when configured, in-memory otherwise. The in-memory
	// mode loses everything on restart, so shout about it.
	var (
		db            *sql.DB
		tokenStore    token.Store
		registryStore registry.Store
		adminStore    admin.Store
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db, log); err != nil {
			return err
		}
		tokenStore = token.NewPostgresStore(db)
		registryStore = registry.NewPostgresStore(db)
		adminStore = admin.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		tokenStore = token.NewInMemoryStore()
		registryStore = registry.NewInMemoryStore()
		adminStore = admin.NewInMemoryStore()
		log.Warn("SCRIP_POSTGRES_DSN not set, running on in-memory stores")
	}

	// Registry cache.
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	regMetrics := registrymetrics.New()
	if redisClient != nil {
		defer redisClient.Close()
		registryStore = registry.NewCachedStore(registryStore, redisClient.Client, cfg.Redis.CacheTTL, regMetrics, log)
		log.Info("registry cache enabled")
	}

	// Audit trail: Kafka in production, a queryable in-memory ring otherwise.
	// Either way emission is asynchronous so request handling never waits.
	var (
		auditSink  audit.Publisher
		auditStore audit.Store
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafka.Close()
		auditSink = kafka
		log.Info("audit events flowing to kafka", "topic", cfg.Kafka.Topic)
	} else {
		store := audit.NewMemoryStore(audit.DefaultRingCapacity)
		auditSink = audit.NewStorePublisher(store)
		auditStore = store
		log.Warn("SCRIP_KAFKA_BROKERS not set, audit events held in memory")
	}
	auditPublisher := audit.NewAsync(auditSink, 1024, log)

	// Capability schema. A generated one only makes sense against the
	// in-memory attestation gateway.
	schema, err := bootSchema(cfg.Ledger.SchemaID, log)
	if err != nil {
		return err
	}

	adminService, err := admin.NewService(ctx, adminStore, schema,
		admin.WithLogger(log),
		admin.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	registryService := registry.NewService(registryStore, adminService,
		registry.WithLogger(log),
		registry.WithAuditPublisher(auditPublisher),
		registry.WithMetrics(regMetrics),
	)

	// Attestation gateway.
	var gateway attestation.Gateway
	if cfg.Attestation.BaseURL != "" {
		gateway = attestation.NewHTTPGateway(cfg.Attestation.BaseURL, cfg.Attestation.APIKey, cfg.Attestation.Timeout, log)
	} else {
		gateway = attestation.NewInMemoryGateway()
		log.Warn("SCRIP_ATTESTATION_URL not set, using the in-memory attestation gateway")
	}

	verifierService := verifier.NewService(gateway, registryService, adminService,
		verifier.WithLogger(log),
		verifier.WithAuditPublisher(auditPublisher),
		verifier.WithMetrics(verifiermetrics.New()),
	)

	// Trust credential side effect, circuit-broken and best effort.
	var claimCredentials *credential.BestEffort
	if cfg.Credential.BaseURL != "" {
		claimCredentials = credential.NewBestEffort(
			credential.NewHTTPIssuer(cfg.Credential.BaseURL, cfg.Credential.Timeout),
			cfg.Credential.Timeout,
			credential.WithLogger(log),
			credential.WithMetrics(credentialmetrics.New()),
			credential.WithBreaker(circuit.New("credential")),
		)
	} else {
		claimCredentials = credential.NewBestEffort(nil, cfg.Credential.Timeout, credential.WithLogger(log))
		log.Warn("SCRIP_CREDENTIAL_URL not set, claim credentials disabled")
	}

	jwtService := jwttoken.New(cfg.Server.JWTSigningKey, "scrip", "scrip")
	jwtAdapter := jwttoken.NewServiceAdapter(jwtService)

	admins, err := parseAdminParties(cfg.Ledger.AdminParties)
	if err != nil {
		return err
	}

	engine := resolver.NewEngine(tokenStore, registryService, verifierService, adminService,
		resolver.WithLogger(log),
		resolver.WithAuditPublisher(auditPublisher),
		resolver.WithMetrics(resolvermetrics.New()),
		resolver.WithPermitValidator(jwtAdapter),
		resolver.WithCredentialIssuer(claimCredentials),
		resolver.WithAdmins(admins),
		resolver.WithMaxLabelBytes(cfg.Ledger.MaxLabelBytes),
	)

	valueService := valueledger.NewService(tokenStore, registryService, adminService,
		valueledger.WithLogger(log),
		valueledger.WithAuditPublisher(auditPublisher),
		valueledger.WithMetrics(valuemetrics.New()),
	)

	router := buildRouter(routerDeps{
		cfg:             cfg,
		log:             log,
		db:              db,
		redis:           redisClient,
		admin:           adminService,
		auditStore:      auditStore,
		registryHandler: registryhandler.New(registryService, log),
		resolverHandler: resolverhandler.New(engine, verifierService, log),
		valueHandler:    valuehandler.New(valueService, log),
		adminHandler:    adminhandler.New(adminService, auditStore, log),
		jwtAdapter:      jwtAdapter,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return auditPublisher.Run(ctx)
	})
	group.Go(func() error {
		log.Info("scrip listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type routerDeps struct {
	cfg             config.Config
	log             *slog.Logger
	db              *sql.DB
	redis           *platformredis.Client
	admin           *admin.Service
	auditStore      audit.Store
	registryHandler *registryhandler.Handler
	resolverHandler *resolverhandler.Handler
	valueHandler    *valuehandler.Handler
	adminHandler    *adminhandler.Handler
	jwtAdapter      *jwttoken.ServiceAdapter
}

func buildRouter(deps routerDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", readiness(deps))
	r.Handle("/metrics", promhttp.Handler())

	// Public read of registry assignments.
	r.Get("/registry/documents/{documentID}", deps.registryHandler.HandleGetAssignment)

	// Executor surface: registry writes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaticToken(middleware.ExecutorTokenHeader, deps.cfg.Server.ExecutorToken, "executor", deps.log))
		r.Post("/registry/documents", deps.registryHandler.HandleSetIssuer)
	})

	// Party surface: token lifecycle and value movement.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireParty(deps.jwtAdapter, deps.log))
		deps.resolverHandler.Register(r)
		deps.valueHandler.Register(r)
	})

	// Governor surface: ledger administration and the audit query.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaticToken(middleware.GovernorTokenHeader, deps.cfg.Server.GovernorToken, "governor", deps.log))
		deps.adminHandler.Register(r)
	})

	return r
}

// readiness reports not-ready while a backing store is unreachable or the
// ledger is paused, so load balancers drain paused instances gracefully.
func readiness(deps routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if deps.db != nil {
			if err := deps.db.PingContext(ctx); err != nil {
				http.Error(w, "postgres unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		if deps.redis != nil {
			if err := deps.redis.Health(ctx); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		paused, err := deps.admin.Paused(ctx)
		if err != nil {
			http.Error(w, "governance state unreachable", http.StatusServiceUnavailable)
			return
		}
		if paused {
			http.Error(w, "ledger paused", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func bootSchema(raw string, log *slog.Logger) (id.SchemaID, error) {
	if raw != "" {
		return id.ParseSchemaID(raw)
	}
	schema, err := id.ParseSchemaID(uuid.NewString())
	if err != nil {
		return id.SchemaID{}, err
	}
	log.Warn("SCRIP_SCHEMA_ID not set, generated one for this process", "schema_id", schema.String())
	return schema, nil
}

func parseAdminParties(raw []string) ([]id.PartyID, error) {
	out := make([]id.PartyID, 0, len(raw))
	for _, entry := range raw {
		party, err := id.ParsePartyID(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, party)
	}
	return out, nil
}
