// devauth runs the reference Authentication Service: the JSON API under /api/auth on DEVAUTH_HTTP_ADDR
// and grpc.health.v1 on DEVAUTH_GRPC_ADDR. With DATABASE_URL set, users, OTP challenges and audit logs
// live in Postgres (migrations are applied on start); otherwise everything is kept in memory.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/foundation/pkg/ratelimiter"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	auditrepo "github.com/Krishna101010101010/Bio-pay/internal/audit/repository"
	"github.com/Krishna101010101010/Bio-pay/internal/config"
	"github.com/Krishna101010101010/Bio-pay/internal/db"
	"github.com/Krishna101010101010/Bio-pay/internal/db/migrate"
	"github.com/Krishna101010101010/Bio-pay/internal/devauth/handler"
	"github.com/Krishna101010101010/Bio-pay/internal/devauth/service"
	"github.com/Krishna101010101010/Bio-pay/internal/devotp"
	"github.com/Krishna101010101010/Bio-pay/internal/health"
	"github.com/Krishna101010101010/Bio-pay/internal/logging"
	"github.com/Krishna101010101010/Bio-pay/internal/mfa"
	mfarepo "github.com/Krishna101010101010/Bio-pay/internal/mfa/repository"
	"github.com/Krishna101010101010/Bio-pay/internal/mfa/sms"
	"github.com/Krishna101010101010/Bio-pay/internal/policy/engine"
	"github.com/Krishna101010101010/Bio-pay/internal/security"
	"github.com/Krishna101010101010/Bio-pay/internal/server"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
	telemetryotel "github.com/Krishna101010101010/Bio-pay/internal/telemetry/otel"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry/producer"
	userrepo "github.com/Krishna101010101010/Bio-pay/internal/user/repository"
)

const (
	healthInterval  = 10 * time.Second
	devOTPSweep     = time.Minute
	shutdownTimeout = 10 * time.Second
)

type stores struct {
	db         *sql.DB
	users      userrepo.Repository
	challenges mfarepo.Repository
	audit      auditrepo.Repository
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DatabaseURL == "" {
		return &stores{
			users:      userrepo.NewMemoryRepository(),
			challenges: mfarepo.NewMemoryRepository(),
			audit:      auditrepo.NewMemoryRepository(),
		}, nil
	}
	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, err
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &stores{
		db:         conn,
		users:      userrepo.NewPostgresRepository(conn),
		challenges: mfarepo.NewPostgresRepository(conn),
		audit:      auditrepo.NewPostgresRepository(conn),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, "devauth")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName + "-devauth",
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if st.db != nil {
		defer st.db.Close()
		log.Println("devauth: using postgres storage")
	} else {
		log.Println("devauth: DATABASE_URL not set, using in-memory storage")
	}

	emitters := telemetry.MultiEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.FlowKafkaTopic); kp != nil {
		defer kp.Close()
		emitters = append(emitters, kp)
	}

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("jwt keys: %v", err)
	}
	if cfg.JWTPrivateKey == "" {
		logger.Warn("JWT keys not configured, signing with an ephemeral key")
	}
	tokens, err := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		log.Fatalf("token provider: %v", err)
	}

	policy, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		log.Fatalf("login policy: %v", err)
	}

	limiterStore := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(logger))
	limiterDone := make(chan struct{})
	go func() {
		defer close(limiterDone)
		if err := limiterStore.Run(ctx)(); err != nil {
			logger.Error("rate limiter cleanup stopped", "error", err)
		}
	}()
	limiter, err := ratelimiter.NewBucket(limiterStore, ratelimiter.Config{
		Capacity:       cfg.ResendRateCapacity,
		RefillRate:     1,
		RefillInterval: cfg.ResendRefill(),
	})
	if err != nil {
		log.Fatalf("rate limiter: %v", err)
	}

	deps := service.Deps{
		Users: st.users,
		Challenges: mfa.NewChallengeService(st.challenges, mfa.NewHasher(cfg.OTPHashCost), mfa.ChallengeConfig{
			TTL:         cfg.OTPValidity(),
			VerifiedTTL: cfg.VerifiedValidity(),
			MaxAttempts: cfg.OTPMaxAttempts,
		}),
		Limiter: limiter,
		Policy:  policy,
		Tokens:  tokens,
		Audit:   audit.NewLogger(st.audit, audit.ClientIPFromContext),
		Emitter: emitters,
		Logger:  logger,
	}
	switch {
	case cfg.OTPReturnToClient:
		dev := devotp.NewMemoryStore()
		go sweepDevOTP(ctx, dev)
		deps.DevOTP = dev
		logger.Warn("dev OTP mode: codes are not sent and can be read from GET /dev/otp/{mobile}")
	case cfg.SMSLocalAPIKey != "":
		deps.Sender = sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
	default:
		log.Fatal("devauth: SMS_LOCAL_API_KEY is required unless OTP_RETURN_TO_CLIENT=true")
	}
	svc, err := service.NewAuthService(deps)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	var pinger health.Pinger
	if st.db != nil {
		pinger = st.db
	}
	checker := health.NewChecker(pinger, policy)
	healthSrv := health.NewServer(checker)
	go healthSrv.Watch(ctx, healthInterval)

	api := handler.New(svc, tokens,
		handler.WithLogger(logger),
		handler.WithHealth(checker),
		handler.WithEventEmitter(emitters),
		handler.WithRequestTimeout(cfg.HTTPTimeout()),
	)
	httpSrv := &http.Server{
		Addr:              cfg.DevAuthHTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.DevAuthHTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.DevAuthGRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	grpcSrv := server.NewGRPCServer(server.Deps{Health: healthSrv, Reflection: !cfg.IsProduction()})
	go func() {
		log.Printf("gRPC server listening on %s", cfg.DevAuthGRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down devauth...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcSrv.GracefulStop()
	<-limiterDone

	// Let in-flight async telemetry finish before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("devauth stopped")
}

func sweepDevOTP(ctx context.Context, s *devotp.MemoryStore) {
	t := time.NewTicker(devOTPSweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
