package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lumohealth/companion/backend/internal/analysis/pattern"
	"github.com/lumohealth/companion/backend/internal/config"
	"github.com/lumohealth/companion/backend/internal/handler"
	auditservice "github.com/lumohealth/companion/backend/internal/service/audit"
	chatservice "github.com/lumohealth/companion/backend/internal/service/chat"
	"github.com/lumohealth/companion/backend/internal/service/disclaimer"
	"github.com/lumohealth/companion/backend/internal/service/emergency"
	"github.com/lumohealth/companion/backend/internal/service/generation"
	"github.com/lumohealth/companion/backend/internal/service/knowledge"
	"github.com/lumohealth/companion/backend/internal/service/pipeline"
	safetyservice "github.com/lumohealth/companion/backend/internal/service/safety"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Rule sets compile once at startup; malformed rules are fatal here,
	// never per request.
	matchers, err := compileMatchers()
	if err != nil {
		log.Fatalf("failed to compile rule sets: %v", err)
	}

	chatSvc := chatservice.NewService(cfg.Pipeline.SessionTTL)
	acks := disclaimer.NewMemoryAckStore()
	disclaimers := disclaimer.NewManager()
	kb := knowledge.NewMemoryStore(knowledge.Seed())

	recorder := auditservice.NewRecorder(auditservice.NewMemorySink())
	defer recorder.Close()

	detector := emergency.NewDetector(matchers.emergency, cfg.Safety.EmergencyThreshold, recorder)
	filter := safetyservice.NewFilter(safetyservice.Matchers{
		Diagnosis:    matchers.diagnosis,
		Prescription: matchers.prescription,
		Treatment:    matchers.treatment,
		Bias:         matchers.bias,
	}, safetyservice.Config{
		MaxGradeLevel: cfg.Safety.MaxGradeLevel,
		MediumLimit:   cfg.Safety.MediumLimit,
	})

	gateway, err := generation.NewGateway(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize generation gateway: %v", err)
	}
	log.Println("generation gateway initialized")

	controller := pipeline.NewController(
		chatSvc, detector, filter, disclaimers, acks, gateway, kb, recorder,
		pipeline.Config{
			MaxAttempts:   cfg.Pipeline.MaxAttempts,
			SoftTimeout:   cfg.Pipeline.SoftTimeout,
			HardTimeout:   cfg.Pipeline.HardTimeout,
			MaxQueryRunes: cfg.Pipeline.MaxQueryRunes,
		},
	)

	router := handler.NewRouter(chatSvc, disclaimers, acks, controller)

	startServer(ctx, cfg.Server, router)
}

type compiledMatchers struct {
	emergency    *pattern.Matcher
	diagnosis    *pattern.Matcher
	prescription *pattern.Matcher
	treatment    *pattern.Matcher
	bias         *pattern.Matcher
}

func compileMatchers() (compiledMatchers, error) {
	var m compiledMatchers
	var err error

	if m.emergency, err = pattern.NewMatcher(pattern.EmergencyRules()); err != nil {
		return m, err
	}
	if m.diagnosis, err = pattern.NewMatcher(pattern.DiagnosisRules()); err != nil {
		return m, err
	}
	if m.prescription, err = pattern.NewMatcher(pattern.PrescriptionRules()); err != nil {
		return m, err
	}
	if m.treatment, err = pattern.NewMatcher(pattern.TreatmentRules()); err != nil {
		return m, err
	}
	if m.bias, err = pattern.NewMatcher(pattern.BiasRules()); err != nil {
		return m, err
	}
	return m, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("health companion backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
