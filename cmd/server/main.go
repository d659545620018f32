package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	assignmentHandler "schoolbridge/internal/assignment/handler"
	assignmentService "schoolbridge/internal/assignment/service"
	"schoolbridge/internal/auth/google"
	authHandler "schoolbridge/internal/auth/handler"
	authService "schoolbridge/internal/auth/service"
	sessionCleanup "schoolbridge/internal/auth/workers/cleanup"
	classroomHandler "schoolbridge/internal/classroom/handler"
	classroomService "schoolbridge/internal/classroom/service"
	invitationHandler "schoolbridge/internal/invitation/handler"
	"schoolbridge/internal/invitation/mailer"
	invitationService "schoolbridge/internal/invitation/service"
	invitationCleanup "schoolbridge/internal/invitation/workers/cleanup"
	jwttoken "schoolbridge/internal/jwt_token"
	"schoolbridge/internal/platform/config"
	"schoolbridge/internal/platform/database"
	"schoolbridge/internal/platform/health"
	"schoolbridge/internal/platform/logger"
	"schoolbridge/internal/platform/metrics"
	"schoolbridge/internal/platform/redis"
	"schoolbridge/internal/platform/tracer"
	rlmiddleware "schoolbridge/internal/ratelimit/middleware"
	bucketCleanup "schoolbridge/internal/ratelimit/workers/cleanup"
	schoolHandler "schoolbridge/internal/school/handler"
	schoolService "schoolbridge/internal/school/service"
	"schoolbridge/internal/seeder"
	studentHandler "schoolbridge/internal/student/handler"
	studentService "schoolbridge/internal/student/service"
	httptransport "schoolbridge/internal/transport/http"
	"schoolbridge/pkg/platform/httputil"
	request "schoolbridge/pkg/platform/middleware/request"
	"schoolbridge/pkg/secrets"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing schoolbridge",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"database", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
	)
	httputil.SetDevelopmentMode(cfg.IsDevelopment())

	pool, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // process is exiting
	if pool != nil {
		if err := pool.Migrate(ctx); err != nil {
			return err
		}
	}

	rc, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck // process is exiting

	m := metrics.New(prometheus.DefaultRegisterer)
	tr := tracer.NewOTel()
	st := newStores(pool, rc)

	tokens := jwttoken.NewJWTService(jwttoken.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})

	var mail mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.Mail.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
		})
	}

	invitations := invitationService.New(st.invitations, st.users, mail, secrets.GenerateToken,
		invitationService.WithLogger(log),
		invitationService.WithMetrics(m),
		invitationService.WithTracer(tr),
		invitationService.WithTTL(cfg.Invitation.TTL),
		invitationService.WithSendTimeout(cfg.Mail.SendTimeout),
		invitationService.WithLinks(mailer.Links{
			DeepLinkBase: cfg.Invitation.DeepLinkBase,
			WebBaseURL:   cfg.Invitation.WebBaseURL,
		}),
	)

	authOpts := []authService.Option{authService.WithLogger(log), authService.WithMetrics(m)}
	if cfg.Auth.GoogleVerifyTokens {
		authOpts = append(authOpts, authService.WithGoogleVerifier(google.NewVerifier()))
	}
	auth := authService.New(st.users, st.sessions, tokens, invitations, authOpts...)

	if cfg.Bootstrap.SuperAdminEmail != "" && cfg.Bootstrap.SuperAdminPassword != "" {
		created, err := auth.EnsureSuperAdmin(ctx, cfg.Bootstrap.SuperAdminEmail, cfg.Bootstrap.SuperAdminPassword, "Platform Administrator")
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap superadmin created")
		}
	}

	if cfg.IsDevelopment() && cfg.Bootstrap.SeedDemoData {
		demo := seeder.New(st.users, st.schools, st.classes, st.assignments, secrets.Hash, log)
		if _, err := demo.SeedAll(ctx); err != nil {
			log.Warn("demo data not seeded", "error", err)
		}
	}

	schools := schoolService.New(st.schools, schoolService.WithLogger(log), schoolService.WithMetrics(m))

	classOpts := []classroomService.Option{classroomService.WithLogger(log), classroomService.WithMetrics(m)}
	if st.classTx != nil {
		classOpts = append(classOpts, classroomService.WithTx(st.classTx))
	}
	classes := classroomService.New(st.classes, st.users, st.assignments, classOpts...)

	assignments := assignmentService.New(st.assignments, st.classes, st.users,
		assignmentService.WithLogger(log),
		assignmentService.WithMetrics(m),
	)
	students := studentService.New(st.users, classes, assignments, studentService.WithLogger(log))

	limiterOpts := []rlmiddleware.Option{rlmiddleware.WithLogger(log), rlmiddleware.WithMetrics(m)}
	if !cfg.RateLimit.Enabled {
		limiterOpts = append(limiterOpts, rlmiddleware.WithDisabled())
	}

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}
	if rc != nil {
		healthHandler.RegisterCheck("redis", rc.Health)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		TrustProxy:  cfg.TrustProxy,
		Tokens:      tokens,
		Users:       st.users,
		RateLimit:   rlmiddleware.New(st.buckets, limiterOpts...),
		Auth:        authHandler.New(auth, log),
		Invitations: invitationHandler.New(invitations, log),
		Schools:     schoolHandler.New(schools, log),
		Classes:     classroomHandler.New(classes, log),
		Assignments: assignmentHandler.New(assignments, log),
		Students:    studentHandler.New(students, log),
		Health:      healthHandler,
		Latency:     request.NewMetrics(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	invitationWorker, err := invitationCleanup.New(st.invitations,
		invitationCleanup.WithInterval(cfg.Invitation.CleanupInterval),
		invitationCleanup.WithLogger(log),
		invitationCleanup.WithMetrics(m),
		invitationCleanup.WithTracer(tr),
	)
	if err != nil {
		return err
	}
	sessionWorker, err := sessionCleanup.New(st.sessions,
		sessionCleanup.WithCleanupLogger(log),
		sessionCleanup.WithCleanupMetrics(m),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return ignoreCancel(invitationWorker.Start(gctx)) })
	g.Go(func() error { return ignoreCancel(sessionWorker.Start(gctx)) })

	if st.memoryBuckets != nil {
		bucketWorker, err := bucketCleanup.New(st.memoryBuckets, bucketCleanup.WithLogger(log))
		if err != nil {
			return err
		}
		g.Go(func() error { return ignoreCancel(bucketWorker.Start(gctx)) })
	}
	if rc != nil {
		g.Go(func() error {
			rc.ReportPoolStats(gctx, 30*time.Second)
			return nil
		})
	}

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
