package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/totegamma/eform-core/internal/config"
	"github.com/totegamma/eform-core/internal/infra/database"
	"github.com/totegamma/eform-core/internal/infra/repository"
	"github.com/totegamma/eform-core/internal/present/rest"
	authmw "github.com/totegamma/eform-core/internal/present/rest/middleware"
	"github.com/totegamma/eform-core/internal/service"
	"github.com/totegamma/eform-core/internal/usecase"
)

const (
	serviceName     = "eform"
	shutdownTimeout = 10 * time.Second
)

func setupTraceProvider(endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.String("error", err.Error()))
		}
	}
	return cleanup, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("eform stopped", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred shutdowns always execute.
func run(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if cfg.Server.EnableTrace {
		cleanup, err := setupTraceProvider(cfg.Server.TraceEndpoint)
		if err != nil {
			return errors.Wrap(err, "failed to setup tracer")
		}
		defer cleanup()
	}

	db, err := database.NewPostgres(cfg.Server.PostgresDsn)
	if err != nil {
		return errors.Wrap(err, "failed to connect database")
	}

	err = database.Migrate(db)
	if err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	err = database.Seed(db)
	if err != nil {
		return errors.Wrap(err, "failed to seed database")
	}

	rdb := database.NewRedis(cfg.Server.RedisAddr, "", cfg.Server.RedisDB)
	mc := database.NewMemcached(cfg.Server.MemcachedAddr)

	fieldTypeRepo := repository.NewFieldTypeRepository(db)
	formRepo := repository.NewFormRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db, mc)
	permissionRepo := repository.NewPermissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(cfg.Server.JwtSecret, userRepo)
	accessService := service.NewAccessService(permissionRepo)
	signalService := service.NewSignalService(rdb)

	fieldTypeUsecase := usecase.NewFieldTypeUsecase(fieldTypeRepo)
	formUsecase := usecase.NewFormUsecase(formRepo, fieldTypeRepo)
	storeUsecase := usecase.NewStoreUsecase(formRepo, storeRepo, accessService, statisticsRepo, signalService)
	statisticsUsecase := usecase.NewStatisticsUsecase(formRepo, statisticsRepo)

	handler := rest.NewHandler(fieldTypeUsecase, formUsecase, storeUsecase, statisticsUsecase, signalService)
	auth := authmw.NewAuthMiddleware(authService)

	e := echo.New()
	e.HideBanner = true
	e.Validator = rest.NewValidator()
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(auth.IdentifyIdentity)

	handler.RegisterRoutes(e)

	return serve(ctx, e, cfg.Server.Listen)
}

// serve runs e until ctx is done or the listener fails, then drains
// in-flight requests.
func serve(ctx context.Context, e *echo.Echo, listen string) error {
	failed := make(chan error, 1)
	go func() {
		if err := e.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
