package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/garciaflores/facturador-api/internal/application/billing"
	"github.com/garciaflores/facturador-api/internal/application/connectivity"
	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/infrastructure/bridge"
	"github.com/garciaflores/facturador-api/internal/infrastructure/postgres"
	httpRouter "github.com/garciaflores/facturador-api/internal/interfaces/http"
	"github.com/garciaflores/facturador-api/pkg/config"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente_mh", cfg.DTE.Ambiente).
		Msg("iniciando aplicación")
	if cfg.DTE.BaseURLTrimmed {
		log.Warn().Str("base_url", cfg.DTE.BaseURL).
			Msg("DTE_BASE_URL traía el path del API; se recortó a la URL base")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	recordRepo := postgres.NewDTERecordRepository(pool)
	counterRepo := postgres.NewControlCounterRepository(pool)
	invalidationRepo := postgres.NewDTEInvalidationRepository(pool)

	emitter := dte.DefaultEmitter
	bridgeClient := bridge.New(bridge.Config{
		BaseURL:        cfg.DTE.BaseURL,
		Token:          cfg.DTE.Token,
		ConnectTimeout: cfg.DTE.ConnectTimeout,
		ReadTimeout:    cfg.DTE.ReadTimeout,
	}, log)

	allocator := dte.NewAllocator(counterRepo, emitter, cfg.DTE.Ambiente)
	builder := dte.NewBuilder(emitter, cfg.DTE.Ambiente, log)
	pipeline := dte.NewPipeline(invoiceRepo, clientRepo, recordRepo, allocator, bridgeClient, builder, emitter, log)
	autoresender := dte.NewAutoresender(invoiceRepo, pipeline, cfg.Autoresend.BatchSize, cfg.Autoresend.Backoff, log)
	invalidationUC := dte.NewInvalidationPipeline(
		invoiceRepo, clientRepo, recordRepo, invalidationRepo,
		bridgeClient, emitter, cfg.DTE.Ambiente, log,
	)
	createInvoiceUC := billing.NewCreateInvoiceUseCase(invoiceRepo, clientRepo, pipeline, log)

	// Centinela de conectividad + reenvío automático. El centinela dispara un
	// reenvío inmediato cuando el puente se recupera; el ticker cubre el resto.
	connStatus := connectivity.NewStatus()
	sentinel := connectivity.NewSentinel(connectivity.Config{
		InternetURL: cfg.Connectivity.InternetURL,
		APIURL:      cfg.Connectivity.APIURL,
		Interval:    cfg.Connectivity.Interval,
		Timeout:     cfg.Connectivity.Timeout,
	}, connStatus, log)

	kick := make(chan struct{}, 1)
	sentinel.OnAPIRecovered(func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	go sentinel.Run(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Autoresend.Backoff)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
			case <-ticker.C:
				if !connStatus.Snapshot().API.OK {
					continue
				}
			}
			if _, err := autoresender.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("corrida de autoreenvío falló")
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturador API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		CreateInvoice: createInvoiceUC,
		Invalidation:  invalidationUC,
		Connectivity:  connStatus,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
