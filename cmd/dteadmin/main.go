package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/garciaflores/facturador-api/internal/application/dte"
	"github.com/garciaflores/facturador-api/internal/infrastructure/bridge"
	"github.com/garciaflores/facturador-api/internal/infrastructure/postgres"
	"github.com/garciaflores/facturador-api/pkg/config"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// dteadmin agrupa tareas operativas del subsistema DTE que corren fuera del
// servidor: reenvío de pendientes desde cron, pruebas de configuración.
func main() {
	root := &cobra.Command{
		Use:           "dteadmin",
		Short:         "Tareas operativas del subsistema DTE",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAutoresendCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newAutoresendCmd() *cobra.Command {
	var (
		limit   int
		loop    bool
		every   time.Duration
		backoff time.Duration
	)

	cmd := &cobra.Command{
		Use:   "autoresend",
		Short: "Reenvía facturas con DTE pendiente",
		Long: `Reserva un lote de facturas PENDIENTE con identificadores asignados y las
reenvía al puente DTE. Pensado para cron o systemd timer; con --loop corre
indefinidamente con el intervalo indicado.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

			if limit <= 0 {
				limit = cfg.Autoresend.BatchSize
			}
			if backoff <= 0 {
				backoff = cfg.Autoresend.Backoff
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := postgres.NewPool(ctx, cfg.DB)
			if err != nil {
				return fmt.Errorf("conexión a PostgreSQL: %w", err)
			}
			defer pool.Close()

			invoiceRepo := postgres.NewInvoiceRepository(pool)
			clientRepo := postgres.NewClientRepository(pool)
			recordRepo := postgres.NewDTERecordRepository(pool)
			counterRepo := postgres.NewControlCounterRepository(pool)

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
			worker := dte.NewAutoresender(invoiceRepo, pipeline, limit, backoff, log)

			run := func() error {
				stats, err := worker.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("reservadas=%d aceptadas=%d rechazadas=%d pendientes=%d errores=%d\n",
					stats.Reserved, stats.Accepted, stats.Rejected, stats.Pending, stats.Errors)
				return nil
			}

			if !loop {
				return run()
			}
			for {
				if err := run(); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("corrida de autoreenvío falló")
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(every):
				}
			}
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "límite de facturas por corrida (0 = valor configurado)")
	cmd.Flags().BoolVar(&loop, "loop", false, "correr indefinidamente")
	cmd.Flags().DurationVar(&every, "every", time.Minute, "intervalo entre corridas con --loop")
	cmd.Flags().DurationVar(&backoff, "backoff", 0, "ventana mínima desde el último intento (0 = valor configurado)")

	return cmd
}
