package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/arborhq/arbor"
	"github.com/arborhq/arbor/internal/config"
	arborhttp "github.com/arborhq/arbor/pkg/adapters/http"
	"github.com/arborhq/arbor/pkg/adapters/memory"
	arbormqtt "github.com/arborhq/arbor/pkg/adapters/mqtt"
	arborredis "github.com/arborhq/arbor/pkg/adapters/redis"
	"github.com/arborhq/arbor/pkg/host"
	"github.com/arborhq/arbor/pkg/observability"
	"github.com/arborhq/arbor/pkg/ports"
)

func newRunCmd() *cobra.Command {
	var (
		file      string
		listen    string
		redisAddr string
		brokerURL string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a machine from a definition file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}

			cfg, err := config.Load(file)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			loop := host.NewLoop()
			timers := host.NewScheduler(loop.Post)

			var bus ports.EntityBus
			switch {
			case redisAddr != "":
				client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
				defer client.Close()
				b := arborredis.NewFromClient(client,
					arborredis.WithDelivery(loop.Post),
					arborredis.WithLogger(logger))
				defer b.Close()
				bus = b
				logger.Info("using redis entity bus", "addr", redisAddr)

			case brokerURL != "":
				client, err := arbormqtt.Dial(brokerURL, "arbor-"+cfg.Name)
				if err != nil {
					return err
				}
				defer client.Disconnect()
				b := arbormqtt.NewFromClient(client,
					arbormqtt.WithDelivery(loop.Post),
					arbormqtt.WithLogger(logger))
				if cfg.Mirror != "" {
					// Pick up the retained mirror value so the machine can
					// resume its previous state. A cold mirror is fine.
					warmCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
					_ = b.Warm(warmCtx, cfg.Mirror)
					cancel()
				}
				bus = b
				logger.Info("using mqtt entity bus", "broker", brokerURL)

			default:
				bus = memory.NewBus()
				logger.Warn("no backend configured, entity values are process-local")
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			collector := observability.NewCollector(registry)

			machine, err := cfg.Build(bus, timers,
				arbor.WithLogger(logger),
				arbor.WithHooks(collector.Hooks()))
			if err != nil {
				return err
			}
			logger.Info("machine started",
				"name", cfg.Name, "state", machine.Current())

			if listen != "" {
				api := arborhttp.NewServer(machine, bus,
					arborhttp.WithLogger(logger),
					arborhttp.WithDelivery(loop.Post),
					arborhttp.WithMetrics(registry))
				server := &http.Server{Addr: listen, Handler: api.Handler()}
				go func() {
					logger.Info("http listening", "addr", listen)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http server", "err", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(
						context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Shutdown(shutdownCtx)
				}()
			}

			err = loop.Run(ctx)
			if errors.Is(err, context.Canceled) {
				logger.Info("shutting down")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "machine definition file (required)")
	cmd.Flags().StringVar(&listen, "listen", ":8080", "http listen address, empty to disable")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for the entity bus")
	cmd.Flags().StringVar(&brokerURL, "broker", "", "mqtt broker url for the entity bus")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsMutuallyExclusive("redis", "broker")
	return cmd
}
