package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pavanmanishd/flexrec"
)

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Churn records and expose allocator metrics over HTTP",
		Long: `Continuously construct and free records, keeping a bounded number alive,
and serve the allocator metrics at /metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			perSec, _ := cmd.Flags().GetFloat64("rate")
			maxLength, _ := cmd.Flags().GetUint16("max-length")
			keep, _ := cmd.Flags().GetInt("keep")
			if perSec <= 0 {
				return fmt.Errorf("rate must be positive, got %g", perSec)
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			tracker := flexrec.NewTrackingAllocator(a.allocator)
			handler, err := metricsHandler(tracker, a.config.Metrics.Namespace)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("serving metrics", zap.String("addr", listen))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				limiter := rate.NewLimiter(rate.Limit(perSec), 1)
				return churn(ctx, tracker, a.logger, limiter, maxLength, keep)
			})
			return g.Wait()
		},
	}

	serveCmd.Flags().String("listen", ":2112", "Address to serve /metrics on")
	serveCmd.Flags().Float64("rate", 100, "Records constructed per second")
	serveCmd.Flags().Uint16("max-length", 256, "Largest record length to construct")
	serveCmd.Flags().Int("keep", 64, "Number of records kept alive at once")
	return serveCmd
}

func metricsHandler(tracker *flexrec.TrackingAllocator, namespace string) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(flexrec.NewCollector(tracker, namespace)); err != nil {
		return nil, fmt.Errorf("failed to register collector: %w", err)
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// churn constructs records at the limiter's pace, freeing the oldest once
// keep records are alive. It returns nil when ctx is done, after freeing every
// record it still holds.
func churn(ctx context.Context, tracker *flexrec.TrackingAllocator, logger *zap.Logger, limiter *rate.Limiter, maxLength uint16, keep int) error {
	live := make([]*flexrec.Record[flexrec.FieldValue], 0, max(keep, 0)+1)
	defer func() {
		for _, rec := range live {
			rec.Free()
		}
		logger.Info("churn stopped", zap.Int("outstanding", tracker.Outstanding()))
	}()

	var id uint32
	for {
		if err := limiter.Wait(ctx); err != nil {
			// canceled, or the deadline falls before the next token
			return nil
		}

		length := uint16(rand.IntN(int(maxLength) + 1))
		rec, err := flexrec.New(id, length, func(i uint16) flexrec.FieldValue {
			return flexrec.LongValue(int64(id)<<16 | int64(i))
		}, flexrec.WithAllocator(tracker), flexrec.WithLogger(logger))
		if err != nil {
			return err
		}
		id++

		live = append(live, rec)
		if len(live) > keep {
			live[0].Free()
			live = live[1:]
		}
	}
}
