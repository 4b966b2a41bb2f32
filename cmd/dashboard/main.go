package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"worldstats/internal/api"
	"worldstats/internal/client"
	"worldstats/internal/config"
	"worldstats/internal/dashboard"
	"worldstats/internal/geo"
	"worldstats/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Runs one coordinated dashboard session against the data backend",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./worldstats.yaml)")
	rootCmd.Flags().String("addr", ":8080", "listen address")
	rootCmd.Flags().String("backend", "http://localhost:5000", "data backend base URL")
	rootCmd.Flags().String("geo", "countries.geojson", "country boundaries GeoJSON path")
	rootCmd.Flags().Bool("sequenced", true, "discard superseded fetch responses")
	rootCmd.Flags().Duration("startup-timeout", 30*time.Second, "how long to wait for the backend")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "text", "Log format (text, json)")

	_ = viper.BindPFlag("dashboard.addr", rootCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("dashboard.backend_url", rootCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("dashboard.geo", rootCmd.Flags().Lookup("geo"))
	_ = viper.BindPFlag("dashboard.sequenced", rootCmd.Flags().Lookup("sequenced"))
	_ = viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.Flags().Lookup("log-format"))
}

// openSession retries discovery while the backend is still loading.
func openSession(ctx context.Context, cl *client.Client, bounds *geo.Boundaries, opts dashboard.Options, timeout time.Duration) (*dashboard.Session, error) {
	deadline := time.Now().Add(timeout)
	for {
		s, err := dashboard.New(ctx, cl, bounds, opts)
		var fe *client.FetchError
		if err == nil || !errors.As(err, &fe) || fe.Status != http.StatusServiceUnavailable || time.Now().After(deadline) {
			return s, err
		}
		opts.Log.Info("backend still loading, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Boundaries
	bounds, err := geo.Load(cfg.Dashboard.Geo)
	if err != nil {
		return fmt.Errorf("load boundaries: %w", err)
	}
	log.Info("boundaries loaded", zap.Int("countries", len(bounds.Countries)))

	// 2. Session
	cl := client.New(cfg.Dashboard.BackendURL, &http.Client{Timeout: 30 * time.Second}, log)
	timeout, _ := cmd.Flags().GetDuration("startup-timeout")
	s, err := openSession(ctx, cl, bounds, dashboard.Options{Sequenced: cfg.Dashboard.Sequenced, Log: log}, timeout)
	if err != nil {
		return err
	}

	// 3. HTTP surface
	e := api.NewEcho(0)
	e.Logger.SetLevel(glog.INFO)
	dashboard.NewHandler(s).RegisterRoutes(e)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	g.Go(func() error {
		log.Info("dashboard ready", zap.String("addr", cfg.Dashboard.Addr), zap.String("backend", cfg.Dashboard.BackendURL))
		if err := e.Start(cfg.Dashboard.Addr); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Close()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdown)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("dashboard stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
