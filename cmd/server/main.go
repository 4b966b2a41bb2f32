package main

import (
	"fmt"
	"os"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"worldstats/internal/api"
	"worldstats/internal/config"
	"worldstats/internal/engine"
	"worldstats/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Serves the happiness dataset and its per-chart projections",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./worldstats.yaml)")
	rootCmd.Flags().String("addr", ":5000", "listen address")
	rootCmd.Flags().String("data", "data.csv", "CSV dataset path")
	rootCmd.Flags().Float64("rate-limit", 50, "requests per second per client (0=unlimited)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "text", "Log format (text, json)")

	_ = viper.BindPFlag("server.addr", rootCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.data", rootCmd.Flags().Lookup("data"))
	_ = viper.BindPFlag("server.rate_limit", rootCmd.Flags().Lookup("rate-limit"))
	_ = viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.Flags().Lookup("log-format"))
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

	// 1. Initialize Echo (Starts Instantly)
	e := api.NewEcho(cfg.Server.RateLimit)
	e.Logger.SetLevel(glog.INFO)

	// 2. Initialize Handler with NIL data
	// The API is now "live" but will return 503 (Loading) if hit
	h := api.NewHandler(nil)
	h.RegisterRoutes(e)

	// 3. Launch ETL in Background
	go func() {
		log.Info("BACKGROUND: Starting ETL Pipeline...", zap.String("path", cfg.Server.Data))
		t0 := time.Now()

		store, err := engine.LoadColumnar(cfg.Server.Data)
		if err != nil {
			log.Fatal("BACKGROUND: ETL failed", zap.Error(err))
		}
		h.SetData(store.Aggregate())

		log.Info("BACKGROUND: ETL Complete. API is fully ready.",
			zap.Int("rows", store.Len()),
			zap.Int("columns", len(store.Columns)),
			zap.Duration("took", time.Since(t0)))
	}()

	// 4. Start Server (This happens immediately)
	log.Info("Server ready (Data loading in background...)", zap.String("addr", cfg.Server.Addr))
	return e.Start(cfg.Server.Addr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
