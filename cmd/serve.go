package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corekv/corekv/internal/kvlog"
	"github.com/corekv/corekv/lib/storage"
	"github.com/corekv/corekv/lib/storage/cacheshard"
	"github.com/corekv/corekv/lib/storage/diskshard"
	"github.com/corekv/corekv/lib/storage/router"
	"github.com/corekv/corekv/lib/storage/tiered"
	httpadaptor "github.com/corekv/corekv/rpc/http"
)

var log = kvlog.Get("cmd")

// ServeCmd starts the corekv server. Configuration is read from flags,
// COREKV_-prefixed environment variables and an optional .env file.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the corekv server",
	Long:    `Start the corekv server. Configuration can be set via command line flags or COREKV_-prefixed environment variables (e.g. COREKV_ENDPOINT=0.0.0.0:10000).`,
	PreRunE: bindFlags,
	RunE:    runServe,
}

func init() {
	cobra.OnInitialize(initConfig)

	ServeCmd.Flags().String("endpoint", "0.0.0.0:10000", "The address on which the HTTP API will listen")
	ServeCmd.Flags().Int("shards", runtime.NumCPU(), "Number of shards to partition the key space across")
	ServeCmd.Flags().Int("cache-capacity", 20, "Maximum number of records held by each shard's cache tier")
	ServeCmd.Flags().String("data-dir", ".", "Directory holding each shard's on-disk log file")
	ServeCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("corekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runServe(cmd *cobra.Command, args []string) error {
	kvlog.SetLevel(viper.GetString("log-level"))

	shardCount := viper.GetInt("shards")
	if shardCount < 1 {
		shardCount = 1
	}
	cacheCapacity := viper.GetInt("cache-capacity")
	dataDir := viper.GetString("data-dir")
	endpoint := viper.GetString("endpoint")

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	shards := make([]storage.Storage, shardCount)
	for i := 0; i < shardCount; i++ {
		logPath := filepath.Join(dataDir, fmt.Sprintf("kvdb_data.%03d.bin", i))
		shards[i] = tiered.New(
			cacheshard.New(cacheCapacity),
			diskshard.New(logPath),
		)
	}

	r := router.New(shards, 128)
	if err := r.Start(); err != nil {
		return fmt.Errorf("starting router: %w", err)
	}

	srv := httpadaptor.New(endpoint, r, shardCount)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-stop:
		log.Infof("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warningf("http shutdown error: %v", err)
	}

	if err := r.Stop(); err != nil {
		log.Warningf("router shutdown error: %v", err)
	}
	log.Infof("corekv stopped")
	return nil
}
