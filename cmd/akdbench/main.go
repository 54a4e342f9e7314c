package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/akdstore/pkg/cache"
	"github.com/cuemby/akdstore/pkg/log"
	"github.com/cuemby/akdstore/pkg/manager"
	"github.com/cuemby/akdstore/pkg/metrics"
	"github.com/cuemby/akdstore/pkg/record"
	"github.com/cuemby/akdstore/pkg/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "akdbench",
	Short:   "Exercise and inspect an append-only key-directory storage mediator",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("akdbench version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./akdbench-data", "BoltDB data directory")
	rootCmd.PersistentFlags().Bool("in-memory", false, "Use an in-memory store instead of BoltDB")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the object cache")
	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides --data-dir/--in-memory/--no-cache)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(setMetadataCmd)
	rootCmd.AddCommand(getMetadataCmd)
	rootCmd.AddCommand(setUserCmd)
	rootCmd.AddCommand(getUserCmd)
	rootCmd.AddCommand(tombstoneCmd)
	rootCmd.AddCommand(txnDemoCmd)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func openManager(cmd *cobra.Command) (*manager.Manager, func(), error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	inMemory, _ := cmd.Flags().GetBool("in-memory")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	configPath, _ := cmd.Flags().GetString("config")

	cfg := manager.Config{MetricsEnabled: true}
	if !noCache {
		cacheCfg := defaultCacheConfig()
		cfg.Cache = &cacheCfg
	}

	if configPath != "" {
		fc, err := loadConfigFile(configPath)
		if err != nil {
			return nil, nil, err
		}
		dataDir, inMemory = fc.DataDir, fc.InMemory
		cfg = fc.Manager
		if cfg.Cache != nil && *cfg.Cache == (cache.Config{}) {
			cacheCfg := defaultCacheConfig()
			cfg.Cache = &cacheCfg
		}
	}

	var db storage.Database
	closer := func() {}

	if inMemory {
		db = storage.NewMemoryStore()
	} else {
		if dataDir == "" {
			dataDir = "./akdbench-data"
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		bolt, err := storage.NewBoltStore(dataDir)
		if err != nil {
			return nil, nil, err
		}
		db = bolt
		closer = func() { bolt.Close() }
	}

	return manager.New(db, cfg), closer, nil
}

var setMetadataCmd = &cobra.Command{
	Use:   "set-metadata <directory> <epoch>",
	Short: "Write a directory's commit pointer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		var epoch uint64
		if _, err := fmt.Sscanf(args[1], "%d", &epoch); err != nil {
			return fmt.Errorf("invalid epoch %q: %w", args[1], err)
		}

		ctx := context.Background()
		if err := mgr.Set(ctx, &record.DirectoryMetadata{Directory: args[0], LatestEpoch: epoch}); err != nil {
			return err
		}
		mgr.LogMetrics(zerolog.InfoLevel)
		return nil
	},
}

var getMetadataCmd = &cobra.Command{
	Use:   "get-metadata <directory>",
	Short: "Read a directory's commit pointer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		rec, err := mgr.Get(context.Background(), record.DirectoryMetadataKey(args[0]))
		if err != nil {
			return err
		}
		meta := rec.(*record.DirectoryMetadata)
		fmt.Printf("directory=%s latest_epoch=%d\n", meta.Directory, meta.LatestEpoch)
		return nil
	},
}

var setUserCmd = &cobra.Command{
	Use:   "set-user <username> <epoch> <version> <value>",
	Short: "Write a user's value state at a given epoch/version",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		var epoch, version uint64
		if _, err := fmt.Sscanf(args[1], "%d", &epoch); err != nil {
			return fmt.Errorf("invalid epoch %q: %w", args[1], err)
		}
		if _, err := fmt.Sscanf(args[2], "%d", &version); err != nil {
			return fmt.Errorf("invalid version %q: %w", args[2], err)
		}

		vs := &record.ValueState{
			Username:     record.Label(args[0]),
			Epoch:        epoch,
			Version:      version,
			PlaintextVal: record.Value(args[3]),
		}
		if err := mgr.Set(context.Background(), vs); err != nil {
			return err
		}
		mgr.LogMetrics(zerolog.InfoLevel)
		return nil
	},
}

var getUserCmd = &cobra.Command{
	Use:   "get-user <username>",
	Short: "Resolve a user's value state by retrieval flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flag, err := flagFromCmd(cmd)
		if err != nil {
			return err
		}

		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		got, err := mgr.GetUserState(context.Background(), record.Label(args[0]), flag)
		if err != nil {
			return err
		}
		fmt.Printf("username=%s epoch=%d version=%d value=%q\n", got.Username, got.Epoch, got.Version, got.PlaintextVal)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{getUserCmd} {
		cmd.Flags().String("select", "max", "Selection: max, min, epoch=N, version=N")
	}
}

func flagFromCmd(cmd *cobra.Command) (record.RetrievalFlag, error) {
	sel, _ := cmd.Flags().GetString("select")
	switch {
	case sel == "max":
		return record.MaxEpoch(), nil
	case sel == "min":
		return record.MinEpoch(), nil
	default:
		var n uint64
		if _, err := fmt.Sscanf(sel, "epoch=%d", &n); err == nil {
			return record.SpecificEpoch(n), nil
		}
		if _, err := fmt.Sscanf(sel, "version=%d", &n); err == nil {
			return record.SpecificVersion(n), nil
		}
		return record.RetrievalFlag{}, fmt.Errorf("unrecognized --select value %q", sel)
	}
}

var tombstoneCmd = &cobra.Command{
	Use:   "tombstone <username> <epoch>",
	Short: "Tombstone a user's value state at a given epoch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		var epoch uint64
		if _, err := fmt.Sscanf(args[1], "%d", &epoch); err != nil {
			return fmt.Errorf("invalid epoch %q: %w", args[1], err)
		}

		key := record.ValueStateKey{Username: record.Label(args[0]), Epoch: epoch}
		if err := mgr.TombstoneValueStates(context.Background(), []record.ValueStateKey{key}); err != nil {
			return err
		}
		mgr.LogMetrics(zerolog.InfoLevel)
		return nil
	},
}

var txnDemoCmd = &cobra.Command{
	Use:   "txn-demo <directory>",
	Short: "Stage a tree node plus a trailing DirectoryMetadata in one transaction and commit it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		ctx := context.Background()
		directory := args[0]
		label := uuid.NewString()

		mgr.BeginTransaction()
		if err := mgr.Set(ctx, &record.TreeNode{
			Directory: directory,
			Label:     record.TreeLabel{Bits: []byte(label[:8]), Len: 64},
		}); err != nil {
			mgr.RollbackTransaction()
			return err
		}
		if err := mgr.Set(ctx, &record.DirectoryMetadata{Directory: directory, LatestEpoch: 1}); err != nil {
			mgr.RollbackTransaction()
			return err
		}
		if err := mgr.CommitTransaction(ctx); err != nil {
			return err
		}

		fmt.Printf("committed transaction for directory=%s\n", directory)
		mgr.LogMetrics(zerolog.InfoLevel)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP endpoint exposing /metrics, /health, /ready, and /live for a live mediator",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpAddr, _ := cmd.Flags().GetString("http-addr")

		mgr, closer, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closer()

		metrics.SetVersion(Version)
		metrics.RequireForReadiness("store")
		metrics.ReportHealth("store", true, "")
		collector := metrics.NewCollector(mgr)
		collector.Start()
		defer collector.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/live", metrics.LivenessHandler())

		server := &http.Server{Addr: httpAddr, Handler: mux}
		go func() {
			log.Info(fmt.Sprintf("serving metrics on %s", httpAddr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("http-addr", ":9090", "HTTP listen address")
}
