package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/route-beacon/mrt-ingester/internal/config"
	"github.com/route-beacon/mrt-ingester/internal/db"
	mrthttp "github.com/route-beacon/mrt-ingester/internal/http"
	"github.com/route-beacon/mrt-ingester/internal/ingest"
	"github.com/route-beacon/mrt-ingester/internal/kafka"
	"github.com/route-beacon/mrt-ingester/internal/maintenance"
	"github.com/route-beacon/mrt-ingester/internal/metrics"
	"github.com/route-beacon/mrt-ingester/internal/mrt"
	"github.com/route-beacon/mrt-ingester/internal/store"
	"github.com/route-beacon/mrt-ingester/migrations"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		os.Exit(runImport())
	case "migrate":
		runMigrate()
	case "maintenance":
		runMaintenance()
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mrt-ingester <command> [options] [files...]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  import <files...>  Decode MRT dumps (plain, gzip or zstd) and store their RIB entries")
	fmt.Println("  migrate            Run database migrations")
	fmt.Println("  maintenance        Drop partitions outside the retention window")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>    Path to configuration YAML file")
	fmt.Println("  --log-level <lvl>  Override log level (debug, info, warn, error)")
	fmt.Println("  --workers <n>      Override decode.workers")
}

type flags struct {
	configPath string
	logLevel   string
	workers    int
	files      []string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				f.configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				f.logLevel = args[i+1]
				i++
			}
		case "--workers":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil || n < 1 {
					return f, fmt.Errorf("--workers must be a positive integer (got %q)", args[i+1])
				}
				f.workers = n
				i++
			}
		default:
			if strings.HasPrefix(args[i], "--") {
				return f, fmt.Errorf("unknown option: %s", args[i])
			}
			f.files = append(f.files, args[i])
		}
	}
	return f, nil
}

func loadConfig(args []string) (*config.Config, flags, *zap.Logger) {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if f.logLevel != "" {
		cfg.Service.LogLevel = f.logLevel
	}
	if f.workers > 0 {
		cfg.Decode.Workers = f.workers
	}

	logger := initLogger(cfg.Service.LogLevel)
	return cfg, f, logger
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zap.DebugLevel
	case "warn":
		zapLevel = zap.WarnLevel
	case "error":
		zapLevel = zap.ErrorLevel
	default:
		zapLevel = zap.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runImport() int {
	cfg, f, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	if len(f.files) == 0 {
		fmt.Fprintln(os.Stderr, "import: no dump files given")
		return 1
	}

	metrics.Register()

	logger.Info("starting mrt-ingester import",
		zap.String("instance_id", cfg.Service.InstanceID),
		zap.Int("files", len(f.files)),
		zap.Int("workers", cfg.Decode.Workers),
		zap.Bool("postgres", cfg.Postgres.Enabled),
		zap.Bool("kafka", cfg.Kafka.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var (
		sinks    []ingest.Sink
		checkers []mrthttp.Checker
		pool     *pgxpool.Pool
		pm       *maintenance.PartitionManager
	)

	if cfg.Postgres.Enabled {
		var err error
		pool, err = db.NewPool(ctx, cfg.Postgres.DSN, cfg.Service.InstanceID, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		pm, err = maintenance.NewPartitionManager(pool, cfg.Retention.Days, cfg.Retention.Timezone, logger.Named("maintenance"))
		if err != nil {
			logger.Fatal("failed to create partition manager", zap.Error(err))
		}

		sinks = append(sinks, store.NewWriter(pool, logger.Named("store.writer"),
			cfg.Ingest.StoreRawAttributes, cfg.Ingest.StoreRawAttributesCompress))
		checkers = append(checkers, db.Pinger{Pool: pool})
	}

	if cfg.Kafka.Enabled {
		tlsCfg, err := cfg.Kafka.BuildTLSConfig()
		if err != nil {
			logger.Fatal("failed to build TLS config", zap.Error(err))
		}
		producer, err := kafka.NewProducer(
			cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.Topic,
			time.Duration(cfg.Kafka.ProduceTimeoutMs)*time.Millisecond,
			tlsCfg, cfg.Kafka.BuildSASLMechanism(), logger.Named("kafka.producer"),
		)
		if err != nil {
			logger.Fatal("failed to create kafka producer", zap.Error(err))
		}
		defer producer.Close()

		sinks = append(sinks, producer)
		checkers = append(checkers, producer)
	}

	if len(sinks) == 0 {
		logger.Warn("no sink enabled, dumps are decoded and counted only")
	}

	var httpServer *mrthttp.Server
	if cfg.Service.HTTPListen != "" {
		httpServer = mrthttp.NewServer(cfg.Service.HTTPListen, checkers, logger.Named("http"))
		if err := httpServer.Start(); err != nil {
			logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}

	pipeline := ingest.NewPipeline(sinks, cfg.Ingest.BatchSize, cfg.Decode.Workers,
		cfg.Decode.ChunkSize, cfg.Decode.DecodeAttributes, logger.Named("ingest.pipeline"))

	failed := 0
	for _, path := range f.files {
		if ctx.Err() != nil {
			break
		}
		if err := importFile(ctx, path, pipeline, pool, pm, logger); err != nil {
			failed++
			logger.Error("import failed", zap.String("path", path), zap.Error(err))
		}
	}

	if httpServer != nil {
		shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		cancel()
	}

	if ctx.Err() != nil {
		logger.Warn("import interrupted")
		return 130
	}
	if failed > 0 {
		logger.Error("mrt-ingester finished with failures", zap.Int("failed", failed), zap.Int("files", len(f.files)))
		return 1
	}
	logger.Info("mrt-ingester import complete", zap.Int("files", len(f.files)))
	return 0
}

// importFile runs one dump through the pipeline. A dump that ends inside a
// record header still has its earlier entries stored, but counts as failed.
func importFile(ctx context.Context, path string, pipeline *ingest.Pipeline, pool *pgxpool.Pool, pm *maintenance.PartitionManager, logger *zap.Logger) error {
	started := time.Now()

	r, err := mrt.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if pm != nil {
		if err := pm.EnsureDays(ctx, ingest.RecordDays(r, pm.Location())); err != nil {
			return fmt.Errorf("ensuring partitions: %w", err)
		}
	}

	stats, runErr := pipeline.Run(ctx, r)

	if pool != nil && !errors.Is(runErr, context.Canceled) {
		run := store.DumpRun{
			Source:     filepath.Base(path),
			Path:       path,
			SizeBytes:  r.Size(),
			Stats:      stats,
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		if err := store.UpsertDump(ctx, pool, run); err != nil {
			logger.Warn("failed to record dump", zap.String("path", path), zap.Error(err))
		}
	}

	logger.Info("dump imported",
		zap.String("path", path),
		zap.Int("bytes", r.Size()),
		zap.Int64("records", stats.Records),
		zap.Int64("entries", stats.Entries),
		zap.Int64("opaque", stats.Opaque),
		zap.Int64("record_errors", stats.RecordErrors),
		zap.Int64("warnings", stats.Warnings),
		zap.Any("written", stats.Written),
		zap.Bool("faulted", stats.Faulted),
		zap.Duration("took", time.Since(started)),
	)
	return runErr
}

func runMigrate() {
	cfg, _, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	logger.Info("running migrations",
		zap.String("dsn", redactDSN(cfg.Postgres.DSN)),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Service.InstanceID, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations complete")
}

func runMaintenance() {
	cfg, _, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	logger.Info("running partition maintenance",
		zap.Int("retention_days", cfg.Retention.Days),
		zap.String("timezone", cfg.Retention.Timezone),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Service.InstanceID, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	pm, err := maintenance.NewPartitionManager(pool, cfg.Retention.Days, cfg.Retention.Timezone, logger)
	if err != nil {
		logger.Fatal("failed to create partition manager", zap.Error(err))
	}
	if err := pm.Run(ctx); err != nil {
		logger.Fatal("maintenance failed", zap.Error(err))
	}

	logger.Info("partition maintenance complete")
}

var dsnPassword = regexp.MustCompile(`password\s*=\s*\S+`)

func redactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		// keyword=value format, redact the password=... portion
		return dsnPassword.ReplaceAllString(dsn, "password=***")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
