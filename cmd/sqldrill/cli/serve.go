package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqldrill/sqldrill/internal/engine"
	"github.com/sqldrill/sqldrill/internal/engine/mysql"
	"github.com/sqldrill/sqldrill/internal/engine/postgres"
	"github.com/sqldrill/sqldrill/internal/engine/sqlite"
	"github.com/sqldrill/sqldrill/internal/server"
	"github.com/sqldrill/sqldrill/internal/service"
	"github.com/sqldrill/sqldrill/internal/store"
	"github.com/sqldrill/sqldrill/internal/telemetry"
	"github.com/sqldrill/sqldrill/internal/validate"
)

const banner = `
           _     _      _ _ _
 ___  __ _| | __| |_ __(_) | |
/ __|/ _' | |/ _' | '__| | | |
\__ \ (_| | | (_| | |  | | | |
|___/\__, |_|\__,_|_|  |_|_|_|
        |_|
`

func newServeCmd(version string) *cobra.Command {
	var (
		port    int
		host    string
		dev     bool
		dataDir string
		seedDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sqldrill grading API server",
		Long:  "Start the HTTP server that serves the exercise catalog and grades attempts against per-session practice databases.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version, host, port, dev, dataDir, seedDir)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for the SQLite store (default: ~/.sqldrill)")
	cmd.Flags().StringVar(&seedDir, "seed-dir", "", "Directory of exercise YAML files to seed on startup")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("content.seed_dir", cmd.Flags().Lookup("seed-dir"))

	return cmd
}

// newEngineRegistry registers the practice-database backends this binary
// supports.
func newEngineRegistry() *engine.Registry {
	registry := engine.NewRegistry()
	registry.RegisterDriver("sqlite", sqlite.New)
	registry.RegisterDriver("postgres", postgres.New)
	registry.RegisterDriver("mysql", mysql.New)
	return registry
}

// practiceConfig builds the engine connection config from viper. The default
// is an embedded in-memory SQLite database per session; deployments backed
// by a hosted engine set practice.driver and practice.dsn.
func practiceConfig() engine.ConnectionConfig {
	driver := viper.GetString("practice.driver")
	if driver == "" {
		driver = "sqlite"
	}
	return engine.ConnectionConfig{
		Driver:     driver,
		DSN:        viper.GetString("practice.dsn"),
		SchemaName: viper.GetString("practice.schema"),
	}
}

func runServe(version, host string, port int, dev bool, dataDir, seedDir string) error {
	fmt.Print(banner)
	fmt.Println()

	// Set up logger
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()

	// 1. Initialize the store (SQLite)
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = home + "/.sqldrill"
	}
	st, err := store.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "path", dataDir)

	// 2. Seed the exercise catalog from content files
	if seedDir == "" {
		seedDir = viper.GetString("content.seed_dir")
	}
	if seedDir != "" {
		exercises, err := store.LoadSeedDir(seedDir)
		if err != nil {
			return fmt.Errorf("load exercise content: %w", err)
		}
		if err := st.SeedExercises(ctx, exercises); err != nil {
			return fmt.Errorf("seed exercises: %w", err)
		}
		logger.Info("exercise catalog seeded", "dir", seedDir, "count", len(exercises))
	}

	// 3. Engine registry and session manager
	registry := newEngineRegistry()
	engCfg := practiceConfig()
	logger.Info("engine registry initialized", "drivers", registry.Drivers(), "practice_driver", engCfg.Driver)

	grader := validate.NewGrader(validate.DefaultPredicates())
	sessions := service.NewSessionManager(registry, engCfg, grader, st, service.Events{}, logger)
	defer sessions.CloseAll()

	// 4. Anonymous usage telemetry (opt-out; nil tracker when disabled)
	tracker := telemetry.New(ctx, st, func() telemetry.Properties {
		exCount, subCount, _ := st.Stats(context.Background())
		return telemetry.Properties{
			Version:     version,
			GoVersion:   runtime.Version(),
			OS:          runtime.GOOS,
			Arch:        runtime.GOARCH,
			Drivers:     registry.Drivers(),
			Exercises:   exCount,
			Submissions: subCount,
		}
	})
	if tracker != nil {
		telemetry.PrintNotice()
		tracker.Start()
		defer tracker.Shutdown()
	}

	// 5. Build and start HTTP server
	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RatePerMinute:   viper.GetInt("server.rate_per_minute"),
	}
	if srvCfg.RatePerMinute == 0 && !dev {
		srvCfg.RatePerMinute = server.DefaultConfig().RatePerMinute
	}

	srv := server.New(srvCfg, st, sessions, logger)

	exercises, err := st.ListExercises(ctx)
	if err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}

	fmt.Printf("→ sqldrill\n")
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ API:        http://%s:%d/api/v1/exercises\n", host, port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	fmt.Printf("→ Exercises:  %d\n", len(exercises))
	fmt.Println()

	return srv.ListenAndServe()
}
