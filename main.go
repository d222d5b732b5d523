package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	database "github.com/JBFaner/DisasterTraining-sub003/internals/databases"
	simScheduler "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/scheduler"
	authScheduler "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/scheduler"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtime"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/mail"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/storage"
	middlewares "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares"
	"github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/logger"
	routes "github.com/JBFaner/DisasterTraining-sub003/internals/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/seeds"
)

var rootCmd = &cobra.Command{
	Use:           "drillhub",
	Short:         "LGU disaster-preparedness training and simulation backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c := configs.LoadEnv()
		if _, err := configs.InitLogger(c); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if err := database.ConnectDB(c); err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		database.TunePool(database.DB, c.DBDriver)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		database.Close(database.DB)
		_ = zap.L().Sync()
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and scheduled jobs",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.AutoMigrate(database.DB)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default barangays, staff accounts and resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.AutoMigrate(database.DB); err != nil {
			return err
		}
		_, err := seeds.RunAllSeeds(database.DB)
		return err
	},
}

var migrateOnServe bool

func init() {
	serveCmd.Flags().BoolVar(&migrateOnServe, "migrate", false, "run migrations before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	c := configs.Conf
	db := database.DB

	if migrateOnServe {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}
	if err := database.Ping(db); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	zap.L().Info("timezone loaded", zap.String("tz", dbtime.Location().String()))

	sender, err := mail.NewFromConfig(c)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	mail.SetDefault(sender)

	store, err := storage.NewFromConfig(c)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	storage.SetDefault(store)

	app := fiber.New(fiber.Config{
		AppName:               c.AppName,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          helper.ErrorHandler,
		DisableStartupMessage: true,
		BodyLimit:             10 * 1024 * 1024,
		ProxyHeader:           fiber.HeaderXForwardedFor,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           90 * time.Second,
	})

	app.Use(middlewares.RecoveryMiddleware())
	app.Use(logger.RequestID())
	app.Use(logger.LoggerMiddleware())
	app.Use(middlewares.CorsMiddleware())
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
	app.Use(middlewares.GlobalRateLimiter())

	routes.SetupRoutes(app, db)

	var sched *cron.Cron
	if c.CronEnabled {
		sched = cron.New(cron.WithLocation(dbtime.Location()))
		if err := authScheduler.RegisterCleanupJobs(sched, db); err != nil {
			return fmt.Errorf("register auth jobs: %w", err)
		}
		if err := simScheduler.RegisterJobs(sched, db); err != nil {
			return fmt.Errorf("register simulation jobs: %w", err)
		}
		sched.Start()
		zap.L().Info("scheduler started", zap.Int("jobs", len(sched.Entries())))
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("listening", zap.String("port", c.Port), zap.String("env", c.AppEnv))
		errCh <- app.Listen("0.0.0.0:" + c.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		<-sched.Stop().Done()
	}
	return app.ShutdownWithContext(ctx)
}
