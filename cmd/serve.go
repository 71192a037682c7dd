package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "hunter/handler/http"
	"hunter/src/core/docstore"
	"hunter/src/infrastructure/job"
	"hunter/src/log"
	"hunter/src/metrics"
	"hunter/src/storage/postgres/casectrl"
	"hunter/src/storage/postgres/resultctrl"
	"hunter/src/storage/postgres/runctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation HTTP server",
	Long:  `The serve command starts an HTTP server exposing evaluation runs, documents and Prometheus metrics.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) {
	metrics.Init()

	db, err := openDatabase()
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}
	if err := db.AutoMigrate(&runctrl.EvaluationRun{}, &casectrl.TestCaseRecord{}, &resultctrl.ScoreResultRecord{}, &job.Job{}); err != nil {
		log.Error(err, "Failed to migrate database schema")
		return
	}

	runService, err := buildRunService(db)
	if err != nil {
		log.Error(err, "Failed to build evaluation service")
		return
	}

	docStore, err := docstore.NewMemoryStore()
	if err != nil {
		log.Error(err, "Failed to create document store")
		return
	}

	// Async submission needs the AMQP queue; without it the API still
	// serves synchronous runs.
	var jobService *job.JobService
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Info("AMQP unavailable, async evaluations disabled", "error", err.Error())
	} else {
		defer amqpPublisher.Close()
		jobRepo := job.NewPostgresJobRepository(db)
		jobService = job.NewJobService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false), runService)
	}

	handler := httpHdlr.NewHandler(runService, docStore, jobService)

	// Setup gin router
	r := gin.Default()
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()
	log.Info("server listening", "port", viper.GetString("server.port"))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
