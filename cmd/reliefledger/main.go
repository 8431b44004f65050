package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"

	allocationapp "github.com/wyfcoding/reliefledger/internal/allocation/application"
	allocationdomain "github.com/wyfcoding/reliefledger/internal/allocation/domain"
	allocationmysql "github.com/wyfcoding/reliefledger/internal/allocation/infrastructure/persistence/mysql"
	allocationhttp "github.com/wyfcoding/reliefledger/internal/allocation/interfaces/http"
	auditapp "github.com/wyfcoding/reliefledger/internal/audit/application"
	auditdomain "github.com/wyfcoding/reliefledger/internal/audit/domain"
	auditmysql "github.com/wyfcoding/reliefledger/internal/audit/infrastructure/persistence/mysql"
	audithttp "github.com/wyfcoding/reliefledger/internal/audit/interfaces/http"
	financeapp "github.com/wyfcoding/reliefledger/internal/finance/application"
	financedomain "github.com/wyfcoding/reliefledger/internal/finance/domain"
	financemysql "github.com/wyfcoding/reliefledger/internal/finance/infrastructure/persistence/mysql"
	financehttp "github.com/wyfcoding/reliefledger/internal/finance/interfaces/http"
	fundapp "github.com/wyfcoding/reliefledger/internal/fund/application"
	funddomain "github.com/wyfcoding/reliefledger/internal/fund/domain"
	fundmessaging "github.com/wyfcoding/reliefledger/internal/fund/infrastructure/messaging"
	fundmysql "github.com/wyfcoding/reliefledger/internal/fund/infrastructure/persistence/mysql"
	fundconsumer "github.com/wyfcoding/reliefledger/internal/fund/interfaces/consumer"
	fundhttp "github.com/wyfcoding/reliefledger/internal/fund/interfaces/http"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

var configPath = flag.String("config", "configs/reliefledger/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logCfg := &logging.Config{
		Service:    cfg.Server.Name,
		Module:     "reliefledger",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHTTP(cfg.Metrics.Port)
	}

	// 4. Database
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	rawDB := db.RawDB()

	if cfg.Server.Environment == "dev" {
		if err := rawDB.AutoMigrate(
			&auditdomain.Entry{},
			&allocationdomain.Assessment{},
			&allocationdomain.AllocationRequest{},
			&allocationdomain.AllocationLine{},
			&allocationdomain.AllocationPlan{},
			&allocationdomain.PlanItem{},
			&allocationdomain.ProcurementLine{},
			&financedomain.BudgetAllocation{},
			&financedomain.Expense{},
			&funddomain.DisasterCostProfile{},
			&funddomain.NeedCostProfile{},
			&funddomain.NeedCost{},
			&funddomain.HousingCostProfile{},
			&funddomain.IncidentImpact{},
			&funddomain.AnnualBudget{},
			&funddomain.DisasterBudgetEnvelope{},
			&funddomain.IncidentFund{},
			&funddomain.IncidentExpenditure{},
			&funddomain.BudgetAdjustmentRequest{},
			&funddomain.AdjustmentVote{},
			&funddomain.AdjustmentLog{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	forecastNotifier := fundmessaging.NewKafkaForecastNotifier(kafkaProducer, funddomain.ForecastRefreshEventType)

	// 6. Repositories
	auditRepo := auditmysql.NewEntryRepository(rawDB)
	assessmentRepo := allocationmysql.NewAssessmentRepository(rawDB)
	requestRepo := allocationmysql.NewRequestRepository(rawDB)
	planRepo := allocationmysql.NewPlanRepository(rawDB)
	budgetRepo := financemysql.NewBudgetRepository(rawDB)
	expenseRepo := financemysql.NewExpenseRepository(rawDB)
	fundRepo := fundmysql.NewFundRepository(rawDB)
	envelopeRepo := fundmysql.NewEnvelopeRepository(rawDB)
	annualRepo := fundmysql.NewAnnualBudgetRepository(rawDB)
	expenditureRepo := fundmysql.NewExpenditureRepository(rawDB)
	adjustmentRepo := fundmysql.NewAdjustmentRepository(rawDB)
	profileRepo := fundmysql.NewProfileRepository(rawDB)

	// 7. Application services
	auditSvc := auditapp.NewService(auditRepo)
	allocationSvc := allocationapp.NewService(assessmentRepo, requestRepo, planRepo, auditSvc, rawDB)
	budgetSvc := financeapp.NewBudgetService(budgetRepo, auditSvc, rawDB)
	expenseSvc := financeapp.NewExpenseService(expenseRepo, budgetRepo, auditSvc, rawDB)
	fundSvc := fundapp.NewService(
		fundRepo, envelopeRepo, annualRepo, expenditureRepo, adjustmentRepo, profileRepo,
		auditSvc, forecastNotifier, rawDB)

	// 8. Forecast consumers
	forecastHandler := fundconsumer.NewForecastHandler(fundSvc, logger.Logger)
	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	forecastTopics := []string{funddomain.ForecastRefreshEventType, funddomain.ForecastRiskEventType}
	for _, topic := range forecastTopics {
		consumerCfg := cfg.MessageQueue.Kafka
		consumerCfg.Topic = topic
		if consumerCfg.GroupID == "" {
			consumerCfg.GroupID = "reliefledger-forecast-group"
		}
		consumer := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)
		consumer.Start(consumerCtx, 3, forecastHandler.Handle)
	}

	// 9. HTTP
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/sys/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "UP",
			"service":   cfg.Server.Name,
			"timestamp": time.Now().Unix(),
		})
	})

	api := r.Group("/api/v1", actor.Middleware())
	allocationhttp.NewHandler(allocationSvc, logger.Logger).RegisterRoutes(api)
	financehttp.NewHandler(budgetSvc, expenseSvc, logger.Logger).RegisterRoutes(api)
	fundhttp.NewHandler(fundSvc, logger.Logger).RegisterRoutes(api)
	audithttp.NewHandler(auditSvc, logger.Logger).RegisterRoutes(api)

	// 10. Start
	g, ctx := errgroup.WithContext(context.Background())

	addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: r}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		stopConsumers()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
