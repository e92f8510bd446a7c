package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripbook/internal/cache"
	intconfig "tripbook/internal/config"
	intdb "tripbook/internal/db"
	"tripbook/internal/gateway"
	router "tripbook/internal/http"
	h "tripbook/internal/http/handlers"
	"tripbook/internal/queue"
	"tripbook/internal/repositories"
	"tripbook/internal/services"
	"tripbook/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	logger, err := utils.InitLogger(env.IsProduction())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := intconfig.ConnectDB(env.DBDSN, env.DBMaxOpenConns)
	if err != nil {
		logger.Fatal("gagal koneksi database", zap.Error(err))
	}
	defer intconfig.CloseDB()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if err := intdb.EnsureSchema(bootCtx, db); err != nil {
		cancelBoot()
		logger.Fatal("gagal menyiapkan schema", zap.Error(err))
	}

	deps := h.Deps{
		DB:       db,
		Verifier: services.NewSignatureVerifier(env.WebhookSecrets),
		Auth: services.AuthService{
			Secret:            []byte(env.JWTSecret),
			AdminEmail:        env.AdminEmail,
			AdminPasswordHash: env.AdminPasswordHash,
		},
		Logger: logger,
	}
	if env.OpenPixAppID != "" {
		deps.Gateway = gateway.NewClient(env.OpenPixAppID, env.OpenPixSandbox, logger)
	} else {
		logger.Warn("OPENPIX_APP_ID kosong; pembuatan pembayaran dinonaktifkan")
	}
	if !deps.Verifier.Enabled() {
		logger.Warn("webhook secrets kosong; signature webhook tidak diverifikasi")
	}

	var (
		enqueuer *queue.Enqueuer
		worker   *asynq.Server
	)
	if env.RedisEnabled() {
		rdb, err := cache.NewRedisClient(bootCtx, env.RedisAddr, env.RedisPassword, env.RedisCacheDB)
		if err != nil {
			logger.Warn("redis tidak tersedia; cache status dinonaktifkan", zap.Error(err))
		} else {
			defer rdb.Close()
			deps.Cache = cache.NewStatusCache(rdb)
		}

		qopt := asynq.RedisClientOpt{Addr: env.RedisAddr, Password: env.RedisPassword, DB: env.RedisQueueDB}
		enqueuer = queue.NewEnqueuer(qopt)
		defer enqueuer.Close()
		deps.Queue = enqueuer

		syncer := services.ReconciliationService{
			Payments:   repositories.PaymentRepository{DB: db},
			Passengers: repositories.PassengerRepository{DB: db},
			Cache:      deps.Cache,
			Logger:     logger,
			RequestID:  "worker",
		}
		var mux *asynq.ServeMux
		worker, mux = queue.NewWorker(qopt, syncer, logger)
		if err := worker.Start(mux); err != nil {
			logger.Error("worker gagal dijalankan", zap.Error(err))
			worker = nil
		}
	} else {
		logger.Warn("REDIS_ADDR kosong; cache dan antrean sinkronisasi dinonaktifkan")
	}
	cancelBoot()

	h.SetDeps(deps)
	r := router.NewRouter(env, deps.Auth)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server berjalan", zap.String("addr", env.AppAddr), zap.String("env", env.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("gagal menjalankan server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("mematikan server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown server gagal", zap.Error(err))
	}
	if worker != nil {
		worker.Shutdown()
	}

	logger.Info("server berhenti dengan aman")
}
