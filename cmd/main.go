package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gomodule/redigo/redis"
	_ "github.com/jackc/pgx/v4/stdlib"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blog/pkg/config"
	"blog/pkg/logger"
	"blog/pkg/post"
	"blog/pkg/sessions"
	"blog/pkg/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("main:", err)
	}

	zapLogger := logger.Run(cfg.LogLevel)
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		zapLogger.Fatalf("main: unable to open PostgreSQL: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		zapLogger.Fatalf("main: unable to reach PostgreSQL: %v", err)
	}
	if err := user.Migrate(db); err != nil {
		zapLogger.Fatalf("main: %v", err)
	}

	redisPool := &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(cfg.RedisAddr)
		},
	}
	defer redisPool.Close()
	if err := pingRedis(redisPool); err != nil {
		zapLogger.Fatalf("main: can't connect to Redis: %v", err)
	}

	mongoCtx, mongoCtxCancel := context.WithTimeout(ctx, 10*time.Second)
	defer mongoCtxCancel()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		zapLogger.Fatalf("main: can't connect to MongoDB: %v", err)
	}
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		zapLogger.Fatalf("main: unable to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			zapLogger.Errorf("main: failed disconnecting from MongoDB: %v", err)
		}
	}()

	postsRepo := post.NewPostRepo(mongoClient.Database(cfg.MongoDB).Collection("posts"))
	if err := postsRepo.EnsureIndexes(mongoCtx); err != nil {
		zapLogger.Fatalf("main: %v", err)
	}
	usersRepo := user.NewUserRepo(db)
	sessionManager := sessions.NewSessionManager(cfg.SecretKey, redisPool)

	// Generate fake content to have better UI experience
	if cfg.Seed {
		if err := seed(ctx, usersRepo, postsRepo); err != nil {
			zapLogger.Fatalf("main: %v", err)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(ctx, cfg, zapLogger, usersRepo, postsRepo, sessionManager),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Infof("serving at http://localhost:%s/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatalf("main: server error: %v", err)
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Errorf("main: shutdown error: %v", err)
	}
}

func pingRedis(pool *redis.Pool) error {
	conn := pool.Get()
	defer conn.Close()
	_, err := conn.Do("PING")
	return err
}
