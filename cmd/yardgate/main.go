package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/trailerops/yardgate/internal/auth"
	"github.com/trailerops/yardgate/internal/config"
	"github.com/trailerops/yardgate/internal/events"
	"github.com/trailerops/yardgate/internal/handlers"
	"github.com/trailerops/yardgate/internal/objectstore"
	"github.com/trailerops/yardgate/internal/saga"
	"github.com/trailerops/yardgate/internal/store"
	"github.com/trailerops/yardgate/internal/yards"
	"github.com/trailerops/yardgate/migrations"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.LoadFromEnv()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("load timezone %q: %v", cfg.Timezone, err)
	}
	yardList, err := config.ParseYards(cfg.YardSpec)
	if err != nil {
		log.Fatalf("parse yards: %v", err)
	}
	registry, err := yards.NewRegistry(loc, yardList)
	if err != nil {
		log.Fatalf("build yard registry: %v", err)
	}

	// Database (optional): without DATABASE_URL the service runs on in-memory
	// stores, which is only useful for local development.
	var db *sql.DB
	var (
		movementStore store.MovementStore
		trailerStore  store.TrailerStore
		statsStore    store.StatsStore
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			log.Fatalf("ping postgres: %v", err)
		}
		cancel()
		log.Println("connected to postgres")

		if cfg.RunMigrations {
			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				log.Fatalf("goose dialect: %v", err)
			}
			if err := goose.Up(db, "."); err != nil {
				log.Fatalf("run migrations: %v", err)
			}
		}

		movementStore = store.NewPGMovementStore(db)
		trailerStore = store.NewPGTrailerStore(db)
		statsStore = store.NewPGStatsStore(db)
	} else {
		log.Println("DATABASE_URL empty, using in-memory stores (dev only)")
		movementStore = store.NewMemMovementStore()
		trailerStore = store.NewMemTrailerStore()
		statsStore = store.NewMemStatsStore()
	}

	// Object store: S3 when a bucket is configured, in-memory otherwise.
	var objects objectstore.Store
	if cfg.S3Bucket != "" {
		s3store, err := objectstore.NewS3Store(context.Background(), cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			log.Fatalf("init s3 store: %v", err)
		}
		objects = s3store
		log.Printf("object store: s3 bucket %s", cfg.S3Bucket)
	} else {
		log.Println("S3_BUCKET empty, using in-memory object store (dev only)")
		objects = objectstore.NewMemStore()
	}

	// Movement event stream (optional).
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(events.ProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Fatalf("init kafka producer: %v", err)
		}
		defer producer.Close()
		log.Printf("movement events -> kafka topic %s", cfg.KafkaTopic)
	}

	submission := saga.New(movementStore, trailerStore, statsStore, objects, registry, nil)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.Middleware(cfg.JWTSecret))
	if cfg.JWTSecret == "" {
		log.Println("JWT_SECRET empty, auth disabled, requests run as system actor")
	}

	handlers.RegisterRoutes(r, handlers.Deps{
		Saga:     submission,
		Registry: registry,
		Trailers: trailerStore,
		Objects:  objects,
		Events:   producer,
		DB:       db,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("yardgate listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("yardgate stopped")
}
