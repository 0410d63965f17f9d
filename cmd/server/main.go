package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/blog-service/api"
	"github.com/UkralStul/blog-service/internal/blog"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/identity"
	"github.com/UkralStul/blog-service/internal/policy"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
	"github.com/UkralStul/blog-service/internal/storage/postgres"
)

const defaultPort = "8080"

type config struct {
	port            string
	storageType     string
	databaseURL     string
	seed            bool
	ownerChecks     bool
	sessionLifetime time.Duration
	bcryptCost      int
	dbLogLevel      logger.LogLevel
}

func loadConfig() config {
	cfg := config{
		port:            os.Getenv("PORT"),
		databaseURL:     os.Getenv("DATABASE_URL"),
		sessionLifetime: 24 * time.Hour,
		bcryptCost:      bcrypt.DefaultCost,
		dbLogLevel:      logger.Warn,
	}
	if cfg.port == "" {
		cfg.port = defaultPort
	}

	flag.StringVar(&cfg.storageType, "storage", "in-memory", "Storage type (in-memory or postgres)")
	flag.BoolVar(&cfg.seed, "seed", true, "Fill in-memory storage with demo data")
	flag.BoolVar(&cfg.ownerChecks, "owner-checks", true, "Only the author may edit or delete a post")
	flag.Parse()

	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid SESSION_LIFETIME %q: %v", v, err)
		}
		cfg.sessionLifetime = d
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid BCRYPT_COST %q: %v", v, err)
		}
		cfg.bcryptCost = n
	}
	switch os.Getenv("DB_LOG_LEVEL") {
	case "silent":
		cfg.dbLogLevel = logger.Silent
	case "error":
		cfg.dbLogLevel = logger.Error
	case "info":
		cfg.dbLogLevel = logger.Info
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	var store storage.Storage
	log.Printf("Starting server with %s storage", cfg.storageType)
	if cfg.storageType == "postgres" {
		if cfg.databaseURL == "" {
			log.Fatal("DATABASE_URL must be set for postgres storage")
		}
		pg, err := postgres.New(cfg.databaseURL, cfg.dbLogLevel)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		store = pg
	} else {
		store = inmemory.New()
	}

	observer := api.NewCommentObserver()
	blogService := blog.New(store,
		blog.WithPolicy(policy.Policy{OwnerChecks: cfg.ownerChecks}),
		blog.WithApprovalHook(observer.Notify),
	)
	identityService := identity.New(store, cfg.bcryptCost)

	if cfg.seed && cfg.storageType != "postgres" {
		fillWithMockData(blogService, identityService)
	}

	sessions := scs.New()
	sessions.Lifetime = cfg.sessionLifetime
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	h := &api.Handler{
		Blog:     blogService,
		Identity: identityService,
		Store:    store,
		Sessions: sessions,
		Observer: observer,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.port,
		Handler:      h.NewRouter(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("listening on http://localhost:%s/posts", cfg.port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}

func fillWithMockData(b *blog.Service, id *identity.Service) {
	ctx := context.Background()

	// 1. Два пользователя: автор и комментатор.
	author, err := id.Register(ctx, policy.Registration{
		FirstName: "Ada", LastName: "Writer", Username: "ada",
		Email: "ada@example.com", Password: "ada-password",
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to register author: %v", err)
	}
	reader, err := id.Register(ctx, policy.Registration{
		FirstName: "Rob", LastName: "Reader", Username: "rob",
		Email: "rob@example.com", Password: "rob-password",
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to register reader: %v", err)
	}
	ada, rob := domain.CallerFor(author), domain.CallerFor(reader)

	// 2. Опубликованный пост.
	post, err := b.CreatePost(ctx, ada, "Hello", "The first published post of this blog.")
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create post: %v", err)
	}
	if _, err := b.Publish(ctx, ada, post.ID); err != nil {
		log.Fatalf("fillWithMockData: failed to publish post: %v", err)
	}

	// 3. Одобренный и ожидающий модерации комментарии.
	approved, err := b.AddComment(ctx, rob, post.ID, "Nice post")
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create comment: %v", err)
	}
	if _, err := b.ApproveComment(ctx, ada, approved.ID); err != nil {
		log.Fatalf("fillWithMockData: failed to approve comment: %v", err)
	}
	if _, err := b.AddComment(ctx, rob, post.ID, "Waiting for moderation"); err != nil {
		log.Fatalf("fillWithMockData: failed to create pending comment: %v", err)
	}

	// 4. Черновик.
	draft, err := b.CreatePost(ctx, ada, "Work in progress", "Not published yet.")
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create draft: %v", err)
	}

	log.Printf("Mock data filled successfully. Published post ID: %s, draft ID: %s", post.ID, draft.ID)
}
