package main

import (
	"context"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/auth"
	"github.com/example/blog-platform/internal/platform/config"
	"github.com/example/blog-platform/internal/platform/db"
	"github.com/example/blog-platform/internal/platform/events"
	"github.com/example/blog-platform/internal/platform/httpserver"
	"github.com/example/blog-platform/internal/platform/idempotency"
	"github.com/example/blog-platform/internal/platform/logging"
	"github.com/example/blog-platform/internal/platform/natsconn"
	"github.com/example/blog-platform/internal/platform/run"
	"github.com/example/blog-platform/services/social/internal/handlers"
	"github.com/example/blog-platform/services/social/internal/notify"
	"github.com/example/blog-platform/services/social/internal/reaction"
	"github.com/example/blog-platform/services/social/internal/store"
	"github.com/example/blog-platform/services/social/internal/thread"
	"github.com/example/blog-platform/services/social/internal/worker"
)

type stores struct {
	comments      store.CommentStore
	posts         store.PostStore
	reactions     store.ReactionStore
	notifications store.NotificationStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	base, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	log := logging.ForService(base, cfg.ServiceName)
	defer func() { _ = log.Sync() }()

	pool := openPool(cfg, log)
	st := newStores(pool, cfg.SeedPosts, log)

	var (
		emitter notify.Emitter = notify.Nop{}
		nc      *nats.Conn
		js      nats.JetStreamContext
	)
	nc, err = natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName})
	if err != nil {
		if cfg.IsProd() {
			fatal(log, "nats is required in production", zap.Error(err))
		}
		log.Warn("nats unavailable, notifications disabled", zap.Error(err))
	} else {
		js, err = nc.JetStream()
		if err == nil {
			err = natsconn.EnsureStream(js, notify.Stream)
		}
		if err != nil {
			nc.Close()
			fatal(log, "jetstream setup", zap.Error(err))
		}
		emitter = notify.NewJetStream(events.New(js, log), log)
	}

	reactions := reaction.NewService(st.reactions, emitter, log)
	deleter := thread.NewDeleter(st.comments, st.posts, log)
	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	var pinger db.Pinger
	if pool != nil {
		pinger = pool
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc: db.ReadyFunc(pinger, 2*time.Second),
		Logger:    log,
	})

	// Public reads; the reaction summary is personalised when a token is sent.
	r.Get("/v1/posts/{post_id}/comments", handlers.GetThread(st.comments, st.posts, log))
	r.With(auth.OptionalUser(verifier)).Get("/v1/posts/{post_id}/reactions", handlers.GetReactions(reactions, st.posts, log))
	r.With(auth.OptionalUser(verifier)).Post("/v1/posts/{post_id}/reactions", handlers.PostReaction(reactions, st.posts, log))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/posts/{post_id}/comments", handlers.CreateComment(st.comments, st.posts, emitter, log))
		r.Put("/v1/comments/{comment_id}", handlers.UpdateComment(st.comments, log))
		r.Delete("/v1/comments/{comment_id}", handlers.DeleteComment(deleter, log))
		r.Get("/v1/notifications", handlers.ListNotifications(st.notifications, log))

		r.With(auth.RequireAdmin).Delete("/v1/admin/comments/{comment_id}", handlers.DeleteComment(deleter, log))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if js != nil {
			dedup, err := idempotency.NewStore(idempotency.Options{
				RedisURL: cfg.RedisURL,
				Pool:     pool,
				TTL:      cfg.IdempotencyTTL,
				Prefix:   "social:notify:",
				IsProd:   cfg.IsProd(),
			})
			if err != nil {
				return err
			}
			consumer := &worker.NotificationConsumer{
				JS:            js,
				Store:         st.notifications,
				Dedup:         dedup,
				Log:           log.Named("notify-worker"),
				BatchSize:     cfg.Worker.BatchSize,
				BatchInterval: cfg.Worker.BatchInterval,
			}
			go func() {
				if err := consumer.Run(ctx); err != nil {
					log.Error("notification consumer stopped", zap.Error(err))
				}
			}()
		}
		return srv.Start(log)
	})

	runner.Graceful(
		srv.Shutdown,
		func(context.Context) error {
			if nc == nil {
				return nil
			}
			return nc.Drain()
		},
		func(context.Context) error {
			if pool != nil {
				pool.Close()
			}
			return nil
		},
	)
	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// openPool returns nil when the service should run on in-memory stores.
// In production a working Postgres is mandatory.
func openPool(cfg config.AppConfig, log *zap.Logger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		if cfg.IsProd() {
			fatal(log, "DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		if cfg.IsProd() {
			fatal(log, "postgres is required in production but unavailable", zap.Error(err))
		}
		log.Warn("postgres unavailable, falling back to in-memory stores", zap.Error(err))
		return nil
	}
	log.Info("social store: postgres")
	return pool
}

func newStores(pool *pgxpool.Pool, seed string, log *zap.Logger) stores {
	if pool == nil {
		seeded := parseSeedPosts(seed)
		log.Info("in-memory post store seeded", zap.Int("posts", len(seeded)))
		return stores{
			comments:      store.NewInMemoryCommentStore(),
			posts:         store.NewInMemoryPostStore(seeded...),
			reactions:     store.NewInMemoryReactionStore(),
			notifications: store.NewInMemoryNotificationStore(),
		}
	}
	return stores{
		comments:      store.NewPostgresCommentStore(pool),
		posts:         store.NewPostgresPostStore(pool),
		reactions:     store.NewPostgresReactionStore(pool),
		notifications: store.NewPostgresNotificationStore(pool),
	}
}

// parseSeedPosts reads "post_id:author_id" pairs separated by commas.
func parseSeedPosts(raw string) []store.Post {
	var out []store.Post
	for _, pair := range strings.Split(raw, ",") {
		id, author, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || id == "" || author == "" {
			continue
		}
		out = append(out, store.Post{ID: id, AuthorID: author})
	}
	return out
}

func fatal(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
	_ = log.Sync()
	run.Exit(1)
}
