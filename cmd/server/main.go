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

	"github.com/joho/godotenv"

	"messaging_go/internal/config"
	"messaging_go/internal/domain"
	"messaging_go/internal/httpserver"
	"messaging_go/internal/localization"
	"messaging_go/internal/notify"
	"messaging_go/internal/objectstore"
	"messaging_go/internal/security"
	"messaging_go/internal/service"
	"messaging_go/internal/store/postgres"
	"messaging_go/internal/store/sqlite"
	"messaging_go/internal/ws"
)

type stores struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserDirectory
	chats         notify.ChatIDResolver
}

func openStores(cfg *config.Config) (*sql.DB, *stores, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			return nil, nil, err
		}
		dir := postgres.NewUserDirectory(db)
		return db, &stores{
			conversations: postgres.NewConversationRepo(db),
			participants:  postgres.NewParticipantRepo(db),
			messages:      postgres.NewMessageRepo(db),
			users:         dir,
			chats:         dir,
		}, nil
	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			return nil, nil, err
		}
		dir := sqlite.NewUserDirectory(db)
		return db, &stores{
			conversations: sqlite.NewConversationRepo(db),
			participants:  sqlite.NewParticipantRepo(db),
			messages:      sqlite.NewMessageRepo(db),
			users:         dir,
			chats:         dir,
		}, nil
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)

	objects, err := objectstore.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("failed to initialize object store: %v", err)
	}

	var notifier domain.Notifier = notify.LogNotifier{}
	if cfg.TelegramBotToken != "" {
		localizer, err := localization.NewLocalizer()
		if err != nil {
			log.Fatalf("failed to load localization bundles: %v", err)
		}
		notifier, err = notify.NewTelegramNotifier(cfg.TelegramBotToken, st.chats, localizer)
		if err != nil {
			log.Fatalf("failed to initialize telegram notifier: %v", err)
		}
	}

	svc := service.NewMessagingService(st.conversations, st.participants, st.messages, st.users)

	hub := ws.NewHub()
	gw := ws.NewGateway(hub, svc, objects, notifier, st.users)

	router := httpserver.NewRouter(cfg, svc, gw, tokenSvc, st.users)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting %s on %s (driver=%s)", cfg.AppName, cfg.HTTPAddr(), cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
