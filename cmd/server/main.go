package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/stagedoor/boxoffice/internal/allocation"
	"github.com/stagedoor/boxoffice/internal/config"
	"github.com/stagedoor/boxoffice/internal/database"
	"github.com/stagedoor/boxoffice/internal/handler"
	"github.com/stagedoor/boxoffice/internal/queue"
	"github.com/stagedoor/boxoffice/internal/repository"
	"github.com/stagedoor/boxoffice/internal/router"
	"github.com/stagedoor/boxoffice/internal/scope"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	scopes := scope.NewRegistry()

	tenants := repository.NewTenantRepo(db)
	users := repository.NewUserRepo(db)
	venues := repository.NewVenueRepo(db, scopes)
	acts := repository.NewActRepo(db, scopes)
	shows := repository.NewShowRepo(db, scopes)
	offers := repository.NewOfferRepo(db, scopes)

	coord := allocation.NewCoordinator(db, shows, offers, scopes)

	h := router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, users, tenants),
		Venues: handler.NewVenueHandler(venues),
		Acts:   handler.NewActHandler(acts),
		Shows:  handler.NewShowHandler(shows),
		Offers: handler.NewOfferHandler(coord, offers),
		Admin:  handler.NewAdminHandler(tenants, venues),
	}

	go func() {
		if err := queue.StartAllocationConsumer(); err != nil {
			log.Printf("allocation consumer stopped: %v", err)
		}
	}()

	e := router.New(cfg, h, rdb)
	log.Printf("starting server on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
