package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rollmill/slitplan/internal/config"
	"github.com/rollmill/slitplan/internal/db"
	"github.com/rollmill/slitplan/internal/materials"
	"github.com/rollmill/slitplan/internal/migrations"
	"github.com/rollmill/slitplan/internal/seed"
)

type server struct {
	store    *materials.Store
	currency string
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database)
	if err != nil {
		log.Fatalf("failed to seed materials: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("seeded %d default materials", stats.Inserts)
	}

	srv := &server{
		store:    materials.NewStore(database),
		currency: cfg.Currency,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/api/health", srv.handleHealth)
	r.Get("/api/materials", srv.handleMaterialsList)
	r.Post("/api/materials", srv.handleMaterialCreate)
	r.Post("/api/materials/{id}", srv.handleMaterialUpdate)
	r.Group(func(r chi.Router) {
		// The enumeration is CPU-bound; cap how many run at once.
		r.Use(limitConcurrency(cfg.MaxCalcConcurrency))
		r.Post("/api/permutations", srv.handlePermutations)
		r.Post("/api/permutations/export", srv.handlePermutationsExport)
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
