package handlers

import (
	"time"

	"photovault/internal/database"
	"photovault/internal/dedup"
	"photovault/internal/scan"
	"photovault/internal/thumbs"
)

type Handlers struct {
	db        *database.Database
	orch      *scan.Orchestrator
	dedup     *dedup.Deduper
	thumbs    *thumbs.Service
	startTime time.Time
}

func New(db *database.Database, orch *scan.Orchestrator, dd *dedup.Deduper, ts *thumbs.Service) *Handlers {
	return &Handlers{
		db:        db,
		orch:      orch,
		dedup:     dd,
		thumbs:    ts,
		startTime: time.Now(),
	}
}
