package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/atticus-legal/atticus/config"
	"github.com/atticus-legal/atticus/internal/rag"
	"github.com/atticus-legal/atticus/internal/store"
)

// Scheduler periodically rebuilds the in-memory index from the documents
// persisted in the store, so a restarted instance converges back to the full
// corpus without manual re-uploads.
type Scheduler struct {
	Store  *store.Store
	RAG    *rag.Service
	Rdb    *redis.Client
	Cfg    config.SchedulerConfig
	Stop   chan struct{}
	Logger *log.Logger

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if !isDue(s.Cfg.CronSpec, s.lastRun) {
		return
	}

	// distributed lock to avoid duplicate re-index runs across instances
	if s.Rdb != nil {
		ttl := s.Cfg.LockTTL
		if ttl <= 0 {
			ttl = 2 * time.Minute
		}
		ok, _ := s.Rdb.SetNX(ctx, "sched:lock:reindex", "1", ttl).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "sched:lock:reindex")
	}

	now := time.Now()
	s.lastRun = &now

	docs, err := s.Store.ListAllDocuments(ctx)
	if err != nil {
		s.Logger.Printf("reindex: list documents: %v", err)
		return
	}
	var chunks int
	for _, doc := range docs {
		stats, err := s.RAG.Ingest(ctx, doc.Content, doc.Source)
		if err != nil {
			s.Logger.Printf("reindex: ingest %s: %v", doc.Source, err)
			continue
		}
		chunks += stats.ChunksIndexed
	}
	s.Logger.Printf("reindex: %d documents, %d chunks, index size %d", len(docs), chunks, s.RAG.IndexSize())
}

// isDue reports whether a job with cronSpec should run now given its last run
// time. Supports "@daily", "@hourly", and standard 5-field cron expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		return !expr.Next(*last).After(now)
	}
}
