package offload

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const statsTTL = 2 * time.Minute

type inspectorSrv struct {
	repo  port.JobRepository
	cache port.Cache
}

func NewInspector(repo port.JobRepository, cache port.Cache) port.Inspector {
	return &inspectorSrv{repo, cache}
}

func (i *inspectorSrv) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	job, err := i.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (i *inspectorSrv) ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	return i.repo.List(ctx, filter)
}

// GetStats serves the aggregated overview from cache when fresh, falling
// back to the job log.
func (i *inspectorSrv) GetStats(ctx context.Context) (*model.JobStats, error) {
	cached, err := i.cache.GetStats(ctx)
	if err != nil {
		log.Printf("warning: could not read stats cache: %v", err)
	}
	if cached != nil {
		var stats model.JobStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
		log.Printf("warning: discarding unreadable cached stats")
	}

	stats, err := i.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed aggregating stats: %w", err)
	}

	if data, err := json.Marshal(stats); err == nil {
		i.cache.SetStats(ctx, data, statsTTL)
	}
	return stats, nil
}
