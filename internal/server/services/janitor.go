package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
)

// Janitor periodically deletes expired refresh records. Expired records are
// already unusable; this only reclaims space.
type Janitor struct {
	store  refreshtokens.Repository
	period time.Duration
	now    func() time.Time
	log    logging.Logger
}

func NewJanitor(store refreshtokens.Repository, period time.Duration, l logging.Logger) *Janitor {
	return &Janitor{store: store, period: period, now: time.Now, log: l.With("module", "janitor")}
}

func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		j.log.Warn(ctx, "expired refresh token sweep failed", "error", err)
		return n, err
	}
	if n > 0 {
		j.log.Info(ctx, "expired refresh tokens removed", "count", n)
	}
	return n, nil
}

// Run sweeps once immediately and then every period until ctx is done.
// Sweep errors are logged and do not stop the loop.
func (j *Janitor) Run(ctx context.Context) {
	if j.period <= 0 {
		return
	}
	t := time.NewTicker(j.period)
	defer t.Stop()

	for {
		_, _ = j.Sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
