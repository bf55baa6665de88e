package capacity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/ids"
	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// Provider drives the session-runner pool per §4.5. Besides the owning
// runners, it is the only writer of sessions:available scores, which it
// recomputes from each session's recorded max_slots/active_games, and only
// right after a non-empty backend.List() (§5). It never writes a session
// record's active_games or game_ids.
type Provider struct {
	Store   *store.Store
	Backend Backend
	Cfg     config.Config
	log     zerolog.Logger

	lastScaleUp   time.Time
	lowUsageSince time.Time // zero when not currently in a low-usage streak
}

// New builds a Provider.
func New(st *store.Store, backend Backend, cfg config.Config, log zerolog.Logger) *Provider {
	return &Provider{Store: st, Backend: backend, Cfg: cfg, log: log}
}

// Run loops forever at Cfg.CapacityPollPeriod until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Cfg.CapacityPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.tick(ctx); err != nil {
				p.log.Warn().Err(err).Msg("capacity provider tick failed")
			}
		}
	}
}

// tick performs reconciliation, samples demand, and applies policy, in the
// order §4.5 implies: reconciliation keeps the store trustworthy before any
// policy decision reads it.
func (p *Provider) tick(ctx context.Context) error {
	if err := p.reconcile(ctx); err != nil {
		return err
	}

	metrics, availableSlots, err := p.sample(ctx)
	if err != nil {
		return err
	}

	if needsBootstrap(metrics.TotalSessions, p.Cfg.MinSessions) {
		return p.scaleUpBy(ctx, p.Cfg.MinSessions-metrics.TotalSessions, true)
	}

	if starvationOverride(metrics, p.Cfg.PlayersPerGame, availableSlots, p.Cfg.MaxSessions) {
		needed := neededSessions(metrics.UsedSlots*p.Cfg.PlayersPerGame, metrics.QueueLength, p.Cfg.PlayersPerGame, p.Cfg.SlotsPerSession, p.Cfg.MinSessions, p.Cfg.MaxSessions)
		return p.scaleUpBy(ctx, needed-metrics.TotalSessions, true)
	}

	if shouldScaleUp(metrics, p.Cfg.ScaleUpThreshold) {
		if time.Since(p.lastScaleUp) < p.Cfg.ScaleUpCooldown {
			p.lowUsageSince = time.Time{}
			return nil
		}
		needed := neededSessions(metrics.UsedSlots*p.Cfg.PlayersPerGame, metrics.QueueLength, p.Cfg.PlayersPerGame, p.Cfg.SlotsPerSession, p.Cfg.MinSessions, p.Cfg.MaxSessions)
		p.lowUsageSince = time.Time{}
		return p.scaleUpBy(ctx, needed-metrics.TotalSessions, false)
	}

	if shouldScaleDown(metrics, p.Cfg.ScaleDownThreshold, p.Cfg.MinSessions) {
		if p.lowUsageSince.IsZero() {
			p.lowUsageSince = time.Now()
			return nil
		}
		if time.Since(p.lowUsageSince) >= p.Cfg.ScaleDownCooldown {
			return p.scaleDown(ctx, metrics.TotalSessions)
		}
		return nil
	}

	// Utilization is neither high nor low: any in-progress low-usage streak
	// resets, per §4.5 ("Any tick with high utilization resets the timer" —
	// applied symmetrically to leaving the low band at all).
	p.lowUsageSince = time.Time{}
	return nil
}

// sample implements §4.5's demand metrics: queue length, total sessions,
// total slots, used slots.
func (p *Provider) sample(ctx context.Context) (Metrics, int, error) {
	queueLen, err := p.Store.Len(ctx, store.ReadyQueueKey)
	if err != nil {
		return Metrics{}, 0, err
	}

	var m Metrics
	m.QueueLength = int(queueLen)

	scanner := p.Store.NewScanner(store.SessionScanPattern)
	for {
		keys, ok, err := scanner.Next(ctx)
		if err != nil {
			return Metrics{}, 0, err
		}
		if !ok {
			break
		}
		for _, key := range keys {
			fields, err := p.Store.HGetAllMap(ctx, key)
			if err != nil {
				continue
			}
			id := key[len("session:"):]
			sess, ok := model.SessionFromFields(id, fields)
			if !ok {
				continue
			}
			m.TotalSessions++
			m.TotalSlots += sess.MaxSlots
			m.UsedSlots += sess.ActiveGames
		}
	}

	members, err := p.Store.ZAll(ctx, store.AvailableSessionsKey)
	if err != nil {
		return Metrics{}, 0, err
	}
	availableSlots := 0.0
	for _, z := range members {
		availableSlots += z.Score
	}

	return m, int(availableSlots), nil
}

// scaleUpBy requests `count` new runners from the backend, subject to the
// per-tick batch cap, and records the cooldown timestamp unless this call
// is a bypass (bootstrap or starvation override).
func (p *Provider) scaleUpBy(ctx context.Context, count int, bypassCooldown bool) error {
	if count <= 0 {
		return nil
	}
	if count > p.Cfg.ScaleUpBatch {
		count = p.Cfg.ScaleUpBatch
	}

	for i := 0; i < count; i++ {
		id := "session-" + ids.New()
		if err := p.Backend.Create(ctx, id, nil); err != nil {
			p.log.Warn().Err(err).Str("runner", id).Msg("failed to provision runner")
			continue
		}
		p.log.Info().Str("runner", id).Msg("provisioned runner")
	}

	if !bypassCooldown {
		p.lastScaleUp = time.Now()
	}
	return nil
}

// scaleDown destroys idle runners, highest ID first, down to min_sessions
// and capped at the per-tick batch.
func (p *Provider) scaleDown(ctx context.Context, totalSessions int) error {
	idle, err := idleSessionIDs(ctx, p.Store)
	if err != nil {
		return err
	}

	room := totalSessions - p.Cfg.MinSessions
	if room <= 0 {
		return nil
	}

	budget := p.Cfg.ScaleDownBatch
	for _, id := range idle {
		if room <= 0 || budget <= 0 {
			break
		}
		if err := p.Backend.Destroy(ctx, id); err != nil {
			p.log.Warn().Err(err).Str("runner", id).Msg("failed to destroy runner")
			continue
		}
		p.log.Info().Str("runner", id).Msg("destroyed idle runner")
		room--
		budget--
	}

	p.lowUsageSince = time.Time{}
	return nil
}
