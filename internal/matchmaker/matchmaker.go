// Package matchmaker implements the §4.2 role: it forms fixed-size batches
// of ready players, reserves session capacity, and materializes game
// records.
package matchmaker

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/events"
	"github.com/sandwich-match/arena/internal/ids"
	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/queue"
	"github.com/sandwich-match/arena/internal/store"
)

// Matchmaker runs the batch-forming loop. Many instances may run
// concurrently; lock:matchmaker bounds wasted work but correctness comes
// from the atomic reservation primitives, not the lock (§4.2).
type Matchmaker struct {
	Store     *store.Store
	Publisher *events.Publisher
	Cfg       config.Config
	Rand      *rand.Rand
	log       zerolog.Logger
}

// New builds a Matchmaker with its own random source so concurrent
// instances don't share one (each process gets an independently-seeded
// generator).
func New(st *store.Store, pub *events.Publisher, cfg config.Config, log zerolog.Logger) *Matchmaker {
	return &Matchmaker{
		Store:     st,
		Publisher: pub,
		Cfg:       cfg,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       log,
	}
}

// Run loops forever until ctx is cancelled, following §4.2's main loop.
func (m *Matchmaker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		slept, err := m.tick(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("matchmaker tick failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(slept):
		}
	}
}

// tick runs one lock-guarded iteration and returns how long the caller
// should sleep before the next one.
func (m *Matchmaker) tick(ctx context.Context) (time.Duration, error) {
	got, err := m.Store.AcquireLock(ctx, store.MatchmakerLockKey(), m.Cfg.MatchmakerLockTTL)
	if err != nil {
		return m.Cfg.MatchmakerIdle, err
	}
	if !got {
		return m.Cfg.MatchmakerIdle, nil
	}

	n := m.Cfg.PlayersPerGame

	queueLen, err := m.Store.Len(ctx, store.ReadyQueueKey)
	if err != nil {
		return m.Cfg.MatchmakerIdle, err
	}
	if int(queueLen) < n {
		return m.Cfg.MatchmakerIdle, nil
	}

	capacity, err := m.availableCapacity(ctx)
	if err != nil {
		return m.Cfg.MatchmakerNoCapacity, err
	}

	target := computeTarget(int(queueLen), n, capacity)
	if target <= 0 {
		return m.Cfg.MatchmakerNoCapacity, nil
	}

	for i := 0; i < target; i++ {
		ok, err := m.formOneGame(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("failed to form game")
			return m.Cfg.MatchmakerNoCapacity, nil
		}
		if !ok {
			break // batch starvation: stop the inner loop for this tick (§4.2 step 3)
		}
	}

	return m.Cfg.MatchmakerIdle, nil
}

// availableCapacity computes §4.2 step 2's `capacity`: the total free
// slots currently advertised in sessions:available.
func (m *Matchmaker) availableCapacity(ctx context.Context) (int, error) {
	members, err := m.Store.ZAll(ctx, store.AvailableSessionsKey)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, z := range members {
		total += z.Score
	}
	return int(math.Floor(total)), nil
}

// formOneGame reserves a slot, collects N ready players, and materializes
// a game. ok is false on batch starvation (slot released, caller stops).
func (m *Matchmaker) formOneGame(ctx context.Context) (ok bool, err error) {
	sessionID, err := reserveSlot(ctx, m.Store)
	if err == ErrNoCapacity {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	collector := &queue.Collector{
		Store:   m.Store,
		N:       m.Cfg.PlayersPerGame,
		MaxPull: m.Cfg.MaxPullMultiplier * m.Cfg.PlayersPerGame,
	}

	players, err := collector.Collect(ctx)
	if err == queue.ErrInsufficientReady {
		if relErr := releaseSlot(ctx, m.Store, sessionID); relErr != nil {
			return false, relErr
		}
		return false, nil
	}
	if err != nil {
		// Any other failure after a successful reservation must also
		// release the slot (§4.2.1 "Failure semantics").
		_ = releaseSlot(ctx, m.Store, sessionID)
		return false, err
	}

	if err := m.materialize(ctx, sessionID, players); err != nil {
		_ = releaseSlot(ctx, m.Store, sessionID)
		return false, err
	}

	return true, nil
}

// materialize creates the game record, attaches it to its session, moves
// every player to IN_GAME, and publishes events:match_found (§4.2 "Game
// materialization"). The store's pipelined multi-write keeps the group
// internally ordered; the publish is issued only after it succeeds, per
// §4.2's tolerance note ("a crash between the write group and the publish
// is tolerated because finalization is driven from the game record").
func (m *Matchmaker) materialize(ctx context.Context, sessionID string, players []string) error {
	gameID := ids.New()
	now := time.Now()
	duration := triangularDuration(m.Rand, m.Cfg.MatchMinSeconds, m.Cfg.MatchMaxSeconds)
	endAt := now.Add(duration)

	game := model.Game{
		ID:        gameID,
		SessionID: sessionID,
		State:     model.GameRunning,
		StartedAt: now,
		EndAt:     endAt,
	}

	pipe := m.Store.Client.TxPipeline()
	pipe.HSet(ctx, store.GameKey(gameID), game.ToFields())

	memberArgs := make([]interface{}, len(players))
	for i, p := range players {
		memberArgs[i] = p
	}
	pipe.SAdd(ctx, store.GamePlayersKey(gameID), memberArgs...)

	for _, playerID := range players {
		p := model.Player{
			ID:          playerID,
			State:       model.StateInGame,
			HeartbeatAt: now,
			GameID:      gameID,
			SessionID:   sessionID,
		}
		pipe.HSet(ctx, store.PlayerKey(playerID), p.ToFields())
		pipe.Expire(ctx, store.PlayerKey(playerID), m.Cfg.PlayerTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if err := attachGame(ctx, m.Store, sessionID, gameID); err != nil {
		return err
	}

	return m.Publisher.PublishMatchFound(ctx, events.MatchFound{
		GameID:    gameID,
		SessionID: sessionID,
		PlayerIDs: players,
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// computeTarget implements §4.2 step 2: how many games to attempt to form
// this tick, bounded by both how many full batches the queue could in
// principle supply and how much session capacity exists.
func computeTarget(queueLen, n, capacity int) int {
	if n <= 0 {
		return 0
	}
	return minInt(queueLen/n, capacity)
}
