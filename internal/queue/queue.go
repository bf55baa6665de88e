// Package queue implements the ready-queue batching algorithm of §4.2.1 —
// the algorithmic heart of the matchmaker. The classification step is a
// pure function over (popped IDs, a state lookup) so it can be tested
// without a coordination store; Collector wires that pure function to the
// two store calls (pop, batch-read) the algorithm needs per round.
package queue

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// ErrInsufficientReady is returned when fewer than N currently-ready
// players could be collected after exhausting MAX_PULL inspections.
var ErrInsufficientReady = errors.New("insufficient ready players")

// classifyBatch partitions one popped batch into newly-picked IDs (capped
// at n-len(picked)) and leftovers to return to the tail. Stale entries
// (state != READY, including a missing record) are silently discarded, as
// §4.2.1 step 2 specifies.
func classifyBatch(popped []string, states map[string]string, alreadyPicked int, n int) (picked, leftover []string) {
	room := n - alreadyPicked
	for _, id := range popped {
		if states[id] != string(model.StateReady) {
			continue // stale hint: disconnected, unreadied, already in a game
		}
		if len(picked) < room {
			picked = append(picked, id)
		} else {
			leftover = append(leftover, id)
		}
	}
	return picked, leftover
}

// Collector runs the full pop/classify/return loop against a store.
type Collector struct {
	Store   *store.Store
	N       int
	MaxPull int
}

// Collect attempts to gather exactly N currently-ready players. On success
// it returns exactly N IDs. On any failure — insufficient ready players, or
// a hard store error partway through — every ID this call has taken
// ownership of (picked, classified-leftover, and the current round's
// not-yet-classified pop) is reinserted at the tail before returning, so a
// mid-collection error can never drop an ID out of queue:ready (§3
// invariant 5, testable property 4).
func (c *Collector) Collect(ctx context.Context) (result []string, err error) {
	picked := make([]string, 0, c.N)
	var toReturn []string
	var popped []string
	inspected := 0

	defer func() {
		if err == nil || err == ErrInsufficientReady {
			return
		}
		requeue := make([]string, 0, len(picked)+len(toReturn)+len(popped))
		requeue = append(requeue, picked...)
		requeue = append(requeue, toReturn...)
		requeue = append(requeue, popped...)
		if len(requeue) > 0 {
			_ = c.Store.PushTail(ctx, store.ReadyQueueKey, requeue...)
		}
	}()

	for len(picked) < c.N && inspected < c.MaxPull {
		want := min2(2*(c.N-len(picked)), c.MaxPull-inspected)
		var popErr error
		popped, popErr = c.Store.PopHead(ctx, store.ReadyQueueKey, int64(want))
		if popErr != nil {
			err = popErr
			return nil, err
		}
		if len(popped) == 0 {
			popped = nil
			break
		}
		inspected += len(popped)

		states, stateErr := c.batchStates(ctx, popped)
		if stateErr != nil {
			err = stateErr
			return nil, err
		}

		newPicked, leftover := classifyBatch(popped, states, len(picked), c.N)
		picked = append(picked, newPicked...)
		toReturn = append(toReturn, leftover...)
		popped = nil // folded into picked/toReturn; the defer must not re-push it
	}

	if len(toReturn) > 0 {
		if pushErr := c.Store.PushTail(ctx, store.ReadyQueueKey, toReturn...); pushErr != nil {
			err = pushErr
			return nil, err
		}
		toReturn = nil // already pushed; the defer must not double-push
	}

	if len(picked) < c.N {
		if len(picked) > 0 {
			if pushErr := c.Store.PushTail(ctx, store.ReadyQueueKey, picked...); pushErr != nil {
				err = pushErr
				return nil, err
			}
			picked = nil // already pushed; the defer must not double-push
		}
		err = ErrInsufficientReady
		return nil, err
	}

	return picked, nil
}

// batchStates reads each ID's player "state" field in one pipelined round
// trip, as §4.2.1 step 2 requires ("Batch-read each popped ID's state").
func (c *Collector) batchStates(ctx context.Context, ids []string) (map[string]string, error) {
	pipe := c.Store.Client.Pipeline()

	cmds := make(map[string]*redis.StringCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.HGet(ctx, store.PlayerKey(id), "state")
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	states := make(map[string]string, len(ids))
	for id, cmd := range cmds {
		v, err := cmd.Result()
		if err != nil {
			states[id] = "" // missing record: treated as not-READY, discarded as stale
			continue
		}
		states[id] = v
	}
	return states, nil
}

func min2(a, b int) int {
	if a < b {
		return a
	}
	return b
}
