package capacity

import (
	"context"
	"sort"

	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// reconcile implements §4.5's "Reconciliation" rule: each tick, reconcile
// the store with backend.List(), delete entries for runners the backend no
// longer has, and rebuild sessions:available from computed truth.
//
// Guard: if the backend reports zero runners, skip deletion and the
// availability rebuild entirely — an empty list is far more likely to mean
// a backend outage than "every runner disappeared", and deleting on that
// signal would be catastrophic.
func (p *Provider) reconcile(ctx context.Context) error {
	runners, err := p.Backend.List(ctx)
	if err != nil {
		return err
	}

	if len(runners) == 0 {
		p.log.Warn().Msg("backend reported zero runners; skipping deletion to guard against an outage")
		return nil
	}

	live := make(map[string]struct{}, len(runners))
	for _, r := range runners {
		live[r.ID] = struct{}{}
	}

	scanner := p.Store.NewScanner(store.SessionScanPattern)
	var stale []string
	for {
		keys, ok, err := scanner.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for _, key := range keys {
			id := key[len("session:"):]
			if _, ok := live[id]; !ok {
				stale = append(stale, key)
			}
		}
	}

	if len(stale) > 0 {
		if err := p.Store.Delete(ctx, stale...); err != nil {
			return err
		}
		for _, key := range stale {
			id := key[len("session:"):]
			if err := p.Store.ZRemove(ctx, store.AvailableSessionsKey, id); err != nil {
				p.log.Warn().Err(err).Str("session", id).Msg("failed to drop stale availability entry")
			}
		}
	}

	return p.rebuildAvailability(ctx, live)
}

// rebuildAvailability recomputes the sessions:available entry of each live
// session record from its recorded max_slots/active_games (§5
// "Shared-resource policy"). Session records are only read, never
// rewritten, and index members with no session record are left as they are.
func (p *Provider) rebuildAvailability(ctx context.Context, live map[string]struct{}) error {
	scanner := p.Store.NewScanner(store.SessionScanPattern)

	for {
		keys, ok, err := scanner.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for _, key := range keys {
			id := key[len("session:"):]
			if live != nil {
				if _, ok := live[id]; !ok {
					continue
				}
			}

			fields, err := p.Store.HGetAllMap(ctx, key)
			if err != nil {
				p.log.Warn().Err(err).Str("session", id).Msg("failed to read session during reconciliation")
				continue
			}
			sess, ok := model.SessionFromFields(id, fields)
			if !ok {
				continue
			}
			sess.Recompute()

			if sess.AvailableSlots > 0 {
				if err := p.Store.ZUpsert(ctx, store.AvailableSessionsKey, id, float64(sess.AvailableSlots)); err != nil {
					p.log.Warn().Err(err).Str("session", id).Msg("failed to upsert availability")
				}
			} else {
				if err := p.Store.ZRemove(ctx, store.AvailableSessionsKey, id); err != nil {
					p.log.Warn().Err(err).Str("session", id).Msg("failed to clear availability")
				}
			}
		}
	}
}

// idleSessionIDs returns the IDs of live sessions with zero active games,
// sorted by ID descending so the caller can destroy highest-ID-first
// (§4.5 "preferring highest IDs first").
func idleSessionIDs(ctx context.Context, st *store.Store) ([]string, error) {
	scanner := st.NewScanner(store.SessionScanPattern)
	var idle []string

	for {
		keys, ok, err := scanner.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for _, key := range keys {
			id := key[len("session:"):]
			fields, err := st.HGetAllMap(ctx, key)
			if err != nil {
				continue
			}
			sess, ok := model.SessionFromFields(id, fields)
			if ok && sess.ActiveGames == 0 {
				idle = append(idle, id)
			}
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(idle)))
	return idle, nil
}
