package listing

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/simp-lee/dashboard/internal/domain"
)

// Store persists one State per (session, kind). Update must serialise
// concurrent writers of the same key and may call fn more than once.
type Store interface {
	Load(ctx context.Context, sessionID string, kind domain.Kind) (State, error)
	Update(ctx context.Context, sessionID string, kind domain.Kind, fn func(State) (State, error)) (State, error)
}

// Orchestrator applies intents to stored states and reduces upstream
// results back into them.
type Orchestrator struct {
	store Store
	gw    Gateway
	log   *slog.Logger

	mu       sync.Mutex
	inflight map[fetchKey]uint64 // generation of the fetch running here
}

type fetchKey struct {
	sessionID string
	kind      domain.Kind
}

// NewOrchestrator creates an Orchestrator. A nil log uses slog.Default.
func NewOrchestrator(store Store, gw Gateway, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{store: store, gw: gw, log: log, inflight: make(map[fetchKey]uint64)}
}

// Snapshot returns the session's state for kind. A state that has never been
// fetched is fetched first, and so is a loading state whose fetch is not
// running in this process (its commit failed or the process restarted).
func (o *Orchestrator) Snapshot(ctx context.Context, sessionID string, kind domain.Kind) (State, error) {
	s, err := o.store.Load(ctx, sessionID, kind)
	if err != nil {
		return State{}, err
	}
	if s.Status != StatusIdle && !o.stalled(fetchKey{sessionID, kind}, s) {
		return s, nil
	}
	return o.Dispatch(ctx, sessionID, kind, nil)
}

// Dispatch applies intent and, when the effective query changed or the
// state was never fetched, fetches and commits the result. A nil intent only
// fetches an idle or stalled state.
//
// Every fetch bumps the state's Generation; a result commits only while its
// generation is still current, so the latest trigger wins.
func (o *Orchestrator) Dispatch(ctx context.Context, sessionID string, kind domain.Kind, intent Intent) (State, error) {
	key := fetchKey{sessionID, kind}
	var (
		plan  Plan
		gen   uint64
		fetch bool
	)
	s, err := o.store.Update(ctx, sessionID, kind, func(prev State) (State, error) {
		if gen != 0 {
			// Update retried; the earlier attempt was not written.
			o.untrack(key, gen)
			gen = 0
		}
		next := prev
		if intent != nil {
			next = intent(prev)
		}
		fetch = prev.Status == StatusIdle || Triggers(prev, next) || (intent == nil && o.stalled(key, prev))
		if !fetch {
			return next, nil
		}
		next = beginFetch(next)
		plan = PlanFor(next)
		gen = next.Generation
		o.track(key, gen)
		return next, nil
	})
	if gen != 0 {
		defer o.untrack(key, gen)
	}
	if err != nil || !fetch {
		return s, err
	}

	page, fetchErr := Execute(ctx, o.gw, plan)

	// Commit even when the caller went away so the state never stays loading.
	commitCtx := context.WithoutCancel(ctx)
	committed, err := o.store.Update(commitCtx, sessionID, kind, func(cur State) (State, error) {
		if cur.Generation != gen {
			o.log.DebugContext(commitCtx, "discarding stale result",
				slog.String("kind", string(kind)),
				slog.Uint64("generation", gen),
				slog.Uint64("current", cur.Generation),
			)
			return cur, nil
		}
		if fetchErr != nil {
			o.log.WarnContext(commitCtx, "fetch failed",
				slog.String("kind", string(kind)),
				slog.String("method", string(plan.Method)),
				slog.Any("error", fetchErr),
			)
			return fail(cur, fetchErr), nil
		}
		return succeed(cur, page), nil
	})
	if err == nil {
		return committed, nil
	}

	o.log.ErrorContext(commitCtx, "commit fetch result failed",
		slog.String("kind", string(kind)),
		slog.Uint64("generation", gen),
		slog.Any("error", err),
	)
	if _, markErr := o.store.Update(commitCtx, sessionID, kind, func(cur State) (State, error) {
		if cur.Generation != gen || cur.Status != StatusLoading {
			return cur, nil
		}
		return fail(cur, err), nil
	}); markErr != nil {
		o.log.WarnContext(commitCtx, "mark fetch failed",
			slog.String("kind", string(kind)),
			slog.Any("error", markErr),
		)
	}
	return State{}, err
}

// stalled reports whether s is loading without its fetch running here.
func (o *Orchestrator) stalled(key fetchKey, s State) bool {
	if s.Status != StatusLoading {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	gen, ok := o.inflight[key]
	return !ok || gen != s.Generation
}

func (o *Orchestrator) track(key fetchKey, gen uint64) {
	o.mu.Lock()
	o.inflight[key] = gen
	o.mu.Unlock()
}

func (o *Orchestrator) untrack(key fetchKey, gen uint64) {
	o.mu.Lock()
	if o.inflight[key] == gen {
		delete(o.inflight, key)
	}
	o.mu.Unlock()
}

// Run executes the query of s without touching any store. It is used by the
// stateless JSON API and the CLI. On failure the returned State is already
// reduced to Failed and err carries the cause.
func Run(ctx context.Context, gw Gateway, s State) (State, error) {
	page, err := Execute(ctx, gw, PlanFor(s))
	if err != nil {
		return fail(s, err), err
	}
	return succeed(s, page), nil
}

func beginFetch(s State) State {
	s.Status = StatusLoading
	s.Error = ""
	s.Generation++
	return s
}

func succeed(s State, page domain.RecordPage) State {
	s.Status = StatusReady
	s.Items = page.Records
	if s.Items == nil {
		s.Items = []domain.Record{}
	}
	s.Total = page.Total
	s.Error = ""
	return s
}

func fail(s State, err error) State {
	s.Status = StatusFailed
	s.Items = []domain.Record{}
	var te *domain.TransportError
	if errors.As(err, &te) {
		s.Error = te.Message
	} else {
		s.Error = err.Error()
	}
	return s
}
