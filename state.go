package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dnlkrs/mealbot/db"
)

// State is the shared mutable state: the keyboard registry, the poll
// table and the generated plans, all behind a single reader/writer
// lock. The durable store is injected and called outside the lock;
// nothing in here blocks on I/O while holding it.
type State struct {
	mu        sync.RWMutex
	keyboards map[string]*Keyboard
	polls     map[string]Poll
	plans     map[string]Plan

	store  db.Store
	config Config
}

func NewState(store db.Store, config Config) *State {
	return &State{
		keyboards: make(map[string]*Keyboard),
		polls:     make(map[string]Poll),
		plans:     make(map[string]Plan),
		store:     store,
		config:    config,
	}
}

// Register persists a keyboard so a later click can be routed back.
// Keyboards with no buttons are skipped, there is nothing to resolve.
func (s *State) Register(kb *Keyboard) *Keyboard {
	if kb.empty() {
		return kb
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyboards[kb.ID] = kb
	return kb
}

// ResolveButton looks a click up by its correlation id.
func (s *State) ResolveButton(id CorrelationID) (Button, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kb, ok := s.keyboards[id.Keyboard]
	if !ok {
		return Button{}, false
	}
	return kb.Find(id.Button)
}

// ResolveAndConsume looks a click up and removes its keyboard in the
// same critical section, which is what makes a click fire at most
// once: concurrent deliveries of one callback serialize on the write
// lock, exactly one resolves, the rest see NotFound and get the
// outdated notice.
func (s *State) ResolveAndConsume(id CorrelationID) (Button, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kb, ok := s.keyboards[id.Keyboard]
	if !ok {
		return Button{}, false
	}
	btn, ok := kb.Find(id.Button)
	if !ok {
		return Button{}, false
	}
	delete(s.keyboards, id.Keyboard)
	return btn, true
}

// ConsumeKeyboard removes a keyboard that is no longer rendered, like
// the companion grid of a closed poll.
func (s *State) ConsumeKeyboard(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keyboards, id)
}

func (s *State) AddPoll(p Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[p.ID] = p
}

func (s *State) FindPoll(id string) (Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	return p, ok
}

func (s *State) FindPollByExternalID(externalID string) (Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.polls {
		if p.ExternalID == externalID {
			return p, true
		}
	}
	return Poll{}, false
}

func (s *State) FindPollByMealID(mealID string) (Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.polls {
		if kind, ok := p.Kind.(MealPoll); ok && kind.MealID == mealID {
			return p, true
		}
	}
	return Poll{}, false
}

func (s *State) FindPollByPlanID(planID string) (Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.polls {
		if kind, ok := p.Kind.(PlanPoll); ok && kind.PlanID == planID {
			return p, true
		}
	}
	return Poll{}, false
}

func (s *State) RemovePoll(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.polls, id)
}

// CancelPoll flags a poll canceled so the close tick discards the
// tallies. No-op when the poll is already gone (close won the race).
func (s *State) CancelPoll(id string) (Poll, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return Poll{}, false
	}
	p.Canceled = true
	s.polls[id] = p
	return p, true
}

// RepointPollKeyboard atomically replaces the poll's companion
// keyboard id and drops the keyboard it replaces, so a stale button
// can never resolve against a grid that no longer matches what is
// rendered. Returns false when the poll is already gone.
func (s *State) RepointPollKeyboard(pollID, keyboardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[pollID]
	if !ok {
		return false
	}
	old := p.KeyboardID
	p.KeyboardID = keyboardID
	s.polls[pollID] = p
	if old != "" {
		delete(s.keyboards, old)
	}
	return true
}

func (s *State) AddPlan(p Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *State) FindPlan(id string) (Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	return p, ok
}

func (s *State) RemovePlan(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, id)
}

func (s *State) counts() (keyboards, polls, plans int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keyboards), len(s.polls), len(s.plans)
}

// checkpoint holds the part of the runtime state worth surviving a
// restart: open polls. Keyboards are not checkpointed; a click against
// a pre-restart grid gets the outdated notice, which is the documented
// stale-click behavior anyway.
type checkpoint struct {
	Polls []Poll `json:"polls"`
}

// Checkpoint snapshots open polls through the store. Best-effort,
// failures are logged and nothing retries.
func (s *State) Checkpoint(ctx context.Context) {
	s.mu.RLock()
	cp := checkpoint{Polls: make([]Poll, 0, len(s.polls))}
	for _, p := range s.polls {
		cp.Polls = append(cp.Polls, p)
	}
	s.mu.RUnlock()

	blob, err := json.Marshal(cp)
	if err != nil {
		logger.Warnw("marshal checkpoint", "err", err)
		return
	}
	if err := s.store.SaveCheckpoint(ctx, blob); err != nil {
		logger.Warnw("save checkpoint", "err", err)
	}
}

// RestoreCheckpoint loads the poll table snapshot, if any.
func (s *State) RestoreCheckpoint(ctx context.Context) {
	blob, err := s.store.LoadCheckpoint(ctx)
	if err != nil {
		if err != db.ErrNotFound {
			logger.Warnw("load checkpoint", "err", err)
		}
		return
	}
	var cp checkpoint
	if err := json.Unmarshal(blob, &cp); err != nil {
		logger.Warnw("unmarshal checkpoint", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range cp.Polls {
		s.polls[p.ID] = p
	}
	logger.Infow("restored checkpoint", "polls", len(cp.Polls))
}
