package bot

import "sync"

const (
	stateAwaitingEmail       = "awaiting_email"
	stateAwaitingSearch      = "awaiting_search"
	stateAwaitingComment     = "awaiting_comment"
	stateAwaitingBatchDelete = "awaiting_batch_delete"
)

// UserState saves a context for next message from user.
type UserState struct {
	WaitingFor string
	LeadID     string
}

// StateManager manages the states of all users.
type StateManager struct {
	mu     sync.Mutex
	states map[int64]UserState
}

func NewStateManager() *StateManager {
	return &StateManager{states: make(map[int64]UserState)}
}

// Set sets the state for the user.
func (sm *StateManager) Set(userID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.states[userID] = state
}

// Get gets and immediately delete user state.
func (sm *StateManager) Get(userID int64) (UserState, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state, ok := sm.states[userID]
	if ok {
		delete(sm.states, userID)
	}
	return state, ok
}

// BusyGuard marks users with a submission in flight.
type BusyGuard struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

func NewBusyGuard() *BusyGuard {
	return &BusyGuard{busy: make(map[int64]struct{})}
}

// Acquire marks the user busy. It returns false if the user already is.
func (g *BusyGuard) Acquire(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[userID]; ok {
		return false
	}
	g.busy[userID] = struct{}{}
	return true
}

// Release clears the busy mark.
func (g *BusyGuard) Release(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.busy, userID)
}
