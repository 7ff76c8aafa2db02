package browser

import (
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession implements Session without a real browser behind it. The page
// is nil unless the engine was given a page factory.
type fakeSession struct {
	id     string
	page   playwright.Page
	index  *ElementIndex
	closed bool
}

func (s *fakeSession) ID() string            { return s.id }
func (s *fakeSession) Page() playwright.Page { return s.page }
func (s *fakeSession) Index() *ElementIndex  { return s.index }
func (s *fakeSession) Close()                { s.closed = true }

// fakeEngine mints fakeSessions and records lifecycle calls.
type fakeEngine struct {
	sessions   map[string]*fakeSession
	created    []string
	failCreate bool
	closeCalls int
	newPage    func() playwright.Page
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{sessions: make(map[string]*fakeSession)}
}

func (e *fakeEngine) NewSession(id string) (Session, error) {
	if e.failCreate {
		return nil, fmt.Errorf("engine unavailable")
	}
	session := &fakeSession{id: id, index: newElementIndex()}
	if e.newPage != nil {
		session.page = e.newPage()
	}
	e.sessions[id] = session
	e.created = append(e.created, id)
	return session, nil
}

func (e *fakeEngine) Close() error {
	e.closeCalls++
	return nil
}

func TestSessionStore_CapacityInvariant(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 3)

	for i := 0; i < 10; i++ {
		_, err := store.GetOrCreate(fmt.Sprintf("session-%d", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, store.Len(), 3, "store exceeded capacity after call %d", i)
	}
}

func TestSessionStore_LRUOrder(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 2)

	// Touch order A, B, A: B is now least recently used.
	_, err := store.GetOrCreate("A")
	require.NoError(t, err)
	_, err = store.GetOrCreate("B")
	require.NoError(t, err)
	_, err = store.GetOrCreate("A")
	require.NoError(t, err)

	// Admitting C must evict B, not A.
	_, err = store.GetOrCreate("C")
	require.NoError(t, err)

	assert.True(t, engine.sessions["B"].closed, "B should have been evicted")
	assert.False(t, engine.sessions["A"].closed, "A should still be alive")
	assert.Equal(t, 2, store.Len())
}

func TestSessionStore_GetRefreshesOrder(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 2)

	_, err := store.GetOrCreate("A")
	require.NoError(t, err)
	_, err = store.GetOrCreate("B")
	require.NoError(t, err)

	// A lookup for use counts as a touch.
	_, err = store.Get("A")
	require.NoError(t, err)

	_, err = store.GetOrCreate("C")
	require.NoError(t, err)

	assert.True(t, engine.sessions["B"].closed)
	assert.False(t, engine.sessions["A"].closed)
}

func TestSessionStore_GetOrCreateReturnsSameSession(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 4)

	first, err := store.GetOrCreate("A")
	require.NoError(t, err)
	second, err := store.GetOrCreate("A")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"A"}, engine.created, "session should be created once")
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := NewSessionStore(newFakeEngine(), 2)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Remove(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 4)

	_, err := store.GetOrCreate("A")
	require.NoError(t, err)

	store.Remove("A")
	assert.True(t, engine.sessions["A"].closed)
	assert.Equal(t, 0, store.Len())

	// Removing an absent session is a no-op.
	store.Remove("A")
	store.Remove("never-existed")
}

func TestSessionStore_CreateErrorPropagates(t *testing.T) {
	engine := newFakeEngine()
	engine.failCreate = true
	store := NewSessionStore(engine, 2)

	_, err := store.GetOrCreate("A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A")
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_CloseAll(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 4)

	for _, id := range []string{"A", "B", "C"} {
		_, err := store.GetOrCreate(id)
		require.NoError(t, err)
	}

	store.CloseAll()

	assert.Equal(t, 0, store.Len())
	for id, session := range engine.sessions {
		assert.True(t, session.closed, "session %s should be closed", id)
	}
	assert.Equal(t, 1, engine.closeCalls)

	// Idempotent.
	store.CloseAll()
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_CloseAllNeverInitialized(t *testing.T) {
	engine := newFakeEngine()
	store := NewSessionStore(engine, 4)

	// Safe with no sessions ever created.
	store.CloseAll()
	assert.Equal(t, 1, engine.closeCalls)
}

func TestSessionStore_DefaultCapacity(t *testing.T) {
	store := NewSessionStore(newFakeEngine(), 0)

	for i := 0; i < DefaultMaxSessions+5; i++ {
		_, err := store.GetOrCreate(fmt.Sprintf("s%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxSessions, store.Len())
}
