package journal_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event/eventtest"
	"github.com/randalmurphal/flowhub/pkg/flowhub/journal"
)

// storeFactories runs every contract test against each implementation.
func storeFactories(t *testing.T) map[string]func() journal.Store {
	return map[string]func() journal.Store{
		"memory": func() journal.Store { return journal.NewMemoryStore() },
		"sqlite": func() journal.Store {
			s, err := journal.NewSQLiteStore(":memory:")
			require.NoError(t, err)
			return s
		},
	}
}

func newEntry(t *testing.T, flow, account string) *journal.Entry {
	e, err := journal.NewEntry(flow, "onLogin", eventtest.NewLoginReq().SetAccount(account), errors.New("denied"))
	require.NoError(t, err)
	return e
}

func TestStore_Contract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("append assigns identity", func(t *testing.T) {
				s := factory()
				defer s.Close()

				e := newEntry(t, "login", "alice")
				require.NoError(t, s.Append(e))
				assert.NotEmpty(t, e.ID)
				assert.Positive(t, e.Sequence)
				assert.False(t, e.Timestamp.IsZero())

				got, err := s.Get(e.ID)
				require.NoError(t, err)
				assert.Equal(t, e.Flow, got.Flow)
				assert.Equal(t, "onLogin", got.Handler)
				assert.Equal(t, eventtest.TypeLoginReq, got.TypeID)
				assert.Equal(t, "LoginReq", got.TypeName)
				assert.Equal(t, "denied", got.Error)
				assert.Equal(t, e.Event, got.Event)
				assert.Equal(t, e.Sequence, got.Sequence)

				snap, err := got.Snapshot()
				require.NoError(t, err)
				assert.Equal(t, "LoginReq{2:alice}", snap.String())
			})

			t.Run("get missing", func(t *testing.T) {
				s := factory()
				defer s.Close()

				_, err := s.Get("nope")
				assert.ErrorIs(t, err, journal.ErrNotFound)
			})

			t.Run("list filters and orders", func(t *testing.T) {
				s := factory()
				defer s.Close()

				for i := 0; i < 3; i++ {
					require.NoError(t, s.Append(newEntry(t, "login", fmt.Sprint(i))))
					require.NoError(t, s.Append(newEntry(t, "chat", fmt.Sprint(i))))
				}

				all, err := s.List("", 0)
				require.NoError(t, err)
				assert.Len(t, all, 6)
				for i := 1; i < len(all); i++ {
					assert.Less(t, all[i-1].Sequence, all[i].Sequence)
				}

				login, err := s.List("login", 0)
				require.NoError(t, err)
				require.Len(t, login, 3)
				for _, e := range login {
					assert.Equal(t, "login", e.Flow)
				}

				limited, err := s.List("chat", 2)
				require.NoError(t, err)
				assert.Len(t, limited, 2)

				none, err := s.List("other", 0)
				require.NoError(t, err)
				assert.NotNil(t, none)
				assert.Empty(t, none)
			})

			t.Run("delete and count", func(t *testing.T) {
				s := factory()
				defer s.Close()

				e := newEntry(t, "login", "a")
				require.NoError(t, s.Append(e))
				require.NoError(t, s.Append(newEntry(t, "login", "b")))

				n, err := s.Count()
				require.NoError(t, err)
				assert.Equal(t, 2, n)

				require.NoError(t, s.Delete(e.ID))
				require.NoError(t, s.Delete(e.ID), "deleting twice is not an error")

				n, err = s.Count()
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("closed store", func(t *testing.T) {
				s := factory()
				require.NoError(t, s.Close())
				require.NoError(t, s.Close())

				assert.ErrorIs(t, s.Append(newEntry(t, "f", "a")), journal.ErrStoreClosed)
				_, err := s.Get("x")
				assert.ErrorIs(t, err, journal.ErrStoreClosed)
				_, err = s.List("", 0)
				assert.ErrorIs(t, err, journal.ErrStoreClosed)
				assert.ErrorIs(t, s.Delete("x"), journal.ErrStoreClosed)
				_, err = s.Count()
				assert.ErrorIs(t, err, journal.ErrStoreClosed)
			})

			t.Run("concurrent append", func(t *testing.T) {
				s := factory()
				defer s.Close()

				entries := make([]*journal.Entry, 20)
				for i := range entries {
					entries[i] = newEntry(t, "f", fmt.Sprint(i))
				}

				var wg sync.WaitGroup
				for _, e := range entries {
					wg.Add(1)
					go func(e *journal.Entry) {
						defer wg.Done()
						assert.NoError(t, s.Append(e))
					}(e)
				}
				wg.Wait()

				n, err := s.Count()
				require.NoError(t, err)
				assert.Equal(t, 20, n)
			})
		})
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s1, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	e := newEntry(t, "login", "alice")
	require.NoError(t, s1.Append(e))
	require.NoError(t, s1.Close())

	s2, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Event, got.Event)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := journal.NewSQLiteStore("/nonexistent/path/journal.db")
	assert.Error(t, err)
}

func TestMemoryStore_CopiesEvent(t *testing.T) {
	s := journal.NewMemoryStore()
	e := newEntry(t, "f", "a")
	require.NoError(t, s.Append(e))
	e.Event[0] ^= 0xff

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, e.Event[0], got.Event[0])
}
