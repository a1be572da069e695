package settings

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/infra/boltdb"
	settingsbolt "github.com/haukened/rr-callguard/internal/callguard/repos/settings/bolt"
)

type failingStore struct {
	loadErr error
	saveErr error
}

func (f failingStore) Load() (domain.Settings, error) { return domain.DefaultSettings(), f.loadErr }
func (f failingStore) Save(domain.Settings) error     { return f.saveErr }

func TestService_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callguard.db")
	db, err := boltdb.Open(path)
	require.NoError(t, err)
	st, err := settingsbolt.New(db)
	require.NoError(t, err)

	svc, err := NewService(st, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), svc.Get())

	_, err = svc.Update(func(s *domain.Settings) { s.BlockingEnabled = false })
	require.NoError(t, err)
	require.NoError(t, svc.CompleteFirstLaunch())
	require.NoError(t, db.Close())

	db, err = boltdb.Open(path)
	require.NoError(t, err)
	defer db.Close()
	st, err = settingsbolt.New(db)
	require.NoError(t, err)
	svc, err = NewService(st, nil)
	require.NoError(t, err)

	got := svc.Get()
	assert.False(t, got.BlockingEnabled)
	assert.False(t, got.FirstLaunch)
	assert.True(t, got.AutoCleanupEnabled)
}

func TestService_SaveFailureKeepsInMemory(t *testing.T) {
	svc, err := NewService(failingStore{saveErr: errors.New("read-only")}, nil)
	require.NoError(t, err)

	_, err = svc.Replace(domain.Settings{})
	assert.Error(t, err)
	assert.Equal(t, domain.DefaultSettings(), svc.Get())
}

func TestService_LoadFailure(t *testing.T) {
	_, err := NewService(failingStore{loadErr: errors.New("corrupt")}, nil)
	assert.Error(t, err)
}

func TestService_ConcurrentUpdates(t *testing.T) {
	svc, err := NewService(failingStore{}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Update(func(s *domain.Settings) { s.NotificationsEnabled = !s.NotificationsEnabled })
			_ = svc.Get()
		}()
	}
	wg.Wait()
	// an even number of flips lands back on the default
	assert.False(t, svc.Get().NotificationsEnabled)
}
