package bolt

import (
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/infra/boltdb"
	"github.com/haukened/rr-callguard/internal/callguard/repos/settings"
)

var bucketSettings = []byte("settings")

const (
	keyBlockingEnabled      = "blocking_enabled"
	keyNotificationsEnabled = "notifications_enabled"
	keyAutoCleanupEnabled   = "auto_cleanup_enabled"
	keyFirstLaunch          = "first_launch"
)

// boltStore keeps one single-byte value per toggle.
type boltStore struct {
	db *bbolt.DB
}

func New(db *bbolt.DB) (settings.Store, error) {
	if err := boltdb.EnsureBuckets(db, bucketSettings); err != nil {
		return nil, err
	}
	return &boltStore{db: db}, nil
}

// fields maps each key to its field on s so Load and Save stay in sync.
func fields(s *domain.Settings) map[string]*bool {
	return map[string]*bool{
		keyBlockingEnabled:      &s.BlockingEnabled,
		keyNotificationsEnabled: &s.NotificationsEnabled,
		keyAutoCleanupEnabled:   &s.AutoCleanupEnabled,
		keyFirstLaunch:          &s.FirstLaunch,
	}
}

func (s *boltStore) Load() (domain.Settings, error) {
	out := domain.DefaultSettings()
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		for k, p := range fields(&out) {
			if v := b.Get([]byte(k)); len(v) == 1 {
				*p = v[0] == 1
			}
		}
		return nil
	})
	return out, err
}

func (s *boltStore) Save(in domain.Settings) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		for k, p := range fields(&in) {
			v := byte(0)
			if *p {
				v = 1
			}
			if err := b.Put([]byte(k), []byte{v}); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ settings.Store = (*boltStore)(nil)
