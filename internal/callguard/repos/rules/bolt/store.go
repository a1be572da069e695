package bolt

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/infra/boltdb"
	"github.com/haukened/rr-callguard/internal/callguard/repos/rules"
)

var bucketRules = []byte("rules")

// boltStore implements rules.Store on a bbolt bucket keyed by big-endian id.
// Values are JSON-encoded domain.PrefixRule.
type boltStore struct {
	db *bbolt.DB
}

// New ensures the rules bucket exists on db and returns a Store over it.
// The caller keeps ownership of db.
func New(db *bbolt.DB) (rules.Store, error) {
	if err := boltdb.EnsureBuckets(db, bucketRules); err != nil {
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) ListAll() ([]domain.PrefixRule, error) {
	return s.list(func(domain.PrefixRule) bool { return true })
}

func (s *boltStore) ListEnabled() ([]domain.PrefixRule, error) {
	return s.list(func(r domain.PrefixRule) bool { return r.Enabled })
}

func (s *boltStore) list(keep func(domain.PrefixRule) bool) ([]domain.PrefixRule, error) {
	out := []domain.PrefixRule{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRules).ForEach(func(_, v []byte) error {
			r, err := decode(v)
			if err != nil {
				return err
			}
			if keep(r) {
				out = append(out, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders by CreatedAt desc, then id desc.
func sortNewestFirst(rs []domain.PrefixRule) {
	slices.SortFunc(rs, func(a, b domain.PrefixRule) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func (s *boltStore) Get(id uint64) (domain.PrefixRule, bool, error) {
	var (
		r     domain.PrefixRule
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRules).Get(boltdb.Itob(id))
		if v == nil {
			return nil
		}
		var err error
		r, err = decode(v)
		found = err == nil
		return err
	})
	return r, found, err
}

func (s *boltStore) Exists(pattern string) (bool, error) {
	var present bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRules).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			r, err := decode(v)
			if err != nil {
				return err
			}
			if r.Pattern == pattern {
				present = true
				return nil
			}
		}
		return nil
	})
	return present, err
}

func (s *boltStore) Insert(rule domain.PrefixRule) (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		id, err = put(tx.Bucket(bucketRules), rule)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *boltStore) InsertBatch(rs []domain.PrefixRule) ([]uint64, error) {
	ids := make([]uint64, 0, len(rs))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRules)
		for _, r := range rs {
			id, err := put(b, r)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// put writes rule as insert-or-replace by primary key. Explicit ids above the
// bucket sequence advance it so later generated ids never collide.
func put(b *bbolt.Bucket, rule domain.PrefixRule) (uint64, error) {
	if !rule.HasID() {
		id, err := b.NextSequence()
		if err != nil {
			return 0, err
		}
		rule.ID = id
	} else if rule.ID > b.Sequence() {
		if err := b.SetSequence(rule.ID); err != nil {
			return 0, err
		}
	}
	v, err := json.Marshal(rule)
	if err != nil {
		return 0, fmt.Errorf("encode rule: %w", err)
	}
	if err := b.Put(boltdb.Itob(rule.ID), v); err != nil {
		return 0, err
	}
	return rule.ID, nil
}

func (s *boltStore) Update(rule domain.PrefixRule) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRules)
		key := boltdb.Itob(rule.ID)
		if !rule.HasID() || b.Get(key) == nil {
			return fmt.Errorf("%w: id %d", rules.ErrNotFound, rule.ID)
		}
		v, err := json.Marshal(rule)
		if err != nil {
			return fmt.Errorf("encode rule: %w", err)
		}
		return b.Put(key, v)
	})
}

func (s *boltStore) Delete(id uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRules).Delete(boltdb.Itob(id))
	})
}

// DeleteAll drops and recreates the bucket, carrying the id sequence over so
// ids are never reused.
func (s *boltStore) DeleteAll() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(bucketRules).Sequence()
		if err := tx.DeleteBucket(bucketRules); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketRules)
		if err != nil {
			return err
		}
		return b.SetSequence(seq)
	})
}

func (s *boltStore) Stats() (rules.StoreStats, error) {
	var st rules.StoreStats
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRules).ForEach(func(_, v []byte) error {
			r, err := decode(v)
			if err != nil {
				return err
			}
			st.Total++
			if r.Enabled {
				st.Enabled++
			}
			return nil
		})
	})
	return st, err
}

func decode(v []byte) (domain.PrefixRule, error) {
	var r domain.PrefixRule
	if err := json.Unmarshal(v, &r); err != nil {
		return domain.PrefixRule{}, fmt.Errorf("decode rule: %w", err)
	}
	return r, nil
}

var _ rules.Store = (*boltStore)(nil)
