package bolt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/infra/boltdb"
	"github.com/haukened/rr-callguard/internal/callguard/repos/calllog"
)

var (
	bucketCalls  = []byte("calls")         // id -> JSON record
	bucketByTime = []byte("calls_by_time") // timeKey(ts) || id -> empty
)

// boltStore implements calllog.Store. The by-time bucket is a secondary index
// that gives ordered scans and range counts without decoding records.
type boltStore struct {
	db *bbolt.DB
}

// New ensures the call log buckets exist on db and returns a Store over it.
func New(db *bbolt.DB) (calllog.Store, error) {
	if err := boltdb.EnsureBuckets(db, bucketCalls, bucketByTime); err != nil {
		return nil, err
	}
	return &boltStore{db: db}, nil
}

// timeKey encodes ts so that byte order matches numeric order, negatives included.
func timeKey(ts int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(ts)^(1<<63))
	return b
}

func indexKey(ts int64, id uint64) []byte {
	return append(timeKey(ts), boltdb.Itob(id)...)
}

func indexTime(k []byte) int64 {
	return int64(binary.BigEndian.Uint64(k[:8]) ^ (1 << 63))
}

func indexID(k []byte) []byte { return k[8:16] }

func (s *boltStore) ListAll() ([]domain.BlockedCallRecord, error) {
	return s.newest(-1)
}

func (s *boltStore) ListRecent(limit int) ([]domain.BlockedCallRecord, error) {
	if limit <= 0 {
		return []domain.BlockedCallRecord{}, nil
	}
	return s.newest(limit)
}

// newest walks the index backwards; limit < 0 means unbounded.
func (s *boltStore) newest(limit int) ([]domain.BlockedCallRecord, error) {
	out := []domain.BlockedCallRecord{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		calls := tx.Bucket(bucketCalls)
		c := tx.Bucket(bucketByTime).Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			if limit >= 0 && len(out) >= limit {
				break
			}
			v := calls.Get(indexID(k))
			if v == nil {
				continue
			}
			rec, err := decode(v)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) Get(id uint64) (domain.BlockedCallRecord, bool, error) {
	var (
		rec   domain.BlockedCallRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketCalls).Get(boltdb.Itob(id))
		if v == nil {
			return nil
		}
		var err error
		rec, err = decode(v)
		found = err == nil
		return err
	})
	return rec, found, err
}

func (s *boltStore) CountSince(start int64) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketByTime).Cursor()
		for k, _ := c.Seek(timeKey(start)); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *boltStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketCalls).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *boltStore) Insert(rec domain.BlockedCallRecord) (uint64, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		calls := tx.Bucket(bucketCalls)
		idx := tx.Bucket(bucketByTime)
		if rec.ID == domain.UnassignedID {
			id, err := calls.NextSequence()
			if err != nil {
				return err
			}
			rec.ID = id
		} else {
			if err := unindex(calls, idx, rec.ID); err != nil {
				return err
			}
			if rec.ID > calls.Sequence() {
				if err := calls.SetSequence(rec.ID); err != nil {
					return err
				}
			}
		}
		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode call record: %w", err)
		}
		if err := calls.Put(boltdb.Itob(rec.ID), v); err != nil {
			return err
		}
		return idx.Put(indexKey(rec.Timestamp, rec.ID), nil)
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// unindex removes the index entry of the record currently stored under id, if any.
func unindex(calls, idx *bbolt.Bucket, id uint64) error {
	v := calls.Get(boltdb.Itob(id))
	if v == nil {
		return nil
	}
	old, err := decode(v)
	if err != nil {
		return err
	}
	return idx.Delete(indexKey(old.Timestamp, id))
}

func (s *boltStore) Delete(id uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		calls := tx.Bucket(bucketCalls)
		if err := unindex(calls, tx.Bucket(bucketByTime), id); err != nil {
			return err
		}
		return calls.Delete(boltdb.Itob(id))
	})
}

func (s *boltStore) DeleteAll() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(bucketCalls).Sequence()
		for _, name := range [][]byte{bucketCalls, bucketByTime} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketCalls).SetSequence(seq)
	})
}

// DeleteOlderThan collects expired index keys first, then deletes them:
// deleting under a live cursor can skip entries.
func (s *boltStore) DeleteOlderThan(before int64) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		calls := tx.Bucket(bucketCalls)
		idx := tx.Bucket(bucketByTime)
		var expired [][]byte
		c := idx.Cursor()
		for k, _ := c.First(); k != nil && indexTime(k) < before; k, _ = c.Next() {
			expired = append(expired, bytes.Clone(k))
		}
		for _, k := range expired {
			if err := calls.Delete(indexID(k)); err != nil {
				return err
			}
			if err := idx.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func decode(v []byte) (domain.BlockedCallRecord, error) {
	var rec domain.BlockedCallRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return domain.BlockedCallRecord{}, fmt.Errorf("decode call record: %w", err)
	}
	return rec, nil
}

var _ calllog.Store = (*boltStore)(nil)
