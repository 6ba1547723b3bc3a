package keystore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	levelRecordPrefix = "record:"
	levelUserPrefix   = "user:"
	levelSequenceKey  = "__sequence__"
)

// LevelDBStore stores msgpack-encoded records in a LevelDB directory.
//
// Layout:
//
//	record:<id be64>           -> msgpack(Record)
//	user:<username>\x00<id be64> -> empty
//	__sequence__               -> last assigned id, be64
type LevelDBStore struct {
	db    *leveldb.DB
	users *userLocks

	seqMu sync.Mutex
	seq   int64
}

// OpenLevelDB opens or creates a store in dir.
func OpenLevelDB(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dir, err)
	}

	s := &LevelDBStore{db: db, users: newUserLocks()}

	data, err := db.Get([]byte(levelSequenceKey), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read sequence: %w", err)
	case len(data) != 8:
		db.Close()
		return nil, fmt.Errorf("read sequence: corrupt value of %d bytes", len(data))
	default:
		s.seq = int64(binary.BigEndian.Uint64(data))
	}

	return s, nil
}

func levelRecordKey(id int64) []byte {
	key := make([]byte, len(levelRecordPrefix)+8)
	copy(key, levelRecordPrefix)
	binary.BigEndian.PutUint64(key[len(levelRecordPrefix):], uint64(id))
	return key
}

func levelUserIndexPrefix(username string) []byte {
	return []byte(levelUserPrefix + username + "\x00")
}

func levelUserKey(username string, id int64) []byte {
	prefix := levelUserIndexPrefix(username)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(id))
	return key
}

func (s *LevelDBStore) Put(ctx context.Context, r Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := Validate(r); err != nil {
		return 0, err
	}

	release := s.users.lock(r.Username)
	defer release()

	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	r.ID = s.seq + 1
	data, err := msgpack.Marshal(&r)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(r.ID))

	batch := new(leveldb.Batch)
	batch.Put(levelRecordKey(r.ID), data)
	batch.Put(levelUserKey(r.Username, r.ID), nil)
	batch.Put([]byte(levelSequenceKey), seq[:])
	if err := s.db.Write(batch, nil); err != nil {
		return 0, mapLevelErr(err)
	}

	s.seq = r.ID
	return r.ID, nil
}

func (s *LevelDBStore) Get(ctx context.Context, id int64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.db.Get(levelRecordKey(id), nil)
	if err != nil {
		return nil, mapLevelErr(err)
	}

	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", id, err)
	}
	return &r, nil
}

func (s *LevelDBStore) ListByUsername(ctx context.Context, username string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := levelUserIndexPrefix(username)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var ids []int64
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefix)+8 {
			continue
		}
		ids = append(ids, int64(binary.BigEndian.Uint64(key[len(prefix):])))
	}
	if err := iter.Error(); err != nil {
		return nil, mapLevelErr(err)
	}

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *LevelDBStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}
	return nil
}

func mapLevelErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leveldb.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, leveldb.ErrClosed):
		return ErrClosed
	}
	return err
}
