package store

import (
	"errors"
	"sync"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/jasonbking/sdc-napi/api"
)

const (
	tableEntries = "entries"
	indexID      = "id"
	indexBucket  = "bucket"
	indexOwner   = "owner"
)

var memSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableEntries: {
			Name: tableEntries,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: idIndexer{},
				},
				indexBucket: {
					Name:    indexBucket,
					Indexer: bucketIndexer{},
				},
				indexOwner: {
					Name:         indexOwner,
					AllowMissing: true,
					Indexer:      ownerIndexer{},
				},
			},
		},
	},
}

// entry is the generic row stored in the memdb table; Bucket/Key give it
// its place in the abstract bucket-per-network layout, Value is the
// caller's record (an *api.IPRecord or *api.NICRecord), and Version is the
// opaque CAS tag handed back from Get and checked on the next write.
//
// Grounded on manager/state/store/memory.go's curVersion/ErrSequenceConflict
// check in the teacher repo, generalized from one memdb table per
// swarmkit object type to one table shared by every bucket.
type entry struct {
	bucket  string
	key     string
	value   interface{}
	version api.Version
}

func (e *entry) owner() string {
	switch v := e.value.(type) {
	case *api.NICRecord:
		return v.OwnerUUID
	case *api.IPRecord:
		return v.OwnerUUID
	default:
		return ""
	}
}

func idOf(bucket, key string) string {
	return bucket + "\x00" + key
}

type idIndexer struct{}

func (idIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.New("id index requires a single argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, errors.New("id index argument must be a string")
	}
	return []byte(s + "\x00"), nil
}

func (idIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	e := obj.(*entry)
	return true, []byte(idOf(e.bucket, e.key) + "\x00"), nil
}

type bucketIndexer struct{}

func (bucketIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.New("bucket index requires a single argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, errors.New("bucket index argument must be a string")
	}
	return []byte(s + "\x00"), nil
}

func (bucketIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	e := obj.(*entry)
	return true, []byte(e.bucket + "\x00"), nil
}

type ownerIndexer struct{}

func (ownerIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.New("owner index requires a single argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, errors.New("owner index argument must be a string")
	}
	return []byte(s + "\x00"), nil
}

func (ownerIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	e := obj.(*entry)
	if e.owner() == "" {
		return false, nil, nil
	}
	return true, []byte(e.owner() + "\x00"), nil
}

// MemoryStore is a concurrency-safe, in-memory Store implementation.
// updateLock serializes Commit the same way the teacher's MemoryStore
// serializes its Batch/Update calls; readers never block behind it because
// memdb's Txn(false) snapshots the table.
type MemoryStore struct {
	updateLock sync.Mutex
	db         *memdb.MemDB
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	db, err := memdb.NewMemDB(memSchema)
	if err != nil {
		// The schema above is static and known-good; a failure here would
		// mean this package itself is broken.
		panic(err)
	}
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Get(bucket, key string) (interface{}, api.Version, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableEntries, indexID, idOf(bucket, key))
	if err != nil {
		return nil, api.Version{}, &ErrFatal{Cause: err}
	}
	if raw == nil {
		return nil, api.Version{}, &ErrNotFound{Bucket: bucket, Key: key}
	}
	e := raw.(*entry)
	return e.value, e.version, nil
}

func (s *MemoryStore) Commit(batch Batch) error {
	s.updateLock.Lock()
	defer s.updateLock.Unlock()

	txn := s.db.Txn(true)

	for _, item := range batch {
		if err := applyItem(txn, item); err != nil {
			txn.Abort()
			return err
		}
	}

	txn.Commit()
	return nil
}

func applyItem(txn *memdb.Txn, item Item) error {
	raw, err := txn.First(tableEntries, indexID, idOf(item.Bucket, item.Key))
	if err != nil {
		return &ErrFatal{Cause: err}
	}
	var existing *entry
	if raw != nil {
		existing = raw.(*entry)
	}

	switch item.Op {
	case OpPut:
		if item.ExpectVersion == nil {
			if existing != nil {
				return &ErrUniqueConflict{Bucket: item.Bucket, Key: item.Key}
			}
			return insertEntry(txn, item, api.Version{Index: 1})
		}
		if existing == nil || !existing.version.Equal(*item.ExpectVersion) {
			return &ErrVersionConflict{Bucket: item.Bucket, Key: item.Key}
		}
		return insertEntry(txn, item, existing.version.Next())

	case OpDelete:
		if existing == nil {
			if item.ExpectVersion != nil {
				return &ErrVersionConflict{Bucket: item.Bucket, Key: item.Key}
			}
			return nil
		}
		if item.ExpectVersion != nil && !existing.version.Equal(*item.ExpectVersion) {
			return &ErrVersionConflict{Bucket: item.Bucket, Key: item.Key}
		}
		if err := txn.Delete(tableEntries, existing); err != nil {
			return &ErrFatal{Cause: err}
		}
		return nil

	default:
		return &ErrFatal{Cause: errors.New("unknown batch op")}
	}
}

func insertEntry(txn *memdb.Txn, item Item, version api.Version) error {
	e := &entry{
		bucket:  item.Bucket,
		key:     item.Key,
		value:   item.Value,
		version: version,
	}
	if err := txn.Insert(tableEntries, e); err != nil {
		return &ErrFatal{Cause: err}
	}
	return nil
}

func (s *MemoryStore) List(bucket string, filter Filter, fn func(value interface{}) error) error {
	if filter == nil {
		filter = All
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableEntries, indexBucket, bucket)
	if err != nil {
		return &ErrFatal{Cause: err}
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		e := raw.(*entry)
		if !filter(e.value) {
			continue
		}
		if err := fn(e.value); err != nil {
			return err
		}
	}
	return nil
}
