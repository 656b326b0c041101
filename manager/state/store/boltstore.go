package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
)

func init() {
	gob.Register(&api.IPRecord{})
	gob.Register(&api.NICRecord{})
	gob.Register(&api.VnetMember{})
}

// versionBucketSuffix names the nested bucket, within every top-level
// bucket, that holds each key's version counter. bbolt has no notion of a
// per-key version, so it's tracked alongside the value the same way a real
// on-disk NAPI store would carry an etag column next to the row.
const versionBucketSuffix = "\x00versions"

// BoltStore is a durable Store binding on top of go.etcd.io/bbolt. Each
// spec bucket (one per logical network, plus the single NIC bucket) is a
// top-level bbolt bucket; bbolt's Tx already gives atomic multi-bucket
// commits, so Commit needs no extra bookkeeping beyond the per-item CAS
// check the in-memory store also performs.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) a BoltStore at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, &ErrFatal{Cause: errors.Wrapf(err, "open %s", path)}
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(bucket, key string) (interface{}, api.Version, error) {
	var (
		value   interface{}
		version api.Version
		found   bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		v, err := decodeValue(raw)
		if err != nil {
			return &ErrFatal{Cause: errors.Wrapf(err, "decode %s/%s", bucket, key)}
		}
		value = v
		version = readVersion(b, key)
		return nil
	})
	if err != nil {
		return nil, api.Version{}, err
	}
	if !found {
		return nil, api.Version{}, &ErrNotFound{Bucket: bucket, Key: key}
	}
	return value, version, nil
}

func (s *BoltStore) Commit(batch Batch) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, item := range batch {
			b, err := tx.CreateBucketIfNotExists([]byte(item.Bucket))
			if err != nil {
				return &ErrFatal{Cause: errors.Wrapf(err, "create bucket %s", item.Bucket)}
			}
			if err := applyBoltItem(b, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyBoltItem(b *bolt.Bucket, item Item) error {
	existingRaw := b.Get([]byte(item.Key))
	hasExisting := existingRaw != nil
	existingVersion := readVersion(b, item.Key)

	switch item.Op {
	case OpPut:
		if item.ExpectVersion == nil {
			if hasExisting {
				return &ErrUniqueConflict{Bucket: item.Bucket, Key: item.Key}
			}
			return putBolt(b, item.Key, item.Value, api.Version{Index: 1})
		}
		if !hasExisting || !existingVersion.Equal(*item.ExpectVersion) {
			return &ErrVersionConflict{Bucket: item.Bucket, Key: item.Key}
		}
		return putBolt(b, item.Key, item.Value, existingVersion.Next())

	case OpDelete:
		if !hasExisting {
			if item.ExpectVersion != nil {
				return &ErrVersionConflict{Bucket: item.Bucket, Key: item.Key}
			}
			return nil
		}
		if item.ExpectVersion != nil && !existingVersion.Equal(*item.ExpectVersion) {
			return &ErrVersionConflict{Bucket: item.Bucket, Key: item.Key}
		}
		if err := b.Delete([]byte(item.Key)); err != nil {
			return &ErrFatal{Cause: errors.Wrapf(err, "delete %s/%s", item.Bucket, item.Key)}
		}
		return deleteVersion(b, item.Key)

	default:
		return &ErrFatal{Cause: errUnknownOp}
	}
}

var errUnknownOp = errors.New("unknown batch op")

func putBolt(b *bolt.Bucket, key string, value interface{}, version api.Version) error {
	raw, err := encodeValue(value)
	if err != nil {
		return &ErrFatal{Cause: errors.Wrapf(err, "encode %s", key)}
	}
	if err := b.Put([]byte(key), raw); err != nil {
		return &ErrFatal{Cause: errors.Wrapf(err, "put %s", key)}
	}
	return writeVersion(b, key, version)
}

func versionsBucket(b *bolt.Bucket) (*bolt.Bucket, error) {
	return b.CreateBucketIfNotExists([]byte(versionBucketSuffix))
}

func writeVersion(b *bolt.Bucket, key string, version api.Version) error {
	vb, err := versionsBucket(b)
	if err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], version.Index)
	return vb.Put([]byte(key), buf[:])
}

func readVersion(b *bolt.Bucket, key string) api.Version {
	vb := b.Bucket([]byte(versionBucketSuffix))
	if vb == nil {
		return api.Version{}
	}
	raw := vb.Get([]byte(key))
	if raw == nil {
		return api.Version{}
	}
	return api.Version{Index: binary.BigEndian.Uint64(raw)}
}

func deleteVersion(b *bolt.Bucket, key string) error {
	vb := b.Bucket([]byte(versionBucketSuffix))
	if vb == nil {
		return nil
	}
	return vb.Delete([]byte(key))
}

func encodeValue(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(raw []byte) (interface{}, error) {
	var value interface{}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&value); err != nil {
		if rec, legacyErr := decodeLegacyIPRecord(raw); legacyErr == nil {
			return rec, nil
		}
		return nil, err
	}
	return value, nil
}

// legacyIPRecordWire is the pre-v6address on-disk shape (spec §4.1): a
// bucket written by an older version of this store, or imported from a
// legacy dump, before IPRecord.Address became a gob-encoded net.IP.
type legacyIPRecordWire struct {
	Address       addr.LegacyOctets `json:"address"`
	NetworkUUID   string            `json:"network_uuid"`
	Reserved      bool              `json:"reserved"`
	BelongsToUUID string            `json:"belongs_to_uuid"`
	BelongsToType api.BelongsToType `json:"belongs_to_type"`
	OwnerUUID     string            `json:"owner_uuid"`
	Free          bool              `json:"free"`
}

// decodeLegacyIPRecord is the fallback decodeValue takes when raw isn't a
// gob-encoded value this store wrote itself: a JSON-shaped legacy record
// with address as {"octets":[a,b,c,d]}, re-coerced via addr.CoerceLegacy.
func decodeLegacyIPRecord(raw []byte) (*api.IPRecord, error) {
	var wire legacyIPRecordWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	return &api.IPRecord{
		Address:       addr.CoerceLegacy(wire.Address),
		NetworkUUID:   wire.NetworkUUID,
		Reserved:      wire.Reserved,
		BelongsToUUID: wire.BelongsToUUID,
		BelongsToType: wire.BelongsToType,
		OwnerUUID:     wire.OwnerUUID,
		Free:          wire.Free,
	}, nil
}

func (s *BoltStore) List(bucket string, filter Filter, fn func(value interface{}) error) error {
	if filter == nil {
		filter = All
	}
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if string(k) == versionBucketSuffix {
				return nil
			}
			if v == nil {
				// nested bucket (the version sub-bucket); skip.
				return nil
			}
			value, err := decodeValue(v)
			if err != nil {
				return &ErrFatal{Cause: errors.Wrapf(err, "decode %s/%s", bucket, string(k))}
			}
			if !filter(value) {
				return nil
			}
			return fn(value)
		})
	})
}
