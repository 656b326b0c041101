package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/jasonbking/sdc-napi/api"
)

func openTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "napi.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStorePutGetRoundTrip(t *testing.T) {
	s := openTestBoltStore(t)
	rec := &api.IPRecord{NetworkUUID: "net-1", OwnerUUID: "owner-1"}

	require.NoError(t, s.Commit(Batch{{Op: OpPut, Bucket: "net-1", Key: "10.0.0.5", Value: rec}}))

	val, version, err := s.Get("net-1", "10.0.0.5")
	require.NoError(t, err)
	got := val.(*api.IPRecord)
	assert.Equal(t, rec.OwnerUUID, got.OwnerUUID)
	assert.Equal(t, api.Version{Index: 1}, version)
}

func TestBoltStoreVersionConflict(t *testing.T) {
	s := openTestBoltStore(t)
	require.NoError(t, s.Commit(Batch{{Op: OpPut, Bucket: "net-1", Key: "k", Value: &api.IPRecord{}}}))

	stale := api.Version{Index: 0}
	err := s.Commit(Batch{{Op: OpPut, Bucket: "net-1", Key: "k", Value: &api.IPRecord{}, ExpectVersion: &stale}})
	require.Error(t, err)
	assert.True(t, IsVersionConflict(err))
}

func TestBoltStoreUniqueConflict(t *testing.T) {
	s := openTestBoltStore(t)
	item := Item{Op: OpPut, Bucket: "net-1", Key: "k", Value: &api.IPRecord{}}
	require.NoError(t, s.Commit(Batch{item}))

	err := s.Commit(Batch{item})
	require.Error(t, err)
	assert.True(t, IsUniqueConflict(err))
}

func TestBoltStoreDeleteRemovesVersion(t *testing.T) {
	s := openTestBoltStore(t)
	require.NoError(t, s.Commit(Batch{{Op: OpPut, Bucket: "nics", Key: "1", Value: &api.NICRecord{MAC: 1}}}))
	_, version, err := s.Get("nics", "1")
	require.NoError(t, err)

	require.NoError(t, s.Commit(Batch{{Op: OpDelete, Bucket: "nics", Key: "1", ExpectVersion: &version}}))
	_, _, err = s.Get("nics", "1")
	assert.True(t, IsNotFound(err))

	// Recreating after a delete must start a fresh version sequence, not
	// resume the deleted key's counter.
	require.NoError(t, s.Commit(Batch{{Op: OpPut, Bucket: "nics", Key: "1", Value: &api.NICRecord{MAC: 1}}}))
	_, version, err = s.Get("nics", "1")
	require.NoError(t, err)
	assert.Equal(t, api.Version{Index: 1}, version)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "napi.db")

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Commit(Batch{{Op: OpPut, Bucket: "net-1", Key: "10.0.0.5", Value: &api.IPRecord{OwnerUUID: "owner-1"}}}))
	require.NoError(t, s.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	val, _, err := reopened.Get("net-1", "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", val.(*api.IPRecord).OwnerUUID)
}

// A bucket written by a pre-v6address version of this store (or restored
// from a legacy dump) holds JSON, not gob, with the address as
// {"octets":[a,b,c,d]}. Get must still re-coerce it to a usable IPRecord
// (spec §4.1).
func TestBoltStoreGetCoercesLegacyIPRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "napi.db")
	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)

	legacy := []byte(`{"address":{"octets":[10,0,0,5]},"network_uuid":"net-1","belongs_to_uuid":"z1","belongs_to_type":"zone","owner_uuid":"owner-1"}`)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("net-1"))
		if err != nil {
			return err
		}
		return b.Put([]byte("10.0.0.5"), legacy)
	}))
	require.NoError(t, db.Close())

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	val, _, err := s.Get("net-1", "10.0.0.5")
	require.NoError(t, err)
	rec := val.(*api.IPRecord)
	assert.Equal(t, "10.0.0.5", rec.Address.String())
	assert.Equal(t, "owner-1", rec.OwnerUUID)
	assert.Equal(t, api.BelongsToZone, rec.BelongsToType)
}

func TestBoltStoreList(t *testing.T) {
	s := openTestBoltStore(t)
	require.NoError(t, s.Commit(Batch{
		{Op: OpPut, Bucket: "nics", Key: "1", Value: &api.NICRecord{MAC: 1, OwnerUUID: "owner-1"}},
		{Op: OpPut, Bucket: "nics", Key: "2", Value: &api.NICRecord{MAC: 2, OwnerUUID: "owner-2"}},
	}))

	var owners []string
	err := s.List("nics", All, func(value interface{}) error {
		owners = append(owners, value.(*api.NICRecord).OwnerUUID)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owner-1", "owner-2"}, owners)
}
