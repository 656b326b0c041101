package allocator

import (
	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// nicVersion returns a pointer to rec's version suitable for
// ExpectVersion, or nil for a brand-new record (mirrors ipVersion).
func nicVersion(rec *api.NICRecord) *api.Version {
	if rec.Version == (api.Version{}) {
		return nil
	}
	v := rec.Version
	return &v
}

// nicBatch appends a conditional put of rec as it currently stands.
func nicBatch(rec *api.NICRecord) store.Item {
	return store.Item{
		Op:            store.OpPut,
		Bucket:        api.NICBucket,
		Key:           addr.MACKey(rec.MAC),
		Value:         rec,
		ExpectVersion: nicVersion(rec),
	}
}

// nicDeleteBatch appends a conditional delete of rec.
func nicDeleteBatch(rec *api.NICRecord) store.Item {
	return store.Item{
		Op:            store.OpDelete,
		Bucket:        api.NICBucket,
		Key:           addr.MACKey(rec.MAC),
		ExpectVersion: nicVersion(rec),
	}
}

// primaryUnsetBatches returns conditional puts clearing Primary on every
// other NIC owned by ownerUUID, implementing the primary-NIC rule (spec
// §4.6): when the new NIC is primary, every sibling NIC of the same owner
// loses the flag in the same atomic commit.
func primaryUnsetBatches(st store.Store, ownerUUID string, skipMAC uint64) ([]store.Item, error) {
	var macs []uint64
	err := st.List(api.NICBucket, store.All, func(value interface{}) error {
		rec, ok := value.(*api.NICRecord)
		if !ok || !rec.Primary || rec.OwnerUUID != ownerUUID || rec.MAC == skipMAC {
			return nil
		}
		macs = append(macs, rec.MAC)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// List yields values without their store versions, so each sibling is
	// re-read to condition its put on the version actually stored.
	var items []store.Item
	for _, mac := range macs {
		val, version, err := st.Get(api.NICBucket, addr.MACKey(mac))
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		clone := *(val.(*api.NICRecord))
		clone.Primary = false
		clone.Version = version
		items = append(items, nicBatch(&clone))
	}
	return items, nil
}
