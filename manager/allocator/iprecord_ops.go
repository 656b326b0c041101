package allocator

import (
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// ipVersion returns a pointer to rec's version suitable for ExpectVersion,
// or nil if rec hasn't been persisted yet (a zero Version means "no
// object exists at this key yet", matching a put with ExpectVersion==nil).
func ipVersion(rec *api.IPRecord) *api.Version {
	if rec.Version == (api.Version{}) {
		return nil
	}
	v := rec.Version
	return &v
}

// ipBatch appends a conditional put of rec as it currently stands.
func ipBatch(rec *api.IPRecord) store.Item {
	return store.Item{
		Op:            store.OpPut,
		Bucket:        api.IPBucket(rec.NetworkUUID),
		Key:           rec.Key(),
		Value:         rec,
		ExpectVersion: ipVersion(rec),
	}
}

// ipUnassignBatch clears ownership on a copy of rec while retaining the
// record, per spec §4.3: the address becomes eligible for re-binding but
// isn't marked free (the owning NIC detached it without releasing it back
// to the free-list, e.g. because ownership had already moved elsewhere).
func ipUnassignBatch(rec *api.IPRecord) store.Item {
	clone := *rec
	clone.BelongsToUUID = ""
	clone.BelongsToType = ""
	clone.OwnerUUID = ""
	return ipBatch(&clone)
}

// ipFreeBatch marks a copy of rec free and clears its ownership, making it
// eligible for both direct re-binding and the randomized next-free scan
// (spec §4.3). Freeing an IP that is already free builds the same clone
// from the same fields, so the conditional put commits against rec's
// current version with no observable change — the idempotent-free
// property of spec §8 falls out of that rather than needing a special
// no-op case.
func ipFreeBatch(rec *api.IPRecord) store.Item {
	clone := *rec
	clone.Free = true
	clone.BelongsToUUID = ""
	clone.BelongsToType = ""
	clone.OwnerUUID = ""
	return ipBatch(&clone)
}
