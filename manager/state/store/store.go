package store

import "github.com/jasonbking/sdc-napi/api"

// Op names the kind of change a batch Item makes.
type Op int

const (
	// OpPut writes Value under Bucket/Key. If ExpectVersion is nil, the key
	// must not already exist (a create); otherwise the stored version must
	// equal *ExpectVersion.
	OpPut Op = iota
	// OpDelete removes Bucket/Key. If ExpectVersion is non-nil, the stored
	// version must match it.
	OpDelete
)

// Item is one conditional operation inside a Batch.
type Item struct {
	Op            Op
	Bucket        string
	Key           string
	Value         interface{}
	ExpectVersion *api.Version
}

// Batch is an ordered list of conditional store operations committed
// atomically: every item applies, or none do.
type Batch []Item

// Filter selects which values List should yield.
type Filter func(value interface{}) bool

// All is a Filter that matches every value in the bucket.
func All(interface{}) bool { return true }

// Store is the narrow contract the allocation core is written against
// (spec §4.2). It intentionally says nothing about wire format, transport,
// or durability; MemoryStore and BoltStore are two concrete bindings.
type Store interface {
	// Get returns the current value and version stored at bucket/key, or
	// an *ErrNotFound.
	Get(bucket, key string) (interface{}, api.Version, error)

	// Commit applies batch atomically. On failure the store is unchanged.
	// The returned error is one of *ErrVersionConflict, *ErrUniqueConflict,
	// *ErrTransient, or *ErrFatal.
	Commit(batch Batch) error

	// List streams every value in bucket matching filter to fn, stopping
	// and returning fn's error if fn returns one. Used by the fabric-member
	// resolver and by the primary-NIC-clearing query (spec §4.6).
	List(bucket string, filter Filter, fn func(value interface{}) error) error
}
