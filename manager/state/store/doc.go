// Package store implements the versioned bucket-per-network object store
// the allocation core is written against: a narrow Get/Commit/List
// contract over opaque buckets, with conditional writes keyed off an
// opaque per-object Version.
//
// Two concrete bindings are provided. MemoryStore is grounded on the CAS
// discipline in manager/state/store/memory.go of the teacher repo (its
// curVersion/ErrSequenceConflict check, generalized from swarmkit's
// per-object-type tables to an arbitrary bucket-keyed table using
// hashicorp/go-memdb). BoltStore is a durable binding of the same contract
// on top of go.etcd.io/bbolt, whose native bucket/key-value model maps
// directly onto "one bucket per logical network plus one NIC bucket" and
// whose Tx already gives atomic multi-bucket commits.
package store
