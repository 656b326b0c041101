// Package allocator implements the NIC/IP allocation engine: the
// provisioner strategies that pick candidate addresses, the NIC-selection
// functions that pick or validate a MAC, the retry loop that composes them
// against the versioned store, and the update/delete paths built on top of
// it.
//
// Grounded on manager/allocator/network/errors (error style) and
// manager/allocator/allocator.go (Run/Stop shape) in the teacher repo;
// the retry-on-conflict discipline itself is grounded on
// manager/state/store's ErrSequenceConflict handling, generalized to this
// package's store.ErrVersionConflict/ErrUniqueConflict.
package allocator
