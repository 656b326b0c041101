// Package api holds the plain data types shared across the allocation
// core: logical networks and pools, the per-address and per-MAC records
// persisted in the store, and the subset of each that is safe to hand back
// to a caller. These are not wire types; the HTTP-facing schema that (de)
// serializes requests into these structs lives outside this module.
package api
