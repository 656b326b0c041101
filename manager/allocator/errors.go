package allocator

import "fmt"

// Every error type in this package implements stopper so the driver can
// test Stop(err) instead of threading a separate boolean alongside each
// error return, per spec §4.6/§7.
type stopper interface {
	Stop() bool
}

// Stop reports whether err should end the allocation retry loop rather
// than trigger another iteration. Errors this package doesn't know about
// (store.ErrTransient, a bare store.ErrVersionConflict that hasn't yet
// been turned into a provisioner decision) are treated as non-stopping.
func Stop(err error) bool {
	if s, ok := err.(stopper); ok {
		return s.Stop()
	}
	return false
}

type errInvalidParams struct {
	fields []string
}

// ErrInvalidParams indicates one or more caller-supplied fields failed
// validation. Non-retryable, user-facing.
func ErrInvalidParams(fields ...string) error {
	return errInvalidParams{fields: fields}
}

func (e errInvalidParams) Error() string {
	return fmt.Sprintf("invalid_params: %v", e.fields)
}

func (e errInvalidParams) Stop() bool { return true }

// IsErrInvalidParams reports whether err is an ErrInvalidParams.
func IsErrInvalidParams(err error) bool {
	_, ok := err.(errInvalidParams)
	return ok
}

// Fields returns the offending field names, for building an HTTP-ready
// structured error per spec §7.
func Fields(err error) []string {
	if e, ok := err.(errInvalidParams); ok {
		return e.fields
	}
	return nil
}

type errDuplicateParam struct {
	field string
}

// ErrDuplicateParam indicates a caller-supplied identifier (typically mac)
// collides with one already committed. Non-retryable.
func ErrDuplicateParam(field string) error {
	return errDuplicateParam{field: field}
}

func (e errDuplicateParam) Error() string {
	return fmt.Sprintf("duplicate_param: %s", e.field)
}

func (e errDuplicateParam) Stop() bool { return true }

// IsErrDuplicateParam reports whether err is an ErrDuplicateParam, and
// which field it names. errMACDuplicate (spec §4.5's internal
// "mac_duplicate" name for this same condition) also satisfies this check,
// reporting field "mac" — spec §7/§8 describe the caller-visible form of a
// colliding caller-supplied MAC as duplicate_param{field:"mac"}, not as a
// separately named user-facing kind.
func IsErrDuplicateParam(err error) (string, bool) {
	switch e := err.(type) {
	case errDuplicateParam:
		return e.field, true
	case errMACDuplicate:
		return "mac", true
	default:
		return "", false
	}
}

type errIPInUse struct {
	field         string
	belongsToType string
	belongsToUUID string
}

// ErrIPInUse indicates the caller named a specific address that is already
// owned by someone else. Non-retryable: no amount of retrying finds this
// address free, since the caller asked for it by name.
func ErrIPInUse(field, belongsToType, belongsToUUID string) error {
	return errIPInUse{field: field, belongsToType: belongsToType, belongsToUUID: belongsToUUID}
}

func (e errIPInUse) Error() string {
	return fmt.Sprintf("ip_in_use(%s): owned by %s %s", e.field, e.belongsToType, e.belongsToUUID)
}

func (e errIPInUse) Stop() bool { return true }

// IsErrIPInUse reports whether err is an ErrIPInUse.
func IsErrIPInUse(err error) bool {
	_, ok := err.(errIPInUse)
	return ok
}

type errIPUsedBy struct {
	belongsToType string
	belongsToUUID string
}

// ErrIPUsedBy is raised by the update reconciler (spec §4.7 step 4) when a
// new IP it was asked to move to is not provisionable.
func ErrIPUsedBy(belongsToType, belongsToUUID string) error {
	return errIPUsedBy{belongsToType: belongsToType, belongsToUUID: belongsToUUID}
}

func (e errIPUsedBy) Error() string {
	return fmt.Sprintf("ip_used_by(%s, %s)", e.belongsToType, e.belongsToUUID)
}

func (e errIPUsedBy) Stop() bool { return true }

// IsErrIPUsedBy reports whether err is an ErrIPUsedBy.
func IsErrIPUsedBy(err error) bool {
	_, ok := err.(errIPUsedBy)
	return ok
}

type errSubnetFull struct {
	networkUUID string
}

// ErrSubnetFull indicates a single network's address range has been fully
// scanned with no free slot. Retryable by switching networks when part of
// a pool; non-retryable standing alone (the pool provisioner is the only
// caller equipped to turn this into a network swap).
//
// Counted here rather than in logRetry: both this and ErrPoolFull are
// always Stop()==true, so neither ever reaches the driver's retry-logging
// path (stopping errors return immediately, never populating c.Err).
func ErrSubnetFull(networkUUID string) error {
	subnetExhausted.Inc()
	return errSubnetFull{networkUUID: networkUUID}
}

func (e errSubnetFull) Error() string {
	return fmt.Sprintf("subnet_full: %s", e.networkUUID)
}

func (e errSubnetFull) Stop() bool { return true }

// IsErrSubnetFull reports whether err is an ErrSubnetFull, and which
// network it names.
func IsErrSubnetFull(err error) (string, bool) {
	e, ok := err.(errSubnetFull)
	return e.networkUUID, ok
}

type errPoolFull struct {
	field string
}

// ErrPoolFull indicates every network in a pool has been exhausted.
// Non-retryable.
func ErrPoolFull(field string) error {
	poolExhausted.Inc()
	return errPoolFull{field: field}
}

func (e errPoolFull) Error() string {
	return fmt.Sprintf("pool_full(%s)", e.field)
}

func (e errPoolFull) Stop() bool { return true }

// IsErrPoolFull reports whether err is an ErrPoolFull.
func IsErrPoolFull(err error) bool {
	_, ok := err.(errPoolFull)
	return ok
}

type errNoFreeMAC struct{}

// ErrNoFreeMAC indicates the MAC generator exhausted its configured
// retries without finding an unused suffix. Non-retryable.
func ErrNoFreeMAC() error {
	return errNoFreeMAC{}
}

func (errNoFreeMAC) Error() string { return "no_free_mac" }

func (errNoFreeMAC) Stop() bool { return true }

// IsErrNoFreeMAC reports whether err is an ErrNoFreeMAC.
func IsErrNoFreeMAC(err error) bool {
	_, ok := err.(errNoFreeMAC)
	return ok
}

type errMACDuplicate struct{}

// ErrMACDuplicate indicates a caller-supplied MAC collided with an
// existing NIC. Non-retryable.
func ErrMACDuplicate() error {
	return errMACDuplicate{}
}

func (errMACDuplicate) Error() string { return "mac_duplicate" }

func (errMACDuplicate) Stop() bool { return true }

// IsErrMACDuplicate reports whether err is an ErrMACDuplicate.
func IsErrMACDuplicate(err error) bool {
	_, ok := err.(errMACDuplicate)
	return ok
}

type errNotFound struct {
	kind string
	id   string
}

// ErrNotFound indicates an update or delete target does not exist.
func ErrNotFound(kind, id string) error {
	return errNotFound{kind: kind, id: id}
}

func (e errNotFound) Error() string {
	return fmt.Sprintf("not_found: %s %s", e.kind, e.id)
}

func (e errNotFound) Stop() bool { return true }

// IsErrNotFound reports whether err is an ErrNotFound.
func IsErrNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}
