package allocator

import (
	"math/rand"
	"net"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// Provisioner is the shared contract of the three address-selection
// strategies (spec §4.4). Each mutates c.Batch/c.IPs, consulting c.Err
// (the previous iteration's commit failure) to decide whether to keep or
// replace its candidate.
//
// This corresponds to the "Provisioner base + three subclasses" design
// note (§9): the inheritance hierarchy becomes a three-way tagged variant
// here, expressed as three independent implementations of one interface
// rather than a base struct, since they share no mutable state — only the
// free helper functions below (fetchOrNewIP, applyIPOwnership,
// versionConflictOn) correspond to the source's fetchNextIP/batchIP/
// haveEtagFailure helpers.
type Provisioner interface {
	Provision(c *Ctx) error
}

// versionConflictOn reports whether err is a store conflict — of either
// flavor the commit taxonomy distinguishes (spec §4.2) — that landed on
// this exact bucket/key. A brand-new candidate (never-before-seen IP or
// MAC) is put with ExpectVersion=nil, so two concurrent claimants race
// into ErrUniqueConflict rather than ErrVersionConflict; from a
// provisioner's perspective both mean the same thing — "someone else just
// took this candidate, pick another" — so both are treated as the same
// signal here.
func versionConflictOn(err error, bucket, key string) bool {
	switch e := err.(type) {
	case *store.ErrVersionConflict:
		return e.Bucket == bucket && e.Key == key
	case *store.ErrUniqueConflict:
		return e.Bucket == bucket && e.Key == key
	default:
		return false
	}
}

// fetchOrNewIP loads the current IPRecord at (networkUUID, ip), or
// constructs a fresh zero-version one if none exists yet.
func fetchOrNewIP(c *Ctx, networkUUID string, ip net.IP) (*api.IPRecord, error) {
	bucket := api.IPBucket(networkUUID)
	val, version, err := c.Store.Get(bucket, addr.CanonicalIP(ip))
	switch {
	case store.IsNotFound(err):
		return &api.IPRecord{Address: ip, NetworkUUID: networkUUID}, nil
	case err != nil:
		return nil, err
	}
	rec := *(val.(*api.IPRecord))
	rec.Version = version
	return &rec, nil
}

// applyIPOwnership stamps rec with the requesting NIC's ownership fields.
// Reserved is only set on brand-new records; an existing reservation is
// left untouched by provisioning.
func applyIPOwnership(rec *api.IPRecord, base BaseParams) {
	rec.BelongsToUUID = base.BelongsToUUID
	rec.BelongsToType = base.BelongsToType
	rec.OwnerUUID = base.OwnerUUID
	rec.Free = false
	if rec.Version == (api.Version{}) {
		rec.Reserved = base.Reserved
	}
}

// ipProvisioner implements IPProvision: the caller named a specific
// address.
type ipProvisioner struct {
	ip          net.IP
	networkUUID string
	field       string
}

// NewIPProvisioner returns the provisioner used when the caller asked for
// a specific address on a specific network.
func NewIPProvisioner(ip net.IP, networkUUID, field string) Provisioner {
	return &ipProvisioner{ip: ip, networkUUID: networkUUID, field: field}
}

func (p *ipProvisioner) Provision(c *Ctx) error {
	bucket := api.IPBucket(p.networkUUID)
	key := addr.CanonicalIP(p.ip)

	if versionConflictOn(c.Err, bucket, key) {
		belongsType, belongsUUID := p.currentOwner(c)
		return ErrIPInUse(p.field, belongsType, belongsUUID)
	}

	rec, err := fetchOrNewIP(c, p.networkUUID, p.ip)
	if err != nil {
		return err
	}
	if !rec.Provisionable(c.Base.OwnerUUID) {
		return ErrIPInUse(p.field, string(rec.BelongsToType), rec.BelongsToUUID)
	}

	applyIPOwnership(rec, c.Base)
	c.Batch = append(c.Batch, ipBatch(rec))
	c.IPs = append(c.IPs, rec)
	return nil
}

func (p *ipProvisioner) currentOwner(c *Ctx) (string, string) {
	rec, err := fetchOrNewIP(c, p.networkUUID, p.ip)
	if err != nil {
		return "", ""
	}
	return string(rec.BelongsToType), rec.BelongsToUUID
}

// networkProvisioner implements NetworkProvision: the caller supplied only
// a network, so the next free address is scanned for.
type networkProvisioner struct {
	networkUUID string
	field       string
	rng         *rand.Rand

	scanner *ipScanner
	current net.IP
}

// NewNetworkProvisioner returns the provisioner used when the caller
// supplied only a network_uuid. rng drives the randomized scan start
// (spec §9: tests inject a seed).
func NewNetworkProvisioner(networkUUID string, rng *rand.Rand) Provisioner {
	return &networkProvisioner{networkUUID: networkUUID, rng: rng}
}

func (p *networkProvisioner) Provision(c *Ctx) error {
	network, err := c.Networks.Network(p.networkUUID)
	if err != nil {
		return err
	}

	bucket := api.IPBucket(p.networkUUID)
	needNew := p.current == nil || versionConflictOn(c.Err, bucket, addr.CanonicalIP(p.current))
	if needNew {
		if p.scanner == nil {
			p.scanner = newIPScanner(p.rng)
		}
		ip, err := p.scanner.next(c.Store, network)
		if err != nil {
			return err
		}
		p.current = ip
	}

	rec, err := fetchOrNewIP(c, p.networkUUID, p.current)
	if err != nil {
		return err
	}
	applyIPOwnership(rec, c.Base)
	c.Batch = append(c.Batch, ipBatch(rec))
	c.IPs = append(c.IPs, rec)
	return nil
}

// networkPoolProvisioner implements NetworkPoolProvision: the caller
// supplied a pool, which is walked in order, falling back to the next
// network whenever the current one reports subnet_full.
//
// Queue exhaustion and subnet_full are resolved inside a single Provision
// call rather than by bouncing back through the driver's outer retry
// loop: each subnet_full from the scanner just advances to the next
// network and scans again, so one Provision call either returns a
// committable IP or the stopping ErrPoolFull.
type networkPoolProvisioner struct {
	field string
	queue []string // remaining network UUIDs, pool order
	rng   *rand.Rand

	networkUUID string
	scanner     *ipScanner
	current     net.IP
}

// NewNetworkPoolProvisioner returns the provisioner used when the caller
// supplied a network_pool. The pool's member networks are tried in the
// order pool.Networks lists them (spec §4.4 tie-break rule).
func NewNetworkPoolProvisioner(pool *api.NetworkPool, field string, rng *rand.Rand) Provisioner {
	queue := make([]string, len(pool.Networks))
	copy(queue, pool.Networks)
	return &networkPoolProvisioner{field: field, queue: queue, rng: rng}
}

func (p *networkPoolProvisioner) Provision(c *Ctx) error {
	if p.networkUUID != "" {
		bucket := api.IPBucket(p.networkUUID)
		if p.current == nil || versionConflictOn(c.Err, bucket, addr.CanonicalIP(p.current)) {
			ip, err := p.scanCurrentNetwork(c)
			if err != nil {
				return err
			}
			p.current = ip
		}
		rec, err := fetchOrNewIP(c, p.networkUUID, p.current)
		if err != nil {
			return err
		}
		applyIPOwnership(rec, c.Base)
		c.Batch = append(c.Batch, ipBatch(rec))
		c.IPs = append(c.IPs, rec)
		return nil
	}

	return p.advanceAndScan(c)
}

// scanCurrentNetwork scans the already-selected network, advancing to the
// next pool member on subnet_full.
func (p *networkPoolProvisioner) scanCurrentNetwork(c *Ctx) (net.IP, error) {
	for {
		network, err := c.Networks.Network(p.networkUUID)
		if err != nil {
			return nil, err
		}
		ip, err := p.scanner.next(c.Store, network)
		if err == nil {
			return ip, nil
		}
		if _, ok := IsErrSubnetFull(err); !ok {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

// advanceAndScan pops the next network off the queue and scans it,
// advancing further on immediate subnet_full, until one yields an address
// or the queue is exhausted.
func (p *networkPoolProvisioner) advanceAndScan(c *Ctx) error {
	if err := p.advance(); err != nil {
		return err
	}
	ip, err := p.scanCurrentNetwork(c)
	if err != nil {
		return err
	}
	p.current = ip

	rec, err := fetchOrNewIP(c, p.networkUUID, p.current)
	if err != nil {
		return err
	}
	applyIPOwnership(rec, c.Base)
	c.Batch = append(c.Batch, ipBatch(rec))
	c.IPs = append(c.IPs, rec)
	return nil
}

// advance pops the next network UUID off the queue, resetting per-network
// scan state. Returns the stopping ErrPoolFull once the queue is empty.
func (p *networkPoolProvisioner) advance() error {
	if len(p.queue) == 0 {
		return ErrPoolFull(p.field)
	}
	p.networkUUID = p.queue[0]
	p.queue = p.queue[1:]
	p.scanner = newIPScanner(p.rng)
	p.current = nil
	return nil
}
