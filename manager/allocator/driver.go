package allocator

import (
	"context"

	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/log"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// ProvisionNICAndIP runs the six-stage allocation pipeline (spec §4.6)
// until it commits or hits a stopping error. There is no outer attempt
// cap: termination is guaranteed by the bounded address/MAC spaces and
// the stop propagation from exhausted searches, mirrored here by the
// unbounded for loop below.
func ProvisionNICAndIP(ctx context.Context, c *Ctx) (*api.NICRecord, error) {
	return nicAndIP(ctx, c)
}

func nicAndIP(ctx context.Context, c *Ctx) (*api.NICRecord, error) {
	ctx = log.WithModule(ctx, "allocator.driver")

	inFlight.Inc()
	defer inFlight.Dec()

	for {
		c.reset()
		provisionAttempts.Inc()

		if err := runProvisioners(c); err != nil {
			if Stop(err) {
				return nil, err
			}
			logRetry(ctx, err)
			c.Err = err
			continue
		}

		// Stage 3 (spec §4.6): old IPs being released by this update are
		// freed — not merely unassigned — so the next-free scan (which
		// keys off IPRecord.Free, not ownership) can reclaim them. Delete
		// (spec §4.8) uses the weaker unassign instead: a deleted NIC's
		// address becomes re-bindable by direct request but is not swept
		// back into the randomized pool automatically.
		for _, rec := range c.RemoveIPs {
			c.Batch = append(c.Batch, ipFreeBatch(rec))
		}

		if err := resolveFabricMembers(ctx, c); err != nil {
			return nil, err
		}

		nic, err := c.NICFn.Build(c)
		if err != nil {
			if Stop(err) {
				return nil, err
			}
			logRetry(ctx, err)
			c.Err = err
			continue
		}
		c.NIC = nic
		c.Batch = append(c.Batch, nicBatch(nic))

		if nic.Primary {
			items, err := primaryUnsetBatches(c.Store, nic.OwnerUUID, nic.MAC)
			if err != nil {
				return nil, err
			}
			c.Batch = append(c.Batch, items...)
		}

		if err := c.Store.Commit(c.Batch); err != nil {
			if store.IsFatal(err) {
				return nil, err
			}
			logRetry(ctx, err)
			c.Err = err
			continue
		}

		provisionSuccesses.Inc()
		return nic, nil
	}
}

// logRetry records the non-stopping error that's about to drive another
// iteration, at the level an operator would want to spot a hot-spot
// contention storm without reading the spec to know which kinds are
// expected (spec §9 "structured retry logging").
func logRetry(ctx context.Context, err error) {
	kind := errorKind(err)
	retriesByKind.WithLabelValues(kind).Inc()
	log.G(ctx).WithField("kind", kind).Debug("allocation iteration failed, retrying")
}

// runProvisioners runs every provisioner in order, stopping at the first
// failure (stage 2).
func runProvisioners(c *Ctx) error {
	for _, p := range c.Provisioners {
		if err := p.Provision(c); err != nil {
			return err
		}
	}
	return nil
}

// resolveFabricMembers is stage 4: for every distinct fabric network among
// the IPs chosen this iteration, list its compute-node set once and union
// the results into c.VnetCNs.
func resolveFabricMembers(ctx context.Context, c *Ctx) error {
	if c.Fabric == nil {
		return nil
	}

	seen := make(map[string]bool)
	var members []string
	for _, ip := range c.IPs {
		network, err := c.Networks.Network(ip.NetworkUUID)
		if err != nil {
			return err
		}
		if !network.Fabric || seen[network.UUID] {
			continue
		}
		seen[network.UUID] = true

		cns, err := c.Fabric.ComputeNodesOnVnet(ctx, network.VnetID)
		if err != nil {
			return err
		}
		members = unionStrings(members, cns)
	}
	c.VnetCNs = members
	return nil
}

func unionStrings(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			base = append(base, s)
		}
	}
	return base
}
