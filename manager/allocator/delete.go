package allocator

import (
	"context"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/log"
	"github.com/jasonbking/sdc-napi/manager/state/store"
	"github.com/sirupsen/logrus"
)

// DeleteNIC is the delete path (spec §4.8). It is not retried through the
// allocation driver: a delete only ever races against another delete or
// an update of the same MAC, and a lost race there is itself the
// not_found/version-conflict outcome a caller should see and re-request,
// not something this core papers over with an internal retry.
func DeleteNIC(ctx context.Context, c *Ctx, mac uint64) error {
	ctx = log.WithModule(ctx, "allocator.delete")

	val, version, err := c.Store.Get(api.NICBucket, addr.MACKey(mac))
	if store.IsNotFound(err) {
		return ErrNotFound("nic", addr.FormatMAC(mac))
	}
	if err != nil {
		return err
	}
	nic := *(val.(*api.NICRecord))
	nic.Version = version

	batch := store.Batch{nicDeleteBatch(&nic)}

	if nic.HasIP() {
		ipVal, ipVersion, err := c.Store.Get(api.IPBucket(nic.NetworkUUID), nic.IPAddress)
		switch {
		case store.IsNotFound(err):
			// Already gone; nothing to unassign.
		case err != nil:
			return err
		default:
			ipRec := *(ipVal.(*api.IPRecord))
			ipRec.Version = ipVersion
			if ipRec.BelongsToUUID == nic.BelongsToUUID {
				batch = append(batch, ipUnassignBatch(&ipRec))
			} else {
				log.G(ctx).WithFields(logrus.Fields{
					"mac":            addr.FormatMAC(mac),
					"network_uuid":   nic.NetworkUUID,
					"ip_belongs_to":  ipRec.BelongsToUUID,
					"nic_belongs_to": nic.BelongsToUUID,
				}).Warn("ip ownership does not match deleted nic's owner; leaving address untouched")
			}
		}

		network, err := c.Networks.Network(nic.NetworkUUID)
		if err == nil && network.Fabric && c.Fabric != nil {
			cns, err := c.Fabric.ComputeNodesOnVnet(ctx, network.VnetID)
			if err != nil {
				return err
			}
			c.VnetCNs = cns
		}
	}

	return c.Store.Commit(batch)
}
