package allocator

import (
	"math/rand"
	"net"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// ipScanner walks a network's address range looking for the next free
// slot. It picks a random starting offset the first time it's asked for a
// given network, then advances by one with wrap-around on every later
// call for that same network (spec §4.3) — randomized to reduce
// write-hotspot collisions among concurrent clients (spec §4.4, §9),
// grounded on the wrap-around scan in dm-vev-qdt/internal/ipam's
// Pool.Acquire.
type ipScanner struct {
	rng     *rand.Rand
	offset  uint32
	started bool
}

func newIPScanner(rng *rand.Rand) *ipScanner {
	return &ipScanner{rng: rng}
}

// span returns the number of addresses in [start, end], inclusive.
func span(start, end net.IP) (uint32, error) {
	e4, s4 := end.To4(), start.To4()
	if e4 == nil || s4 == nil {
		return 0, addr.ErrOverflow{}
	}
	var ev, sv uint32
	for i := 0; i < 4; i++ {
		ev = ev<<8 | uint32(e4[i])
		sv = sv<<8 | uint32(s4[i])
	}
	if ev < sv {
		return 0, addr.ErrOverflow{}
	}
	return ev - sv + 1, nil
}

// next returns the next candidate address on network, or an ErrSubnetFull
// error if a full wrap finds nothing free.
func (s *ipScanner) next(st store.Store, network *api.LogicalNetwork) (net.IP, error) {
	n, err := span(network.StartIP, network.EndIP)
	if err != nil {
		return nil, err
	}

	if !s.started {
		s.offset = uint32(s.rng.Int63n(int64(n)))
		s.started = true
	} else {
		s.offset = (s.offset + 1) % n
	}

	for i := uint32(0); i < n; i++ {
		off := (s.offset + i) % n
		candidate, err := addr.Plus(network.StartIP, off)
		if err != nil {
			return nil, err
		}

		val, _, err := st.Get(network.Bucket(), addr.CanonicalIP(candidate))
		switch {
		case store.IsNotFound(err):
			s.offset = off
			return candidate, nil
		case err != nil:
			return nil, err
		}

		rec, _ := val.(*api.IPRecord)
		if rec != nil && !rec.Reserved && rec.Free {
			s.offset = off
			return candidate, nil
		}
	}

	return nil, ErrSubnetFull(network.UUID)
}
