// Package addressmanager is the narrow external collaborator the
// connection manager draws addresses from and reports back to: an
// in-memory catalog of known peer addresses. No disk persistence is
// implemented here - only the contract the connection manager needs, a
// prioritized random-address stream plus a persisted set of leveraged
// Perigee addresses. Grounded on the addrmgr usage pattern in
// connmanager/connmanager.go (AddAddresses, random address selection).
package addressmanager

import (
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"
)

// NetAddress is a reachable peer endpoint.
type NetAddress struct {
	IP   net.IP
	Port uint16
}

// String renders the address in host:port form for dialing.
func (a *NetAddress) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// PrefixBucket returns the /16-equivalent grouping key Perigee's
// ip_prefix_bucket rank diversifies across.
func (a *NetAddress) PrefixBucket() string {
	if ip4 := a.IP.To4(); ip4 != nil {
		return net.IPv4(ip4[0], ip4[1], 0, 0).String()
	}
	return a.IP.Mask(net.CIDRMask(32, 128)).String()
}

type knownAddress struct {
	addr        *NetAddress
	attempts    int
	lastAttempt time.Time
	lastSuccess time.Time
	leveraged   bool
}

// AddressManager tracks known addresses and basic reputation signals.
type AddressManager struct {
	mu        sync.RWMutex
	addresses map[string]*knownAddress
}

// New returns an empty AddressManager.
func New() *AddressManager {
	return &AddressManager{addresses: make(map[string]*knownAddress)}
}

// AddAddresses records newly learned addresses, e.g. from a DNS seed
// response or an Addresses wire message, ignoring ones already known.
func (m *AddressManager) AddAddresses(addrs []*NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, addr := range addrs {
		key := addr.String()
		if _, ok := m.addresses[key]; ok {
			continue
		}
		m.addresses[key] = &knownAddress{addr: addr}
	}
}

// MarkAttempt records the outcome of a connection attempt against addr.
// RandomAddresses does not consult the recorded outcome; it orders
// candidates by the leveraged flag only.
func (m *AddressManager) MarkAttempt(addr *NetAddress, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	known, ok := m.addresses[addr.String()]
	if !ok {
		known = &knownAddress{addr: addr}
		m.addresses[addr.String()] = known
	}
	known.attempts++
	known.lastAttempt = time.Now()
	if success {
		known.lastSuccess = known.lastAttempt
		known.attempts = 0
	}
}

// MarkLeveraged flags addr as a persisted top-Perigee peer, kept across
// restarts when persistence is configured.
func (m *AddressManager) MarkLeveraged(addr *NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if known, ok := m.addresses[addr.String()]; ok {
		known.leveraged = true
	}
}

// RandomAddresses returns up to n addresses, leveraged Perigee addresses
// first, then the rest in random order, preferring persisted Perigee
// addresses on cold start.
func (m *AddressManager) RandomAddresses(n int) []*NetAddress {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leveraged := make([]*NetAddress, 0)
	rest := make([]*NetAddress, 0, len(m.addresses))
	for _, known := range m.addresses {
		if known.leveraged {
			leveraged = append(leveraged, known.addr)
		} else {
			rest = append(rest, known.addr)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	out := append(leveraged, rest...)
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Count returns how many addresses are known.
func (m *AddressManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.addresses)
}
