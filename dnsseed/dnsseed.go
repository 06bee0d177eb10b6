// Package dnsseed resolves the static dns_seeders configuration option
// into candidate addresses, queried in parallel or sequentially depending
// on whether an outbound connection is urgently needed. connmanager calls
// SeedAll or SeedSequential from its address-seeding step; lookups go
// through net.LookupIP since no concrete seeder implementation was
// available as a reference.
package dnsseed

import (
	"net"
	"sync"

	"github.com/kasparite/node/addressmanager"
)

// Lookup resolves a hostname to its IPs; defaults to net.LookupIP but is
// overridable for tests.
type Lookup func(host string) ([]net.IP, error)

func defaultLookup(host string) ([]net.IP, error) {
	ips, err := net.LookupIP(host)
	return ips, err
}

// SeedAll queries every seeder concurrently and returns the combined,
// deduplicated address list, used when the connection manager is missing
// more than half its outbound target.
func SeedAll(seeders []string, defaultPort uint16, lookup Lookup) []*addressmanager.NetAddress {
	if lookup == nil {
		lookup = defaultLookup
	}

	var wg sync.WaitGroup
	results := make([][]*addressmanager.NetAddress, len(seeders))
	for i, seeder := range seeders {
		wg.Add(1)
		go func(i int, seeder string) {
			defer wg.Done()
			results[i] = resolveOne(seeder, defaultPort, lookup)
		}(i, seeder)
	}
	wg.Wait()

	return dedupe(flatten(results))
}

// SeedSequential queries seeders one at a time, stopping once at least
// wanted addresses have been gathered, used for the lighter-deficit case
// in
func SeedSequential(seeders []string, defaultPort uint16, wanted int, lookup Lookup) []*addressmanager.NetAddress {
	if lookup == nil {
		lookup = defaultLookup
	}

	var collected []*addressmanager.NetAddress
	for _, seeder := range seeders {
		collected = append(collected, resolveOne(seeder, defaultPort, lookup)...)
		if len(collected) >= wanted {
			break
		}
	}
	return dedupe(collected)
}

func resolveOne(seeder string, port uint16, lookup Lookup) []*addressmanager.NetAddress {
	ips, err := lookup(seeder)
	if err != nil {
		return nil
	}
	out := make([]*addressmanager.NetAddress, 0, len(ips))
	for _, ip := range ips {
		out = append(out, &addressmanager.NetAddress{IP: ip, Port: port})
	}
	return out
}

func flatten(batches [][]*addressmanager.NetAddress) []*addressmanager.NetAddress {
	var out []*addressmanager.NetAddress
	for _, batch := range batches {
		out = append(out, batch...)
	}
	return out
}

func dedupe(addrs []*addressmanager.NetAddress) []*addressmanager.NetAddress {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]*addressmanager.NetAddress, 0, len(addrs))
	for _, a := range addrs {
		key := a.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
