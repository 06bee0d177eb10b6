// Package connmanager implements the outbound/inbound target maintenance,
// Perigee-based peer ranking, and eviction policy, generalized from a
// single-target connection manager (which knew only one outbound pool and
// one addrmgr/netadapter pair) into the two-pool (RandomGraph vs Perigee)
// state machine with DNS seeding and exponential-backoff permanent
// requests.
package connmanager

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasparite/node/addressmanager"
	"github.com/kasparite/node/connmanager/perigee"
	"github.com/kasparite/node/dnsseed"
	"github.com/kasparite/node/infrastructure/config"
	"github.com/kasparite/node/infrastructure/logger"
	"github.com/kasparite/node/netadapter"
)

// OutboundType classifies why an outbound connection exists: UserSupplied,
// Perigee, or RandomGraph, or None for an inbound connection.
type OutboundType int

const (
	// OutboundTypeNone marks an inbound connection.
	OutboundTypeNone OutboundType = iota
	OutboundTypeUserSupplied
	OutboundTypePerigee
	OutboundTypeRandomGraph
)

// connectionRequest represents a user or permanent request (CLI/RPC) to
// maintain a connection to a given address.
type connectionRequest struct {
	address       string
	isPermanent   bool
	nextAttempt   time.Time
	attempts      int
}

// eventLoopTimer is the backoff unit for permanent connection requests,
//.6's `EVENT_LOOP_TIMER · 2^min(attempts, 4)`.
const eventLoopTimer = 30 * time.Second

// peerRecord is the live bookkeeping behind 's peer record.
type peerRecord struct {
	conn          *netadapter.Connection
	address       *addressmanager.NetAddress
	outboundType  OutboundType
	timeConnected time.Time

	mu                sync.Mutex
	lastPingDuration  time.Duration
	lastBlockTransfer *time.Duration
	lastTxTransfer    *time.Duration
}

// ConnectionManager monitors that active connections satisfy the
// outbound-target, inbound-cap, and Perigee-leverage requirements.
type ConnectionManager struct {
	netAdapter     *netadapter.NetAdapter
	addressManager *addressmanager.AddressManager
	cfg            *config.Config
	log            *logger.Logger

	mu                sync.Mutex
	peers             map[string]*peerRecord
	activeRequested   map[string]*connectionRequest
	pendingRequested  map[string]*connectionRequest

	tickCount int64
	stop      uint32
	stopCh    chan struct{}
}

// New builds a ConnectionManager, pre-seeding permanent connection
// requests from cfg, following the same AddPeers/ConnectPeers handling
// pattern as other connection managers in this codebase family.
func New(netAdapter *netadapter.NetAdapter, addressManager *addressmanager.AddressManager, cfg *config.Config, backend *logger.Backend) *ConnectionManager {
	c := &ConnectionManager{
		netAdapter:       netAdapter,
		addressManager:   addressManager,
		cfg:              cfg,
		log:              backend.Subsystem("CMGR"),
		peers:            make(map[string]*peerRecord),
		activeRequested:  make(map[string]*connectionRequest),
		pendingRequested: make(map[string]*connectionRequest),
		stopCh:           make(chan struct{}),
	}
	netAdapter.SetOnConnectedHandler(c.onConnected)
	return c
}

// AddConnectionRequest enqueues a permanent or one-shot request to connect
// to address.
func (c *ConnectionManager) AddConnectionRequest(address string, isPermanent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingRequested[address] = &connectionRequest{address: address, isPermanent: isPermanent}
}

func (c *ConnectionManager) onConnected(conn *netadapter.Connection) {
	outboundType := OutboundTypeNone
	if conn.IsOutbound() {
		outboundType = OutboundTypeRandomGraph
	}
	c.mu.Lock()
	c.peers[conn.Address()] = &peerRecord{
		conn:          conn,
		outboundType:  outboundType,
		timeConnected: time.Now(),
	}
	c.mu.Unlock()
}

// Start launches the connection manager's event loop.
func (c *ConnectionManager) Start() {
	c.netAdapter.Start()
	go c.connectionsLoop()
}

// Stop halts the event loop and disconnects every peer.
func (c *ConnectionManager) Stop() {
	atomic.StoreUint32(&c.stop, 1)
	close(c.stopCh)
	_ = c.netAdapter.Stop()
}

func (c *ConnectionManager) connectionsLoop() {
	ticker := time.NewTicker(c.cfg.ConnectionsLoopInterval)
	defer ticker.Stop()
	for {
		if atomic.LoadUint32(&c.stop) != 0 {
			return
		}
		c.tick()
		select {
		case <-ticker.C:
		case <-c.stopCh:
			return
		}
	}
}

// tick runs one full pass of 's state machine.
func (c *ConnectionManager) tick() {
	c.reconcilePeers()
	c.checkRequestedConnections()

	outboundByType, inboundCount := c.countConnections()

	c.maintainOutboundTarget(outboundByType)
	c.trimRandomGraphExcess(outboundByType[OutboundTypeRandomGraph])
	c.trimPerigeeExcess(outboundByType[OutboundTypePerigee])
	c.trimInboundExcess(inboundCount)

	c.tickCount++
	if c.cfg.Perigee.RoundFrequency > 0 && c.tickCount%int64(c.cfg.Perigee.RoundFrequency) == 0 {
		c.runPerigeeRound()
	}

	c.seedAddressesIfNeeded(outboundByType)
}

// reconcilePeers drops bookkeeping for peers the net adapter no longer
// reports as connected.
func (c *ConnectionManager) reconcilePeers() {
	live := make(map[string]struct{})
	for _, conn := range c.netAdapter.Connections() {
		live[conn.Address()] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for addr := range c.peers {
		if _, ok := live[addr]; !ok {
			delete(c.peers, addr)
		}
	}
}

func (c *ConnectionManager) checkRequestedConnections() {
	c.mu.Lock()
	pending := c.pendingRequested
	c.pendingRequested = make(map[string]*connectionRequest)
	c.mu.Unlock()

	now := time.Now()
	for addr, req := range pending {
		if err := c.initiateConnection(addr, OutboundTypeUserSupplied); err != nil {
			req.attempts++
			req.nextAttempt = now.Add(backoff(req.attempts))
			if req.isPermanent {
				c.mu.Lock()
				c.activeRequested[addr] = req
				c.mu.Unlock()
			}
			continue
		}
		if req.isPermanent {
			c.mu.Lock()
			c.activeRequested[addr] = req
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	due := make([]*connectionRequest, 0)
	for _, req := range c.activeRequested {
		if now.After(req.nextAttempt) {
			due = append(due, req)
		}
	}
	c.mu.Unlock()

	for _, req := range due {
		if err := c.initiateConnection(req.address, OutboundTypeUserSupplied); err != nil {
			req.attempts++
			req.nextAttempt = now.Add(backoff(req.attempts))
		} else {
			req.attempts = 0
			req.nextAttempt = now.Add(backoff(0))
		}
	}
}

// backoff implements `EVENT_LOOP_TIMER · 2^min(attempts, 4)`.
func backoff(attempts int) time.Duration {
	if attempts > 4 {
		attempts = 4
	}
	return eventLoopTimer * time.Duration(math.Pow(2, float64(attempts)))
}

func (c *ConnectionManager) initiateConnection(address string, outboundType OutboundType) error {
	c.log.Infof("Connecting to %s", address)
	conn, err := c.netAdapter.Connect(address)
	if err != nil {
		c.log.Infof("Couldn't connect to %s: %s", address, err)
		return err
	}
	c.mu.Lock()
	if rec, ok := c.peers[conn.Address()]; ok {
		rec.outboundType = outboundType
	}
	c.mu.Unlock()
	return nil
}

func (c *ConnectionManager) countConnections() (map[OutboundType]int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byType := map[OutboundType]int{}
	inbound := 0
	for _, p := range c.peers {
		if p.outboundType == OutboundTypeNone {
			inbound++
		} else {
			byType[p.outboundType]++
		}
	}
	return byType, inbound
}

func (c *ConnectionManager) maintainOutboundTarget(outboundByType map[OutboundType]int) {
	current := outboundByType[OutboundTypeUserSupplied] + outboundByType[OutboundTypePerigee] + outboundByType[OutboundTypeRandomGraph]
	deficit := c.cfg.OutboundTarget - current
	if deficit <= 0 {
		return
	}

	candidates := c.addressManager.RandomAddresses(deficit)
	var wg sync.WaitGroup
	for _, addr := range candidates {
		wg.Add(1)
		go func(addr *addressmanager.NetAddress) {
			defer wg.Done()
			err := c.initiateConnection(addr.String(), OutboundTypeRandomGraph)
			c.addressManager.MarkAttempt(addr, err == nil)
		}(addr)
	}
	wg.Wait()
}

func (c *ConnectionManager) trimRandomGraphExcess(count int) {
	target := c.cfg.OutboundTarget - c.cfg.Perigee.PerigeeOutboundTarget
	excess := count - target
	if excess <= 0 {
		return
	}
	victims := c.peersByType(OutboundTypeRandomGraph)
	rand.Shuffle(len(victims), func(i, j int) { victims[i], victims[j] = victims[j], victims[i] })
	if excess > len(victims) {
		excess = len(victims)
	}
	for _, v := range victims[:excess] {
		c.disconnect(v)
	}
}

func (c *ConnectionManager) trimPerigeeExcess(count int) {
	excess := count - c.cfg.Perigee.PerigeeOutboundTarget
	if excess <= 0 {
		return
	}
	victims := c.runPerigeeTrim(OutboundTypePerigee, excess)
	for _, v := range victims {
		c.disconnect(v)
	}
}

func (c *ConnectionManager) trimInboundExcess(count int) {
	excess := count - c.cfg.InboundLimit
	if excess <= 0 {
		return
	}
	victims := c.peersByType(OutboundTypeNone)
	rand.Shuffle(len(victims), func(i, j int) { victims[i], victims[j] = victims[j], victims[i] })
	if excess > len(victims) {
		excess = len(victims)
	}
	for _, v := range victims[:excess] {
		c.disconnect(v)
	}
}

func (c *ConnectionManager) peersByType(t OutboundType) []*peerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*peerRecord, 0)
	for _, p := range c.peers {
		if p.outboundType == t {
			out = append(out, p)
		}
	}
	return out
}

func (c *ConnectionManager) disconnect(p *peerRecord) {
	if err := p.conn.Disconnect(); err != nil {
		c.log.Errorf("Error disconnecting from %s: %+v", p.conn.Address(), err)
	}
	c.netAdapter.Forget(p.conn)
}

// runPerigeeRound evaluates Perigee ranks over the current Perigee-type
// peer set, persists leveraged peers, and resets per-peer timestamps.
func (c *ConnectionManager) runPerigeeRound() {
	peers := c.peersByType(OutboundTypePerigee)
	if len(peers) == 0 {
		return
	}
	samples := make([]perigee.Sample, len(peers))
	for i, p := range peers {
		p.mu.Lock()
		samples[i] = perigee.Sample{
			PeerID:            p.conn.Address(),
			IPPrefixBucket:    prefixBucket(p.address),
			TimeConnected:     time.Since(p.timeConnected),
			LastPingDuration:  p.lastPingDuration,
			LastBlockTransfer: p.lastBlockTransfer,
			LastTxTransfer:    p.lastTxTransfer,
		}
		p.mu.Unlock()
	}
	ranks := perigee.ComputeRanks(samples)
	for _, p := range peers {
		p.mu.Lock()
		p.lastBlockTransfer = nil
		p.lastTxTransfer = nil
		p.mu.Unlock()
	}

	if c.cfg.Perigee.Persistence {
		rest := perigee.RetainLowestRankPeers(ranks, c.cfg.Perigee.LeverageTarget)
		leveraged := subtract(ranks, rest)
		for _, r := range leveraged {
			if p := c.findPeer(r.PeerID); p != nil && p.address != nil {
				c.addressManager.MarkLeveraged(p.address)
			}
		}
	}
}

// runPerigeeTrim selects eviction candidates of the given outbound type
// down to excess victims, protecting RETAIN_RATIO top performers.
func (c *ConnectionManager) runPerigeeTrim(t OutboundType, excess int) []*peerRecord {
	peers := c.peersByType(t)
	samples := make([]perigee.Sample, len(peers))
	for i, p := range peers {
		p.mu.Lock()
		samples[i] = perigee.Sample{
			PeerID:            p.conn.Address(),
			IPPrefixBucket:    prefixBucket(p.address),
			TimeConnected:     time.Since(p.timeConnected),
			LastPingDuration:  p.lastPingDuration,
			LastBlockTransfer: p.lastBlockTransfer,
			LastTxTransfer:    p.lastTxTransfer,
		}
		p.mu.Unlock()
	}
	ranks := perigee.ComputeRanks(samples)
	protected := perigee.ProtectedCount(len(ranks))
	candidates := perigee.RetainLowestRankPeers(ranks, protected)
	evicted := perigee.EvictByHighestNoneLatencyRankWeighted(candidates, excess)

	out := make([]*peerRecord, 0, len(evicted))
	for _, r := range evicted {
		if p := c.findPeer(r.PeerID); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (c *ConnectionManager) findPeer(id string) *peerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peers[id]
}

func prefixBucket(a *addressmanager.NetAddress) string {
	if a == nil {
		return ""
	}
	return a.PrefixBucket()
}

func subtract(all, without []perigee.Ranks) []perigee.Ranks {
	skip := make(map[string]struct{}, len(without))
	for _, r := range without {
		skip[r.PeerID] = struct{}{}
	}
	out := make([]perigee.Ranks, 0)
	for _, r := range all {
		if _, ok := skip[r.PeerID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// seedAddressesIfNeeded queries DNS seeders.6: in parallel
// when missing more than half the outbound target, sequentially (stopping
// at 2x the deficit) otherwise.
func (c *ConnectionManager) seedAddressesIfNeeded(outboundByType map[OutboundType]int) {
	if len(c.cfg.DNSSeeders) == 0 {
		return
	}
	current := outboundByType[OutboundTypeUserSupplied] + outboundByType[OutboundTypePerigee] + outboundByType[OutboundTypeRandomGraph]
	deficit := c.cfg.OutboundTarget - current
	if deficit <= 0 {
		return
	}

	var addrs []*addressmanager.NetAddress
	if deficit > c.cfg.OutboundTarget/2 {
		addrs = dnsseed.SeedAll(c.cfg.DNSSeeders, c.cfg.DefaultPort, nil)
	} else {
		addrs = dnsseed.SeedSequential(c.cfg.DNSSeeders, c.cfg.DefaultPort, deficit*2, nil)
	}
	if len(addrs) > 0 {
		c.addressManager.AddAddresses(addrs)
	}
}

// RecordPing updates a peer's latency signal, called by the P2P router on
// a completed Ping/Pong round trip.
func (c *ConnectionManager) RecordPing(peerID string, d time.Duration) {
	c.mu.Lock()
	p, ok := c.peers[peerID]
	c.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	p.lastPingDuration = d
	p.mu.Unlock()
}

// RecordBlockTransfer updates a peer's last-block-transfer timestamp.
func (c *ConnectionManager) RecordBlockTransfer(peerID string, at time.Time) {
	c.mu.Lock()
	p, ok := c.peers[peerID]
	c.mu.Unlock()
	if !ok {
		return
	}
	elapsed := time.Since(at)
	p.mu.Lock()
	p.lastBlockTransfer = &elapsed
	p.mu.Unlock()
}

// RecordTxTransfer updates a peer's last-transaction-transfer timestamp.
func (c *ConnectionManager) RecordTxTransfer(peerID string, at time.Time) {
	c.mu.Lock()
	p, ok := c.peers[peerID]
	c.mu.Unlock()
	if !ok {
		return
	}
	elapsed := time.Since(at)
	p.mu.Lock()
	p.lastTxTransfer = &elapsed
	p.mu.Unlock()
}

// Ban terminates all peers on ip unless a permanent request covers it.
func (c *ConnectionManager) Ban(ip string) {
	c.mu.Lock()
	permanent := false
	for addr := range c.activeRequested {
		if hostOf(addr) == ip {
			permanent = true
			break
		}
	}
	var victims []*peerRecord
	for addr, p := range c.peers {
		if hostOf(addr) == ip {
			victims = append(victims, p)
		}
	}
	c.mu.Unlock()
	if permanent {
		return
	}
	for _, p := range victims {
		c.disconnect(p)
	}
}

func hostOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
