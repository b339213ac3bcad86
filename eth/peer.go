// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package eth

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/p2p"
)

const (
	maxKnownTxs    = 32768
	maxKnownBlocks = 1024

	// requestTimeout is how long a request waits for a matching response
	// before it is failed with ErrRequestTimeout.
	requestTimeout = 8 * time.Second
)

// pendingRequest is one outstanding GET_* call awaiting its response. A
// dedup key can have more than one concurrent waiter (spec.md's
// concurrent-identical-GET_* scenario), so completion closes done rather
// than sending on a channel: every waiter's wait() observes the same
// value/err pair instead of racing to drain a single-slot channel.
type pendingRequest struct {
	reqID    uint64
	dedupKey string
	value    interface{}
	resErr   error
	done     chan struct{}
	timer    *time.Timer
	once     sync.Once
}

func (pr *pendingRequest) complete(value interface{}, err error) {
	pr.once.Do(func() {
		pr.timer.Stop()
		pr.value = value
		pr.resErr = err
		close(pr.done)
	})
}

// Peer wraps a negotiated p2p.Peer with the eth-specific session state the
// spec requires: the negotiated version, the per-peer monotonic reqId
// counter, the pending-request correlation table, in-flight request
// deduplication, and the known-tx/known-block caches that suppress
// redundant re-announcement to a peer that has already seen something.
type Peer struct {
	*p2p.Peer
	rw      p2p.MsgReadWriter
	version uint

	headMu   sync.RWMutex
	headHash common.Hash
	headTD   *uint256.Int

	knownTxs    *lru.Cache[common.Hash, struct{}]
	knownBlocks *lru.Cache[common.Hash, struct{}]

	nextReqID uint64

	pendingMu sync.Mutex
	pending   map[uint64]*pendingRequest
	dedup     map[string]*pendingRequest

	term      chan struct{}
	closeOnce sync.Once
}

// NewPeer builds the eth session state for a freshly negotiated
// subprotocol connection. version must already have been chosen by the
// capability negotiation in the base protocol.
func NewPeer(version uint, p *p2p.Peer, rw p2p.MsgReadWriter) *Peer {
	knownTxs, _ := lru.New[common.Hash, struct{}](maxKnownTxs)
	knownBlocks, _ := lru.New[common.Hash, struct{}](maxKnownBlocks)
	return &Peer{
		Peer:        p,
		rw:          rw,
		version:     version,
		knownTxs:    knownTxs,
		knownBlocks: knownBlocks,
		pending:     make(map[uint64]*pendingRequest),
		dedup:       make(map[string]*pendingRequest),
		term:        make(chan struct{}),
	}
}

// Version reports the negotiated eth protocol version.
func (p *Peer) Version() uint { return p.version }

// Head returns the peer's last announced head hash and total difficulty.
func (p *Peer) Head() (hash common.Hash, td *uint256.Int) {
	p.headMu.RLock()
	defer p.headMu.RUnlock()
	return p.headHash, p.headTD
}

// SetHead records a new head hash/total-difficulty pair, as learned from
// a STATUS handshake or a NEW_BLOCK announcement.
func (p *Peer) SetHead(hash common.Hash, td *uint256.Int) {
	p.headMu.Lock()
	defer p.headMu.Unlock()
	p.headHash, p.headTD = hash, new(uint256.Int).Set(td)
}

// MarkTransaction flags a transaction hash as known to this peer so it is
// never re-announced.
func (p *Peer) MarkTransaction(hash common.Hash) {
	p.knownTxs.Add(hash, struct{}{})
}

// KnowsTransaction reports whether hash has already been marked known.
func (p *Peer) KnowsTransaction(hash common.Hash) bool {
	return p.knownTxs.Contains(hash)
}

// MarkBlock flags a block hash as known to this peer so it is never
// re-announced.
func (p *Peer) MarkBlock(hash common.Hash) {
	p.knownBlocks.Add(hash, struct{}{})
}

// KnowsBlock reports whether hash has already been marked known.
func (p *Peer) KnowsBlock(hash common.Hash) bool {
	return p.knownBlocks.Contains(hash)
}

// close fails every pending request with ErrSessionClosed and prevents new
// registrations; called once when the peer's run loop returns.
func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.term)
		p.pendingMu.Lock()
		defer p.pendingMu.Unlock()
		for _, pr := range p.pending {
			pr.complete(nil, ErrSessionClosed)
		}
		p.pending = make(map[uint64]*pendingRequest)
		p.dedup = make(map[string]*pendingRequest)
	})
}

// request registers a new pending call under dedupKey, reusing an
// in-flight one with the same key if present, and returns a function the
// caller blocks on to get the decoded response or an error. send is
// invoked with the reqId to use only when no in-flight request shares
// dedupKey.
func (p *Peer) request(dedupKey string, send func(reqID uint64) error) (func() (interface{}, error), error) {
	p.pendingMu.Lock()
	if existing, ok := p.dedup[dedupKey]; ok {
		p.pendingMu.Unlock()
		return existing.wait, nil
	}
	select {
	case <-p.term:
		p.pendingMu.Unlock()
		return nil, ErrSessionClosed
	default:
	}

	reqID := atomic.AddUint64(&p.nextReqID, 1)
	pr := &pendingRequest{
		reqID:    reqID,
		dedupKey: dedupKey,
		done:     make(chan struct{}),
	}
	pr.timer = time.AfterFunc(requestTimeout, func() {
		pr.complete(nil, ErrRequestTimeout)
		p.clearPending(pr)
	})
	p.pending[reqID] = pr
	p.dedup[dedupKey] = pr
	p.pendingMu.Unlock()

	if err := send(reqID); err != nil {
		pr.complete(nil, err)
		p.clearPending(pr)
		return nil, err
	}
	return pr.wait, nil
}

func (pr *pendingRequest) wait() (interface{}, error) {
	<-pr.done
	return pr.value, pr.resErr
}

// clearPending removes a completed or timed-out request from both
// correlation tables.
func (p *Peer) clearPending(pr *pendingRequest) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if cur, ok := p.pending[pr.reqID]; ok && cur == pr {
		delete(p.pending, pr.reqID)
	}
	if cur, ok := p.dedup[pr.dedupKey]; ok && cur == pr {
		delete(p.dedup, pr.dedupKey)
	}
}

// deliver completes the pending request matching reqID with value,
// discarding orphan responses with no matching entry.
func (p *Peer) deliver(reqID uint64, value interface{}) bool {
	p.pendingMu.Lock()
	pr, ok := p.pending[reqID]
	p.pendingMu.Unlock()
	if !ok {
		return false
	}
	pr.complete(value, nil)
	p.clearPending(pr)
	return true
}

// dedupeHashes removes duplicate hashes while preserving first-seen order,
// used before building GET_* requests that carry a hash list.
func dedupeHashes(hashes []common.Hash) []common.Hash {
	seen := mapset.NewThreadUnsafeSet[common.Hash]()
	out := make([]common.Hash, 0, len(hashes))
	for _, h := range hashes {
		if seen.Contains(h) {
			continue
		}
		seen.Add(h)
		out = append(out, h)
	}
	return out
}

// hashListKey builds a canonical dedup key from a verb and a hash list,
// independent of input ordering.
func hashListKey(verb string, hashes []common.Hash) string {
	strs := make([]string, len(hashes))
	for i, h := range hashes {
		strs[i] = h.Hex()
	}
	sort.Strings(strs)
	return verb + ":" + strings.Join(strs, ",")
}

// RequestHeaders issues a GET_BLOCK_HEADERS call. Only supported on
// eth/66 and newer, per this session's request/response correlation
// requirement.
func (p *Peer) RequestHeaders(origin HashOrNumber, amount, skip uint64, reverse bool) (func() (interface{}, error), error) {
	if p.version < ETH66 {
		return nil, fmt.Errorf("eth/%d peer does not support correlated requests", p.version)
	}
	key := fmt.Sprintf("headers:%v:%d:%d:%v", origin, amount, skip, reverse)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetBlockHeadersMsg, &GetBlockHeadersPacket{
			RequestId: reqID,
			GetBlockHeadersRequest: &GetBlockHeadersRequest{
				Origin: origin, Amount: amount, Skip: skip, Reverse: reverse,
			},
		})
	})
}

// RequestBodies issues a GET_BLOCK_BODIES call.
func (p *Peer) RequestBodies(hashes []common.Hash) (func() (interface{}, error), error) {
	if p.version < ETH66 {
		return nil, fmt.Errorf("eth/%d peer does not support correlated requests", p.version)
	}
	hashes = dedupeHashes(hashes)
	key := hashListKey("bodies", hashes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetBlockBodiesMsg, &GetBlockBodiesPacket{RequestId: reqID, Hashes: hashes})
	})
}

// RequestReceipts issues a GET_RECEIPTS call.
func (p *Peer) RequestReceipts(hashes []common.Hash) (func() (interface{}, error), error) {
	if p.version < ETH66 {
		return nil, fmt.Errorf("eth/%d peer does not support correlated requests", p.version)
	}
	hashes = dedupeHashes(hashes)
	key := hashListKey("receipts", hashes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetReceiptsMsg, &GetReceiptsPacket{RequestId: reqID, Hashes: hashes})
	})
}

// RequestPooledTransactions issues a GET_POOLED_TRANSACTIONS call.
func (p *Peer) RequestPooledTransactions(hashes []common.Hash) (func() (interface{}, error), error) {
	if p.version < ETH66 {
		return nil, fmt.Errorf("eth/%d peer does not support correlated requests", p.version)
	}
	hashes = dedupeHashes(hashes)
	key := hashListKey("pooledtxs", hashes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetPooledTransactionsMsg, &GetPooledTransactionsPacket{
			RequestId: reqID, GetPooledTransactionsRequest: GetPooledTransactionsRequest(hashes),
		})
	})
}

// RequestNodeData issues a GET_NODE_DATA call. It is accepted only on eth/66,
// the one version that both carries GET_NODE_DATA and correlates requests
// by ID.
func (p *Peer) RequestNodeData(hashes []common.Hash) (func() (interface{}, error), error) {
	if p.version < ETH66 || p.version > ETH66 {
		return nil, fmt.Errorf("eth/%d peer does not support GET_NODE_DATA", p.version)
	}
	hashes = dedupeHashes(hashes)
	key := hashListKey("nodedata", hashes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetNodeDataMsg, &GetNodeDataPacket{RequestId: reqID, Hashes: hashes})
	})
}
