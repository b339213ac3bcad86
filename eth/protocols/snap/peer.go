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

package snap

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/p2p"
)

// requestTimeout is the default per-request deadline; snap has no
// STATUS handshake so it applies uniformly from the moment the
// subprotocol is instantiated.
const requestTimeout = 8 * time.Second

// A dedup key can have more than one concurrent waiter, so completion
// closes done rather than sending on a channel: every waiter's wait()
// observes the same value/err pair instead of racing to drain a
// single-slot channel.
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

func (pr *pendingRequest) wait() (interface{}, error) {
	<-pr.done
	return pr.value, pr.resErr
}

// Peer wraps a negotiated p2p.Peer with the snap session state: the
// per-peer reqId counter, the pending-request correlation table, and
// request deduplication by canonical query key, mirroring eth.Peer's
// correlation machinery for a protocol that carries no known-item caches
// of its own.
type Peer struct {
	*p2p.Peer
	rw p2p.MsgReadWriter

	nextReqID uint64

	mu      sync.Mutex
	pending map[uint64]*pendingRequest
	dedup   map[string]*pendingRequest

	term      chan struct{}
	closeOnce sync.Once
}

func NewPeer(p *p2p.Peer, rw p2p.MsgReadWriter) *Peer {
	return &Peer{
		Peer:    p,
		rw:      rw,
		pending: make(map[uint64]*pendingRequest),
		dedup:   make(map[string]*pendingRequest),
		term:    make(chan struct{}),
	}
}

func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.term)
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, pr := range p.pending {
			pr.complete(nil, ErrSessionClosed)
		}
		p.pending = make(map[uint64]*pendingRequest)
		p.dedup = make(map[string]*pendingRequest)
	})
}

func (p *Peer) request(dedupKey string, send func(reqID uint64) error) (func() (interface{}, error), error) {
	p.mu.Lock()
	if existing, ok := p.dedup[dedupKey]; ok {
		p.mu.Unlock()
		return existing.wait, nil
	}
	select {
	case <-p.term:
		p.mu.Unlock()
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
	p.mu.Unlock()

	if err := send(reqID); err != nil {
		pr.complete(nil, err)
		p.clearPending(pr)
		return nil, err
	}
	return pr.wait, nil
}

func (p *Peer) clearPending(pr *pendingRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.pending[pr.reqID]; ok && cur == pr {
		delete(p.pending, pr.reqID)
	}
	if cur, ok := p.dedup[pr.dedupKey]; ok && cur == pr {
		delete(p.dedup, pr.dedupKey)
	}
}

func (p *Peer) deliver(reqID uint64, value interface{}) bool {
	p.mu.Lock()
	pr, ok := p.pending[reqID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	pr.complete(value, nil)
	p.clearPending(pr)
	return true
}

func hashKey(verb string, hashes []common.Hash) string {
	strs := make([]string, len(hashes))
	for i, h := range hashes {
		strs[i] = h.Hex()
	}
	sort.Strings(strs)
	return verb + ":" + strings.Join(strs, ",")
}

// RequestAccountRange issues a GET_ACCOUNT_RANGE call, deduplicated by
// (root, origin, limit, bytes) per the spec's dedup rule for this code.
func (p *Peer) RequestAccountRange(root, origin, limit common.Hash, bytes uint64) (func() (interface{}, error), error) {
	key := fmt.Sprintf("accountrange:%x:%x:%x:%d", root, origin, limit, bytes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetAccountRangeMsg, &GetAccountRangePacket{
			RequestId: reqID, Root: root, Origin: origin, Limit: limit, Bytes: bytes,
		})
	})
}

// RequestStorageRanges issues a GET_STORAGE_RANGES call.
func (p *Peer) RequestStorageRanges(root common.Hash, accounts []common.Hash, origin, limit []byte, bytes uint64) (func() (interface{}, error), error) {
	key := fmt.Sprintf("storageranges:%x:%s:%x:%x:%d", root, hashKey("", accounts), origin, limit, bytes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetStorageRangesMsg, &GetStorageRangesPacket{
			RequestId: reqID, Root: root, Accounts: accounts, Origin: origin, Limit: limit, Bytes: bytes,
		})
	})
}

// RequestByteCodes issues a GET_BYTE_CODES call, deduplicated by the
// sorted hash set so two concurrent callers asking for the same codes
// share one in-flight request (spec.md's S5 scenario, generalized from
// eth.Peer's identical pattern).
func (p *Peer) RequestByteCodes(hashes []common.Hash, bytes uint64) (func() (interface{}, error), error) {
	key := hashKey("bytecodes", hashes) + fmt.Sprintf(":%d", bytes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetByteCodesMsg, &GetByteCodesPacket{RequestId: reqID, Hashes: hashes, Bytes: bytes})
	})
}

// RequestTrieNodes issues a GET_TRIE_NODES call.
func (p *Peer) RequestTrieNodes(root common.Hash, paths []TrieNodePathSet, bytes uint64) (func() (interface{}, error), error) {
	key := fmt.Sprintf("trienodes:%x:%x:%d", root, paths, bytes)
	return p.request(key, func(reqID uint64) error {
		return p2p.Send(p.rw, GetTrieNodesMsg, &GetTrieNodesPacket{RequestId: reqID, Root: root, Paths: paths, Bytes: bytes})
	})
}
