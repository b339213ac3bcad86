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

package p2p

import "github.com/nodalchain/nodalchain/event"

// Feed is the production event bus backing a Server's peerEvents and
// msgEventFeed seams. It fans PeerEvent and MsgEvent values out to any
// number of subscribers without blocking the caller that published them.
//
// The zero value is ready to use.
type Feed struct {
	peerFeed event.Feed
	msgFeed  event.Feed
}

// SendPeerEvent implements peerEvents.
func (f *Feed) SendPeerEvent(e PeerEvent) { f.peerFeed.Send(e) }

// SendMsgEvent implements msgEventFeed.
func (f *Feed) SendMsgEvent(e MsgEvent) { f.msgFeed.Send(e) }

// SubscribePeerEvents registers ch to receive peer connect/disconnect
// events. See event.Feed.Subscribe for delivery semantics.
func (f *Feed) SubscribePeerEvents(ch chan<- PeerEvent) event.Subscription {
	return f.peerFeed.Subscribe(ch)
}

// SubscribeMsgEvents registers ch to receive per-message send/receive
// events across all running protocols on all peers.
func (f *Feed) SubscribeMsgEvents(ch chan<- MsgEvent) event.Subscription {
	return f.msgFeed.Subscribe(ch)
}
