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

import "github.com/nodalchain/nodalchain/p2p"

// MakeProtocols builds one p2p.Protocol entry per supported version, ready
// to be appended to a p2p.Config's Protocols list. Capability negotiation
// in the base protocol picks the highest version both peers advertise;
// each entry's Run closure only ever serves the version it was built for.
func MakeProtocols(backend *Backend, versions []uint) []p2p.Protocol {
	protos := make([]p2p.Protocol, 0, len(versions))
	for _, version := range versions {
		version := version
		protos = append(protos, p2p.Protocol{
			Name:    ProtocolName,
			Version: version,
			Length:  protocolLengths[version],
			Run: func(p *p2p.Peer, rw p2p.MsgReadWriter) error {
				return Run(version, p, rw, backend)
			},
			NodeInfo: func() interface{} {
				return nodeInfo(backend)
			},
			PeerInfo: func(id p2p.NodeID) interface{} {
				return nil
			},
		})
	}
	return protos
}

// ethNodeInfo is the NodeInfo payload advertised for this host's own eth
// capability, mirroring the STATUS fields a remote peer would check.
type ethNodeInfo struct {
	Network    uint64 `json:"network"`
	Genesis    string `json:"genesis"`
	Head       string `json:"head"`
}

func nodeInfo(backend *Backend) *ethNodeInfo {
	if backend == nil || backend.Chain == nil {
		return nil
	}
	head, _ := backend.Chain.CurrentHead()
	return &ethNodeInfo{
		Network: backend.Chain.NetworkID(),
		Genesis: backend.Chain.GenesisHash().Hex(),
		Head:    head.Hex(),
	}
}
