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

import "github.com/nodalchain/nodalchain/p2p"

// MakeProtocols builds the p2p.Protocol entries for every supported snap
// version, ready to be appended alongside eth.MakeProtocols' entries on
// the same p2p.Config.Protocols list.
func MakeProtocols(backend *Backend) []p2p.Protocol {
	protos := make([]p2p.Protocol, 0, len(ProtocolVersions))
	for _, version := range ProtocolVersions {
		version := version
		protos = append(protos, p2p.Protocol{
			Name:    ProtocolName,
			Version: version,
			Length:  protocolLength,
			Run: func(p *p2p.Peer, rw p2p.MsgReadWriter) error {
				return Run(p, rw, backend)
			},
		})
	}
	return protos
}
