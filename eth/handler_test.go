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
	"testing"

	"github.com/nodalchain/nodalchain/types"
)

func TestCapBySizeReturnsEverythingUnderLimit(t *testing.T) {
	bodies := []*types.Body{{}, {}, {}}
	got := capBySize(bodies, softResponseCap)
	if len(got) != len(bodies) {
		t.Fatalf("expected all %d bodies under the soft cap, got %d", len(bodies), len(got))
	}
}

func TestCapBySizeStopsAtFirstBodyThatCrossesLimit(t *testing.T) {
	bodies := []*types.Body{{}, {}, {}}
	got := capBySize(bodies, 1)
	if len(got) != 1 {
		t.Fatalf("expected truncation to the first body that crosses a 1-byte limit, got %d", len(got))
	}
}

func TestCapBySizeEmptyInput(t *testing.T) {
	if got := capBySize(nil, softResponseCap); len(got) != 0 {
		t.Fatalf("expected empty input to yield empty output, got %d", len(got))
	}
}
