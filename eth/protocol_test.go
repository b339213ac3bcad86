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
	"errors"
	"testing"
)

func TestValidateCodeRejectsUnknownCode(t *testing.T) {
	if err := validateCode(ETH68, 0x0b); err == nil {
		t.Fatal("expected error for unused message code 0x0b")
	}
}

func TestValidateCodeEnforcesMinVersion(t *testing.T) {
	if err := validateCode(ETH64, GetPooledTransactionsMsg); err == nil {
		t.Fatal("expected eth/64 to reject a pooled-transaction message introduced in eth/65")
	}
	if err := validateCode(ETH65, GetPooledTransactionsMsg); err != nil {
		t.Fatalf("eth/65 should accept GetPooledTransactionsMsg: %v", err)
	}
}

func TestValidateCodeRetiresNodeDataAfterETH66(t *testing.T) {
	if err := validateCode(ETH66, GetNodeDataMsg); err != nil {
		t.Fatalf("eth/66 should still accept GetNodeDataMsg: %v", err)
	}
	if err := validateCode(ETH67, GetNodeDataMsg); err == nil {
		t.Fatal("expected eth/67 to reject the retired GetNodeDataMsg")
	}
}

func TestErrSentinelsDistinguishableWithErrorsIs(t *testing.T) {
	err := errors.New(ErrForkIDMismatch.Error())
	if errors.Is(err, ErrForkIDMismatch) {
		t.Fatal("plain errors.New should not satisfy errors.Is against the Err sentinel")
	}
	if !errors.Is(ErrForkIDMismatch, ErrForkIDMismatch) {
		t.Fatal("an Err sentinel must satisfy errors.Is against itself")
	}
}
