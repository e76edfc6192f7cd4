// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"errors"
	"strings"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const revertPrefix = "execution reverted: "

// DecodeRevert turns a node error carrying revert data or a revert message
// into *ledger.RevertError. Other errors are returned unchanged.
func DecodeRevert(err error) error {
	if err == nil {
		return nil
	}
	var rev *ledger.RevertError
	if errors.As(err, &rev) {
		return err
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return &ledger.RevertError{Reason: reason}
				}
			}
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, revertPrefix); i >= 0 {
		return &ledger.RevertError{Reason: strings.TrimSpace(msg[i+len(revertPrefix):])}
	}
	return err
}
