package types

import (
	"fmt"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/evm"
)

// UserOperationRequest 是待签名的 ERC-4337 user operation 文件。
type UserOperationRequest struct {
	UserOperation  *evm.PackedUserOperation `json:"user_operation"`
	EntryPoint     string                   `json:"entry_point"`
	ChainID        uint64                   `json:"chain_id"`
	DerivationPath string                   `json:"derivation_path"`
}

// Resolve validates the request and returns its typed parts.
// EntryPoint defaults to the v0.7 entry point when empty.
func (r *UserOperationRequest) Resolve() (*evm.PackedUserOperation, address.Address, evm.ChainID, bip44.Path, error) {
	var (
		ep   = evm.EntryPointV07
		path bip44.Path
	)
	if r.UserOperation == nil {
		return nil, ep, 0, path, fmt.Errorf("%w: user_operation", errno.ErrMissingField)
	}
	if r.EntryPoint != "" {
		a, err := address.FromHex(r.EntryPoint)
		if err != nil {
			return nil, ep, 0, path, fmt.Errorf("entry_point: %w", err)
		}
		ep = a
	}
	chainID, err := evm.NewChainID(r.ChainID)
	if err != nil {
		return nil, ep, 0, path, err
	}
	path, err = bip44.ParsePath(r.DerivationPath)
	if err != nil {
		return nil, ep, 0, path, err
	}
	return r.UserOperation, ep, chainID, path, nil
}

// UserOperationSignature 是签名结果。Signature 使用 v=27/28，可直接放入 userOp.signature。
type UserOperationSignature struct {
	UserOpHash string `json:"user_op_hash"`
	Signature  string `json:"signature"`
	Signer     string `json:"signer"`
}
