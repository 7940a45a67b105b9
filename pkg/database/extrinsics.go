package database

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveExtrinsic persists a decoded extrinsic. Idempotent on
// (block_hash, index).
func (s *NetworkStore) SaveExtrinsic(ctx context.Context, blockHash substrate.Hash, e *substrate.Extrinsic) error {
	var signer interface{}
	var nonce interface{}
	var tip interface{}
	if e.Signature != nil {
		signer = idHex(e.Signature.SignerAccountID)
		nonce = e.Signature.Nonce
		tip = e.Signature.Tip
	}
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO extrinsic (block_hash, index, version, module_name, call_name, signer_account_id, nonce, tip, is_signed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (block_hash, index) DO NOTHING`,
		hashHex(blockHash), e.Index, e.Version, e.ModuleName, e.CallName, signer, nonce, tip, e.IsSigned())
	if err != nil {
		return fmt.Errorf("database: save extrinsic (%s, %d): %w", hashHex(blockHash), e.Index, err)
	}
	return nil
}

// SignedExtrinsic is the reduced projection of an extrinsic row the
// notification generator's validate/set_controller/payout_stakers
// inspectors need: which index in the block, and who signed it.
type SignedExtrinsic struct {
	Index           int
	SignerAccountID substrate.AccountID
}

// GetExtrinsicsByCall returns every signed extrinsic in blockHash
// dispatching moduleName.callName, in block order.
func (s *NetworkStore) GetExtrinsicsByCall(ctx context.Context, blockHash substrate.Hash, moduleName, callName string) ([]*SignedExtrinsic, error) {
	rows, err := s.client.QueryContext(ctx, `
		SELECT index, signer_account_id FROM extrinsic
		WHERE block_hash = $1 AND module_name = $2 AND call_name = $3 AND signer_account_id IS NOT NULL
		ORDER BY index ASC`, hashHex(blockHash), moduleName, callName)
	if err != nil {
		return nil, fmt.Errorf("database: get %s.%s extrinsics in block %s: %w", moduleName, callName, hashHex(blockHash), err)
	}
	defer rows.Close()

	var out []*SignedExtrinsic
	for rows.Next() {
		var signerHex string
		e := &SignedExtrinsic{}
		if err := rows.Scan(&e.Index, &signerHex); err != nil {
			return nil, fmt.Errorf("database: scan %s.%s extrinsic: %w", moduleName, callName, err)
		}
		id, err := accountIDFromHex(signerHex)
		if err != nil {
			return nil, err
		}
		e.SignerAccountID = id
		out = append(out, e)
	}
	return out, rows.Err()
}
