package kvstore

import (
	"encoding/hex"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// Keys builds the bit-exact key and channel names consumed by the
// subscription servers. Every key is namespaced by chain so one Redis
// instance can serve several networks.
type Keys struct {
	Chain string
}

func (k Keys) prefix() string { return "subvt:" + k.Chain }

func (k Keys) FinalizedBlockNumber() string { return k.prefix() + ":validators:finalized_block_number" }
func (k Keys) FinalizedBlockHash() string   { return k.prefix() + ":validators:finalized_block_hash" }
func (k Keys) ActiveAddresses() string      { return k.prefix() + ":validators:active:addresses" }
func (k Keys) InactiveAddresses() string    { return k.prefix() + ":validators:inactive:addresses" }

// ValidatorKeyPrefix returns the "subvt:<chain>:validators:<N>:" root
// under which a single materializer run's per-validator keys live, so
// DelByPrefix can clear an entire prior run in one sweep.
func (k Keys) ValidatorKeyPrefix(blockNumber uint64) string {
	return fmt.Sprintf("%s:validators:%d:", k.prefix(), blockNumber)
}

func (k Keys) activeValidator(blockNumber uint64, id substrate.AccountID) string {
	return fmt.Sprintf("%sactive:validator:%s", k.ValidatorKeyPrefix(blockNumber), idHex(id))
}

func (k Keys) inactiveValidator(blockNumber uint64, id substrate.AccountID) string {
	return fmt.Sprintf("%sinactive:validator:%s", k.ValidatorKeyPrefix(blockNumber), idHex(id))
}

// ValidatorJSON returns the key holding a validator's full JSON
// document, active or inactive.
func (k Keys) ValidatorJSON(blockNumber uint64, id substrate.AccountID, active bool) string {
	if active {
		return k.activeValidator(blockNumber, id)
	}
	return k.inactiveValidator(blockNumber, id)
}

// ValidatorHash returns the key holding the validator JSON's stable
// fingerprint.
func (k Keys) ValidatorHash(blockNumber uint64, id substrate.AccountID, active bool) string {
	return k.ValidatorJSON(blockNumber, id, active) + ":hash"
}

// ValidatorSummaryHash returns the key holding the validator's reduced
// ValidatorSummary fingerprint.
func (k Keys) ValidatorSummaryHash(blockNumber uint64, id substrate.AccountID, active bool) string {
	return k.ValidatorJSON(blockNumber, id, active) + ":summary_hash"
}

func (k Keys) LiveNetworkStatus() string { return k.prefix() + ":live_network_status" }

func (k Keys) ValidatorsPublishChannel() string {
	return k.prefix() + ":validators:publish:finalized_block_number"
}

func (k Keys) LiveNetworkStatusPublishChannel() string {
	return k.prefix() + ":live_network_status:publish:best_block_number"
}

func idHex(id substrate.AccountID) string { return "0x" + hex.EncodeToString(id[:]) }
