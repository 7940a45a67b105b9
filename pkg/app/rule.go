// Package app holds the application-side domain model: notification
// rules, channels, and queued notifications. These are
// user-owned configuration and delivery-queue records, distinct from
// the chain-derived data model in pkg/substrate.
package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// PeriodType is a notification rule's periodicity.
type PeriodType int

const (
	PeriodOff PeriodType = iota
	PeriodImmediate
	PeriodHour
	PeriodDay
	PeriodEpoch
	PeriodEra
)

// NotificationTypeCode identifies what kind of on-chain occurrence a
// rule matches against.
type NotificationTypeCode string

const (
	NotificationChainValidatorBlockAuthorship    NotificationTypeCode = "chain_validator_block_authorship"
	NotificationChainValidatorOfflineOffence     NotificationTypeCode = "chain_validator_offline_offence"
	NotificationChainValidatorChilled            NotificationTypeCode = "chain_validator_chilled"
	NotificationChainValidateExtrinsic             NotificationTypeCode = "chain_validate_extrinsic"
	NotificationChainValidatorSetController       NotificationTypeCode = "chain_validator_set_controller"
	NotificationChainValidatorPayoutStakers       NotificationTypeCode = "chain_validator_payout_stakers"
	NotificationChainValidatorUnclaimedPayout     NotificationTypeCode = "chain_validator_unclaimed_payout"
	NotificationChainValidatorRankChange          NotificationTypeCode = "chain_validator_rank_change"
	NotificationChainValidatorLocationChange      NotificationTypeCode = "chain_validator_location_change"
	NotificationChainValidatorValidityChange      NotificationTypeCode = "chain_validator_validity_change"
	NotificationChainValidatorOnlineStatusChange  NotificationTypeCode = "chain_validator_online_status_change"
	NotificationChainValidatorBinaryVersionChange NotificationTypeCode = "chain_validator_binary_version_change"
	NotificationChainValidatorNewNomination       NotificationTypeCode = "chain_validator_new_nomination"
)

// NotificationChannelKind is the outbound transport a channel targets.
type NotificationChannelKind string

const (
	ChannelChatBot NotificationChannelKind = "chat_bot"
	ChannelEmail   NotificationChannelKind = "email"
	ChannelWebPush NotificationChannelKind = "web_push"
)

// NotificationChannel is a user's configured delivery endpoint.
type NotificationChannel struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Kind   NotificationChannelKind
	Target string // opaque: chat id, email address, push subscription id
}

// NotificationRule is a user's subscription to a notification type,
// immutable once created and soft-deleted rather than physically
// removed.
type NotificationRule struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	NetworkID          int64
	NotificationType   NotificationTypeCode
	ValidatorAccountID *substrate.AccountID // nil means "all validators"
	Period             PeriodType
	PeriodValue        int
	ChannelIDs         []uuid.UUID
	Deleted            bool
	CreatedAt          time.Time
}

// Matches reports whether the rule applies to the given validator
// account.
func (r *NotificationRule) Matches(account substrate.AccountID) bool {
	if r.Deleted || r.Period == PeriodOff {
		return false
	}
	return r.ValidatorAccountID == nil || *r.ValidatorAccountID == account
}
