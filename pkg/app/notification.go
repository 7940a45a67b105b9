package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// BlockContext identifies the block and, where relevant, the
// extrinsic/event that triggered a notification.
type BlockContext struct {
	BlockHash       substrate.Hash
	BlockNumber     uint64
	TimestampMillis uint64
	ExtrinsicIndex  *int
	EventIndex      *int
}

// DeliveryLogEntry records one delivery attempt for a queued
// notification, so failed deliveries can be retried out-of-band.
type DeliveryLogEntry struct {
	AttemptedAt time.Time
	Success     bool
	Error       string
}

// Notification is a queued, not-yet-delivered row created optimistically
// by an inspector.
type Notification struct {
	ID               uuid.UUID
	RuleID           uuid.UUID
	ChannelID        uuid.UUID
	Target           string
	NotificationType NotificationTypeCode
	Block            BlockContext
	Parameters       []byte // serialized payload, opaque to this package

	CreatedAt time.Time
	SentAt    *time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
	DeliveryLog []DeliveryLogEntry

	// Ready is set by the period processor once a Hour/Day-period
	// rule's accumulated notifications have been coalesced and are
	// ready for delivery.
	Ready bool
}

// GeneratorState is the notification generator's persisted cursor.
type GeneratorState struct {
	BlockHash   substrate.Hash
	BlockNumber uint64
}
