// Package notificationgen watches persisted chain events and
// validator-state diffs, matches them against per-user rules, and
// enqueues notification rows for out-of-band delivery.
package notificationgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/subvt-network/subvt/pkg/app"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/metrics"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// Inspector runs the per-block sequence of rule-matching checks
// against the relational event store, enqueueing a Notification row
// per matching (rule, channel) pair. One Inspector is shared across
// every block inspected by a process.
type Inspector struct {
	gateway   *database.Gateway
	networkID int64
	logger    *log.Logger
}

// New builds an Inspector bound to one network's notification rules.
func New(gateway *database.Gateway, networkID int64, logger *log.Logger) *Inspector {
	if logger == nil {
		logger = log.New(log.Writer(), "[NotificationGenerator] ", log.LstdFlags)
	}
	return &Inspector{gateway: gateway, networkID: networkID, logger: logger}
}

// generateNotifications matches rules against validatorAccountID and
// enqueues one row per (rule, channel) pair, so each configured
// delivery endpoint gets its own independently retryable row.
func (i *Inspector) generateNotifications(ctx context.Context, block app.BlockContext, typeCode app.NotificationTypeCode, validatorAccountID substrate.AccountID, parameters any) error {
	rules, err := i.gateway.App.GetNotificationRulesForValidator(ctx, typeCode, i.networkID, validatorAccountID)
	if err != nil {
		return fmt.Errorf("notificationgen: lookup rules for %s/%s: %w", typeCode, validatorAccountID, err)
	}
	if len(rules) == 0 {
		return nil
	}
	var paramBytes []byte
	if parameters != nil {
		paramBytes, err = json.Marshal(parameters)
		if err != nil {
			return fmt.Errorf("notificationgen: marshal parameters for %s: %w", typeCode, err)
		}
	}
	for _, rule := range rules {
		for _, channelID := range rule.ChannelIDs {
			channel, err := i.gateway.App.GetChannel(ctx, channelID)
			if err != nil {
				i.logger.Printf("skipping channel %s for rule %s: %v", channelID, rule.ID, err)
				continue
			}
			n := &app.Notification{
				ID:               uuid.New(),
				RuleID:           rule.ID,
				ChannelID:        channelID,
				Target:           channel.Target,
				NotificationType: typeCode,
				Block:            block,
				Parameters:       paramBytes,
				Ready:            rule.Period == app.PeriodImmediate,
			}
			if err := i.gateway.App.EnqueueNotification(ctx, n); err != nil {
				return fmt.Errorf("notificationgen: enqueue %s for rule %s: %w", typeCode, rule.ID, err)
			}
			metrics.NotificationsQueued.Inc()
		}
	}
	i.logger.Printf("matched %d rule(s) for %s on validator %s at block #%d", len(rules), typeCode, validatorAccountID, block.BlockNumber)
	return nil
}

func blockContext(block *substrate.Block, extrinsicIndex, eventIndex *int) app.BlockContext {
	return app.BlockContext{
		BlockHash:       block.Hash,
		BlockNumber:     block.Number,
		TimestampMillis: block.TimestampMillis,
		ExtrinsicIndex:  extrinsicIndex,
		EventIndex:      eventIndex,
	}
}

// InspectAuthorship raises a notification when the block's author
// matches a ChainValidatorBlockAuthorship rule.
func (i *Inspector) InspectAuthorship(ctx context.Context, block *substrate.Block) error {
	if block.AuthorAccountID == nil {
		i.logger.Printf("block #%d has no resolvable author, skipping authorship inspection", block.Number)
		return nil
	}
	return i.generateNotifications(ctx, blockContext(block, nil, nil),
		app.NotificationChainValidatorBlockAuthorship, *block.AuthorAccountID, nil)
}

// InspectOfflineOffences raises one notification per offending
// validator named in this block's ImOnline.SomeOffline events.
func (i *Inspector) InspectOfflineOffences(ctx context.Context, block *substrate.Block) error {
	events, err := i.gateway.Events.GetOfflineOffenceEvents(ctx, block.Hash)
	if err != nil {
		return fmt.Errorf("notificationgen: load offline offence events: %w", err)
	}
	for _, e := range events {
		eventIndex := e.EventIndex
		if err := i.generateNotifications(ctx, blockContext(block, nil, &eventIndex),
			app.NotificationChainValidatorOfflineOffence, e.ValidatorAccountID, e); err != nil {
			return err
		}
	}
	return nil
}

// InspectChillings raises one notification per Staking.Chilled event
// in this block.
func (i *Inspector) InspectChillings(ctx context.Context, block *substrate.Block) error {
	events, err := i.gateway.Events.GetChilledEvents(ctx, block.Hash)
	if err != nil {
		return fmt.Errorf("notificationgen: load chilled events: %w", err)
	}
	for _, e := range events {
		eventIndex := e.EventIndex
		if err := i.generateNotifications(ctx, blockContext(block, e.ExtrinsicIndex, &eventIndex),
			app.NotificationChainValidatorChilled, e.AccountID, e); err != nil {
			return err
		}
	}
	return nil
}

// inspectExtrinsicCall raises one notification per signed extrinsic in
// this block dispatching moduleName.callName, keyed off the signer.
func (i *Inspector) inspectExtrinsicCall(ctx context.Context, block *substrate.Block, moduleName, callName string, typeCode app.NotificationTypeCode) error {
	extrinsics, err := i.gateway.Network.GetExtrinsicsByCall(ctx, block.Hash, moduleName, callName)
	if err != nil {
		return fmt.Errorf("notificationgen: load %s.%s extrinsics: %w", moduleName, callName, err)
	}
	for _, e := range extrinsics {
		extrinsicIndex := e.Index
		if err := i.generateNotifications(ctx, blockContext(block, &extrinsicIndex, nil),
			typeCode, e.SignerAccountID, e); err != nil {
			return err
		}
	}
	return nil
}

// InspectValidateExtrinsics raises a notification for every
// Staking.validate extrinsic signer in this block.
func (i *Inspector) InspectValidateExtrinsics(ctx context.Context, block *substrate.Block) error {
	return i.inspectExtrinsicCall(ctx, block, "Staking", "validate", app.NotificationChainValidateExtrinsic)
}

// InspectSetControllerExtrinsics raises a notification for every
// Staking.set_controller extrinsic signer in this block.
func (i *Inspector) InspectSetControllerExtrinsics(ctx context.Context, block *substrate.Block) error {
	return i.inspectExtrinsicCall(ctx, block, "Staking", "set_controller", app.NotificationChainValidatorSetController)
}

// InspectPayoutStakersExtrinsics raises a notification for every
// Staking.payout_stakers extrinsic signer in this block.
func (i *Inspector) InspectPayoutStakersExtrinsics(ctx context.Context, block *substrate.Block) error {
	return i.inspectExtrinsicCall(ctx, block, "Staking", "payout_stakers", app.NotificationChainValidatorPayoutStakers)
}
