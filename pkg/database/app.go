package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/subvt-network/subvt/pkg/app"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// AppStore is the relational façade over the application schema:
// users, notification channels, notification rules, and queued
// notifications.
type AppStore struct {
	client *Client
}

// NewAppStore wraps client as an AppStore.
func NewAppStore(client *Client) *AppStore {
	return &AppStore{client: client}
}

// GetNotificationRulesForValidator looks up every active rule matching
// typeCode and networkID whose validator filter is either accountID or
// unset.
func (s *AppStore) GetNotificationRulesForValidator(ctx context.Context, typeCode app.NotificationTypeCode, networkID int64, accountID substrate.AccountID) ([]*app.NotificationRule, error) {
	rows, err := s.client.QueryContext(ctx, `
		SELECT id, user_id, network_id, notification_type, validator_account_id, period, period_value, created_at
		FROM notification_rule
		WHERE deleted = FALSE
		  AND notification_type = $1
		  AND network_id = $2
		  AND (validator_account_id IS NULL OR validator_account_id = $3)
		  AND period != $4`,
		string(typeCode), networkID, idHex(accountID), int(app.PeriodOff))
	if err != nil {
		return nil, fmt.Errorf("database: get notification rules for validator %s: %w", idHex(accountID), err)
	}
	defer rows.Close()

	var rules []*app.NotificationRule
	for rows.Next() {
		r := &app.NotificationRule{}
		var validatorHex sql.NullString
		var period int
		if err := rows.Scan(&r.ID, &r.UserID, &r.NetworkID, &r.NotificationType, &validatorHex, &period, &r.PeriodValue, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: scan notification rule: %w", err)
		}
		r.Period = app.PeriodType(period)
		if validatorHex.Valid {
			id, err := accountIDFromHex(validatorHex.String)
			if err != nil {
				return nil, err
			}
			r.ValidatorAccountID = &id
		}
		channelIDs, err := s.ruleChannelIDs(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.ChannelIDs = channelIDs
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *AppStore) ruleChannelIDs(ctx context.Context, ruleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.client.QueryContext(ctx, `SELECT channel_id FROM notification_rule_channel WHERE rule_id = $1`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("database: get rule channel ids: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetChannel looks up a notification channel's delivery target.
func (s *AppStore) GetChannel(ctx context.Context, channelID uuid.UUID) (*app.NotificationChannel, error) {
	row := s.client.QueryRowContext(ctx, `SELECT id, user_id, kind, target FROM notification_channel WHERE id = $1`, channelID)
	c := &app.NotificationChannel{}
	if err := row.Scan(&c.ID, &c.UserID, &c.Kind, &c.Target); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: get channel %s: %w", channelID, err)
	}
	return c, nil
}

// EnqueueNotification inserts a queued notification row optimistically.
// Notifications are never deduplicated at insert time --
// each matching rule/event pair produces its own row.
func (s *AppStore) EnqueueNotification(ctx context.Context, n *app.Notification) error {
	var extrinsicIndex, eventIndex interface{}
	if n.Block.ExtrinsicIndex != nil {
		extrinsicIndex = *n.Block.ExtrinsicIndex
	}
	if n.Block.EventIndex != nil {
		eventIndex = *n.Block.EventIndex
	}
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO notification (id, rule_id, channel_id, target, notification_type,
			block_hash, block_number, block_timestamp_ms, extrinsic_index, event_index, parameters, ready)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		n.ID, n.RuleID, n.ChannelID, n.Target, string(n.NotificationType),
		hashHex(n.Block.BlockHash), n.Block.BlockNumber, n.Block.TimestampMillis, extrinsicIndex, eventIndex, n.Parameters, n.Ready)
	if err != nil {
		return fmt.Errorf("database: enqueue notification %s: %w", n.ID, err)
	}
	return nil
}

// GetPendingAccumulatedNotifications fetches every not-yet-ready
// notification for rules with the given period type, grouped
// implicitly by (user, rule) via the rule_id column -- the period
// processor coalesces them by reading this list and then
// calling MarkNotificationsReady.
func (s *AppStore) GetPendingAccumulatedNotifications(ctx context.Context, period app.PeriodType) ([]*app.Notification, error) {
	rows, err := s.client.QueryContext(ctx, `
		SELECT n.id, n.rule_id, n.channel_id, n.target, n.notification_type,
		       n.block_hash, n.block_number, n.block_timestamp_ms, n.extrinsic_index, n.event_index, n.parameters
		FROM notification n
		JOIN notification_rule r ON r.id = n.rule_id
		WHERE n.ready = FALSE AND r.period = $1
		ORDER BY n.rule_id, n.created_at`, int(period))
	if err != nil {
		return nil, fmt.Errorf("database: get pending accumulated notifications: %w", err)
	}
	defer rows.Close()

	var out []*app.Notification
	for rows.Next() {
		n := &app.Notification{}
		var blockHashHex string
		var extrinsicIndex, eventIndex sql.NullInt64
		if err := rows.Scan(&n.ID, &n.RuleID, &n.ChannelID, &n.Target, &n.NotificationType,
			&blockHashHex, &n.Block.BlockNumber, &n.Block.TimestampMillis, &extrinsicIndex, &eventIndex, &n.Parameters); err != nil {
			return nil, fmt.Errorf("database: scan pending notification: %w", err)
		}
		h, err := hashFromHex(blockHashHex)
		if err != nil {
			return nil, err
		}
		n.Block.BlockHash = h
		if extrinsicIndex.Valid {
			v := int(extrinsicIndex.Int64)
			n.Block.ExtrinsicIndex = &v
		}
		if eventIndex.Valid {
			v := int(eventIndex.Int64)
			n.Block.EventIndex = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationsReady flips the ready flag for the given rows, the
// final step of the hourly/daily period processor sweep.
func (s *AppStore) MarkNotificationsReady(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := s.client.ExecContext(ctx, `UPDATE notification SET ready = TRUE WHERE id = $1`, id); err != nil {
			return fmt.Errorf("database: mark notification %s ready: %w", id, err)
		}
	}
	return nil
}

// RecordDelivery appends a delivery attempt to a notification's log
// and updates sent/delivered timestamps.
func (s *AppStore) RecordDelivery(ctx context.Context, notificationID uuid.UUID, success bool, deliveryErr string) error {
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO notification_delivery_log (notification_id, attempted_at, success, error)
		VALUES ($1, NOW(), $2, $3)`, notificationID, success, deliveryErr)
	if err != nil {
		return fmt.Errorf("database: record delivery for notification %s: %w", notificationID, err)
	}
	if success {
		_, err = s.client.ExecContext(ctx, `UPDATE notification SET sent_at = NOW() WHERE id = $1 AND sent_at IS NULL`, notificationID)
		if err != nil {
			return fmt.Errorf("database: mark notification %s sent: %w", notificationID, err)
		}
	}
	return nil
}

// GetNotificationGeneratorState reads the notification generator's
// persisted cursor.
func (s *AppStore) GetNotificationGeneratorState(ctx context.Context) (*app.GeneratorState, error) {
	row := s.client.QueryRowContext(ctx, `SELECT block_hash, block_number FROM notification_generator_state WHERE id = 1`)
	var blockHashHex string
	st := &app.GeneratorState{}
	if err := row.Scan(&blockHashHex, &st.BlockNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGeneratorStateNotFound
		}
		return nil, fmt.Errorf("database: get notification generator state: %w", err)
	}
	h, err := hashFromHex(blockHashHex)
	if err != nil {
		return nil, err
	}
	st.BlockHash = h
	return st, nil
}

// SaveNotificationGeneratorState persists the cursor after a
// successful inspect_block(k).
func (s *AppStore) SaveNotificationGeneratorState(ctx context.Context, blockHash substrate.Hash, blockNumber uint64) error {
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO notification_generator_state (id, block_hash, block_number)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET block_hash = EXCLUDED.block_hash, block_number = EXCLUDED.block_number`,
		hashHex(blockHash), blockNumber)
	if err != nil {
		return fmt.Errorf("database: save notification generator state %d: %w", blockNumber, err)
	}
	return nil
}

// HasProcessedEraForUnclaimedPayouts reports whether the unclaimed-
// payout inspector has already run for eraIndex, so an era boundary is
// only inspected once even though every block in the era triggers the
// check.
func (s *AppStore) HasProcessedEraForUnclaimedPayouts(ctx context.Context, eraIndex int64) (bool, error) {
	row := s.client.QueryRowContext(ctx, `SELECT 1 FROM notification_generator_processed_era WHERE era_index = $1`, eraIndex)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("database: check processed era %d: %w", eraIndex, err)
	}
	return true, nil
}

// MarkEraProcessedForUnclaimedPayouts records that eraIndex's unclaimed
// payouts have been inspected.
func (s *AppStore) MarkEraProcessedForUnclaimedPayouts(ctx context.Context, eraIndex int64) error {
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO notification_generator_processed_era (era_index, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (era_index) DO NOTHING`, eraIndex)
	if err != nil {
		return fmt.Errorf("database: mark era %d processed: %w", eraIndex, err)
	}
	return nil
}

func accountIDFromHex(s string) (substrate.AccountID, error) {
	var id substrate.AccountID
	b, err := decodeHexID(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func hashFromHex(s string) (substrate.Hash, error) {
	var h substrate.Hash
	b, err := decodeHexID(s)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}
