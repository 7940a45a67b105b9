package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// NetworkStore is the relational façade over the network schema:
// blocks, eras, epochs, per-era validator/staker records, and the
// chain-event tables.
type NetworkStore struct {
	client *Client
}

// NewNetworkStore wraps client as a NetworkStore.
func NewNetworkStore(client *Client) *NetworkStore {
	return &NetworkStore{client: client}
}

func hashHex(h substrate.Hash) string { return "0x" + hex.EncodeToString(h[:]) }
func idHex(id substrate.AccountID) string { return "0x" + hex.EncodeToString(id[:]) }

// decodeHexID decodes a "0x"-prefixed 32-byte hex string, shared by
// AccountID and Hash scanning helpers.
func decodeHexID(s string) ([]byte, error) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("database: malformed hex id %q: %w", s, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("database: expected 32-byte id, got %d bytes in %q", len(b), s)
	}
	return b, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// SaveBlock inserts a block row. Idempotent: a second insert for the
// same hash is a no-op.
func (s *NetworkStore) SaveBlock(ctx context.Context, b *substrate.Block) error {
	var author interface{}
	if b.AuthorAccountID != nil {
		author = idHex(*b.AuthorAccountID)
	}
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO block (hash, number, parent_hash, state_root, extrinsics_root, timestamp_ms, author_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hash) DO NOTHING`,
		hashHex(b.Hash), b.Number, hashHex(b.ParentHash), hashHex(b.StateRoot), hashHex(b.ExtrinsicsRoot), b.TimestampMillis, author)
	if err != nil {
		return fmt.Errorf("database: save block %d: %w", b.Number, err)
	}
	return nil
}

// GetBlockByNumber loads a persisted block row, used by the
// notification generator to resolve the block a cursor position
// refers to before running its inspectors against it.
func (s *NetworkStore) GetBlockByNumber(ctx context.Context, number uint64) (*substrate.Block, error) {
	row := s.client.QueryRowContext(ctx, `
		SELECT hash, number, parent_hash, state_root, extrinsics_root, timestamp_ms, author_account_id
		FROM block WHERE number = $1`, number)
	return scanBlock(row)
}

// GetBlockByHash is GetBlockByNumber keyed by hash instead of number.
func (s *NetworkStore) GetBlockByHash(ctx context.Context, hash substrate.Hash) (*substrate.Block, error) {
	row := s.client.QueryRowContext(ctx, `
		SELECT hash, number, parent_hash, state_root, extrinsics_root, timestamp_ms, author_account_id
		FROM block WHERE hash = $1`, hashHex(hash))
	return scanBlock(row)
}

func scanBlock(row *sql.Row) (*substrate.Block, error) {
	var hashStr, parentHashStr, stateRootStr, extrinsicsRootStr string
	var author sql.NullString
	b := &substrate.Block{}
	if err := row.Scan(&hashStr, &b.Number, &parentHashStr, &stateRootStr, &extrinsicsRootStr, &b.TimestampMillis, &author); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: scan block: %w", err)
	}
	var err error
	if b.Hash, err = hashFromHex(hashStr); err != nil {
		return nil, err
	}
	if b.ParentHash, err = hashFromHex(parentHashStr); err != nil {
		return nil, err
	}
	if b.StateRoot, err = hashFromHex(stateRootStr); err != nil {
		return nil, err
	}
	if b.ExtrinsicsRoot, err = hashFromHex(extrinsicsRootStr); err != nil {
		return nil, err
	}
	if author.Valid {
		id, err := accountIDFromHex(author.String)
		if err != nil {
			return nil, err
		}
		b.AuthorAccountID = &id
	}
	return b, nil
}

// SaveEra inserts an era row. Idempotent on era index.
func (s *NetworkStore) SaveEra(ctx context.Context, e *substrate.Era) error {
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO era (index, start_timestamp_ms, end_timestamp_ms, min_stake, max_stake, average_stake, median_stake, total_stake, active_nominator_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (index) DO NOTHING`,
		e.Index, e.StartTimestampMillis, e.EndTimestampMillis, e.MinStake, e.MaxStake, e.AverageStake, e.MedianStake, e.TotalStake, e.ActiveNominatorCount)
	if err != nil {
		return fmt.Errorf("database: save era %d: %w", e.Index, err)
	}
	return nil
}

// UpdateEraTotalValidatorReward fills in the lazily-known total
// validator reward for an era once its payouts exist on chain.
func (s *NetworkStore) UpdateEraTotalValidatorReward(ctx context.Context, era int64, totalValidatorReward string) error {
	_, err := s.client.ExecContext(ctx, `
		UPDATE era SET total_validator_reward = $2 WHERE index = $1`, era, totalValidatorReward)
	if err != nil {
		return fmt.Errorf("database: update era %d total validator reward: %w", era, err)
	}
	return nil
}

// GetLatestEra returns the most recently observed era, used by the
// unclaimed-payout inspector to decide whether an era boundary has
// passed its configured check delay.
func (s *NetworkStore) GetLatestEra(ctx context.Context) (*substrate.Era, error) {
	row := s.client.QueryRowContext(ctx, `
		SELECT index, start_timestamp_ms, end_timestamp_ms, min_stake, max_stake, average_stake, median_stake, total_stake, active_nominator_count
		FROM era ORDER BY index DESC LIMIT 1`)
	e := &substrate.Era{}
	if err := row.Scan(&e.Index, &e.StartTimestampMillis, &e.EndTimestampMillis,
		&e.MinStake, &e.MaxStake, &e.AverageStake, &e.MedianStake, &e.TotalStake, &e.ActiveNominatorCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: get latest era: %w", err)
	}
	return e, nil
}

// SaveEpoch inserts an epoch (session) row. Idempotent on index.
func (s *NetworkStore) SaveEpoch(ctx context.Context, ep *substrate.Epoch) error {
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO epoch (index, start_block_number, start_timestamp_ms, end_timestamp_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (index) DO NOTHING`,
		ep.Index, ep.StartBlockNumber, ep.StartTimestampMillis, ep.EndTimestampMillis)
	if err != nil {
		return fmt.Errorf("database: save epoch %d: %w", ep.Index, err)
	}
	return nil
}

// SaveEraValidators records, for a single era, which accounts were
// validators. Idempotent per (era,
// account).
func (s *NetworkStore) SaveEraValidators(ctx context.Context, era int64, accounts []substrate.AccountID) error {
	for _, a := range accounts {
		_, err := s.client.ExecContext(ctx, `
			INSERT INTO era_validator (era_index, account_id)
			VALUES ($1, $2)
			ON CONFLICT (era_index, account_id) DO NOTHING`, era, idHex(a))
		if err != nil {
			return fmt.Errorf("database: save era validator %s era %d: %w", idHex(a), era, err)
		}
	}
	return nil
}

// SaveEraStakers records one validator's nominator backers for an era.
// Idempotent per (era, validator, nominator).
func (s *NetworkStore) SaveEraStakers(ctx context.Context, era int64, validator substrate.AccountID, nominations []substrate.Nomination) error {
	for _, n := range nominations {
		_, err := s.client.ExecContext(ctx, `
			INSERT INTO era_staker (era_index, validator_account_id, nominator_account_id, stake)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (era_index, validator_account_id, nominator_account_id) DO NOTHING`,
			era, idHex(validator), idHex(n.NominatorAccount), n.Stake)
		if err != nil {
			return fmt.Errorf("database: save era staker %s/%s era %d: %w", idHex(validator), idHex(n.NominatorAccount), era, err)
		}
	}
	return nil
}

// UpdateEraRewardPoints aggregates the reward points published for an
// era. Unlike the inserts above, this is the one update that does NOT
// short-circuit on conflict: reward points accumulate as
// Staking.ErasRewardPoints is re-read.
func (s *NetworkStore) UpdateEraRewardPoints(ctx context.Context, points *substrate.EraRewardPoints) error {
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO era_reward_points (era_index, total)
		VALUES ($1, $2)
		ON CONFLICT (era_index) DO UPDATE SET total = EXCLUDED.total`,
		points.Era, points.Total)
	if err != nil {
		return fmt.Errorf("database: update era reward points era %d: %w", points.Era, err)
	}
	for account, p := range points.Points {
		_, err := s.client.ExecContext(ctx, `
			INSERT INTO era_validator_reward_points (era_index, account_id, points)
			VALUES ($1, $2, $3)
			ON CONFLICT (era_index, account_id) DO UPDATE SET points = EXCLUDED.points`,
			points.Era, idHex(account), p)
		if err != nil {
			return fmt.Errorf("database: update validator %s reward points era %d: %w", idHex(account), points.Era, err)
		}
	}
	return nil
}

// ValidatorInfo is the relational-store contribution to a validator
// snapshot's derived counters.
type ValidatorInfo struct {
	DiscoveredAt        *int64
	KilledAt            *int64
	SlashCount          int
	OfflineOffenceCount int
	ActiveEraCount      int
	InactiveEraCount    int
	TotalRewardPoints   uint64
	UnclaimedEraIndices []int64
	BlocksAuthored      int
	RewardPoints        uint64
	HeartbeatReceived   bool
}

// GetValidatorInfo looks up the derived counters for one validator at
// blockHash, for the given era and activity flag.
func (s *NetworkStore) GetValidatorInfo(ctx context.Context, blockHash substrate.Hash, account substrate.AccountID, isActive bool, era int64) (*ValidatorInfo, error) {
	row := s.client.QueryRowContext(ctx, `
		SELECT discovered_at, killed_at, slash_count, offline_offence_count,
		       active_era_count, inactive_era_count, total_reward_points,
		       blocks_authored, reward_points, heartbeat_received
		FROM validator_info
		WHERE block_hash = $1 AND account_id = $2 AND is_active = $3 AND era_index = $4`,
		hashHex(blockHash), idHex(account), isActive, era)

	info := &ValidatorInfo{}
	err := row.Scan(&info.DiscoveredAt, &info.KilledAt, &info.SlashCount, &info.OfflineOffenceCount,
		&info.ActiveEraCount, &info.InactiveEraCount, &info.TotalRewardPoints,
		&info.BlocksAuthored, &info.RewardPoints, &info.HeartbeatReceived)
	if err == sql.ErrNoRows {
		return nil, ErrValidatorInfoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: get validator info %s: %w", idHex(account), err)
	}

	rows, err := s.client.QueryContext(ctx, `
		SELECT era_index FROM validator_unclaimed_era
		WHERE account_id = $1 ORDER BY era_index ASC`, idHex(account))
	if err != nil {
		return nil, fmt.Errorf("database: get unclaimed eras %s: %w", idHex(account), err)
	}
	defer rows.Close()
	for rows.Next() {
		var era int64
		if err := rows.Scan(&era); err != nil {
			return nil, err
		}
		info.UnclaimedEraIndices = append(info.UnclaimedEraIndices, era)
	}
	return info, rows.Err()
}
