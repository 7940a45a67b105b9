package chain

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

func mapKeysFor(md *metadata.Metadata, module, item string, accounts []substrate.AccountID) ([]string, error) {
	keys := make([]string, len(accounts))
	for i, id := range accounts {
		key, err := mapStorageKey(md, module, item, encodeAccountID(id))
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}

// fillNextSessionKeys reads Session.NextKeys for every validator
// candidate: the session keys queued to take effect next session. The
// stored value is the opaque session-key blob verbatim, not a SCALE
// wrapper around it.
func (c *Client) fillNextSessionKeys(ctx context.Context, md *metadata.Metadata, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, order []substrate.AccountID, atBlockHash string) error {
	keys, err := mapKeysFor(md, "Session", "NextKeys", order)
	if err != nil {
		return err
	}
	changes, err := c.queryStorageAtChunked(ctx, keys, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Value == nil {
			continue
		}
		accountID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return err
		}
		if v, ok := byAccount[accountID]; ok {
			v.NextSessionKeys = raw
		}
	}
	return nil
}

// fillQueuedSessionKeys reads Session.QueuedKeys, the flat list of
// (account, keys) pairs taking effect at the next session boundary,
// and marks ActiveNextSession for candidates whose queued keys match
// what NextKeys already reported for them.
func (c *Client) fillQueuedSessionKeys(ctx context.Context, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, atBlockHash string) error {
	raw, err := c.getStorage(ctx, mustPlainKey("Session", "QueuedKeys"), atBlockHash)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	d := scale.NewDecoder(raw)
	n, err := d.DecodeCompact()
	if err != nil {
		return fmt.Errorf("chain: decoding Session.QueuedKeys length: %w", err)
	}
	for i := uint64(0); i < n; i++ {
		accRaw, err := scale.DecodePrimitive("AccountId", d)
		if err != nil {
			return fmt.Errorf("chain: decoding Session.QueuedKeys[%d] account: %w", i, err)
		}
		sessionKeys, err := d.ReadBytes(192)
		if err != nil {
			return fmt.Errorf("chain: decoding Session.QueuedKeys[%d] keys: %w", i, err)
		}
		accountID := substrate.AccountID(accRaw.(scale.AccountID32))
		v, ok := byAccount[accountID]
		if !ok {
			continue
		}
		v.ActiveNextSession = bytesEqual(v.NextSessionKeys, sessionKeys)
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fillRewardDestinations reads Staking.Payee for every candidate.
func (c *Client) fillRewardDestinations(ctx context.Context, md *metadata.Metadata, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, order []substrate.AccountID, atBlockHash string) error {
	keys, err := mapKeysFor(md, "Staking", "Payee", order)
	if err != nil {
		return err
	}
	changes, err := c.queryStorageAtChunked(ctx, keys, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Value == nil {
			continue
		}
		accountID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return err
		}
		destRaw, err := scale.DecodePrimitive("RewardDestination", scale.NewDecoder(raw))
		if err != nil {
			return fmt.Errorf("chain: decoding Payee for %x: %w", accountID, err)
		}
		dest := destRaw.(scale.RewardDestination)
		if v, ok := byAccount[accountID]; ok {
			v.RewardDestination = convertRewardDestination(dest)
		}
	}
	return nil
}

func convertRewardDestination(d scale.RewardDestination) substrate.RewardDestination {
	rd := substrate.RewardDestination{Kind: substrate.RewardDestinationKind(d.Kind)}
	if d.Account != nil {
		id := substrate.AccountID(*d.Account)
		rd.Account = &id
	}
	return rd
}

// fillSlashings marks every candidate found under
// Staking.ValidatorSlashInEra(currentEraIndex, _) as slashed.
func (c *Client) fillSlashings(ctx context.Context, md *metadata.Metadata, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, atBlockHash string, currentEraIndex uint32) error {
	prefix, err := doubleMapFirstKeyPrefix(md, "Staking", "ValidatorSlashInEra", encodeU32(currentEraIndex))
	if err != nil {
		return err
	}
	keys, err := c.allPagedKeys(ctx, prefix, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	for _, key := range keys {
		accountID, err := accountIDFromStorageKey(key)
		if err != nil {
			return err
		}
		if v, ok := byAccount[accountID]; ok {
			v.Slashed = true
		}
	}
	return nil
}

// stakingLedgerActive decodes only the leading stash+total+active
// fields of a Staking.Ledger value; unlocking chunks and claimed
// rewards are left unread since nothing downstream of AllValidators
// needs them.
func stakingLedgerActive(raw []byte) (substrate.AccountID, string, error) {
	d := scale.NewDecoder(raw)
	stashRaw, err := scale.DecodePrimitive("AccountId", d)
	if err != nil {
		return substrate.AccountID{}, "", err
	}
	if _, err := d.DecodeCompact(); err != nil { // total
		return substrate.AccountID{}, "", err
	}
	activeRaw, err := d.DecodeCompact()
	if err != nil {
		return substrate.AccountID{}, "", err
	}
	return substrate.AccountID(stashRaw.(scale.AccountID32)), fmt.Sprintf("%d", activeRaw), nil
}

// fillNominations reconstructs every Staking.Nominators entry,
// resolves each nominator's bonded stake via Staking.Bonded ->
// Staking.Ledger, and returns nominations grouped by the validator
// account they target -- the copy-per-target shape ValidatorDetails
// expects.
func (c *Client) fillNominations(ctx context.Context, md *metadata.Metadata, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, validatorOrder []substrate.AccountID, atBlockHash string) (map[substrate.AccountID][]substrate.Nomination, error) {
	prefix, err := storagePrefix("Staking", "Nominators")
	if err != nil {
		return nil, err
	}
	keys, err := c.allPagedKeys(ctx, bytesToHex(prefix), bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}
	changes, err := c.queryStorageAtChunked(ctx, keys, bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}

	type nominatorEntry struct {
		nominatorAccountID substrate.AccountID
		targets            []substrate.AccountID
		submittedInEra     uint32
	}
	var entries []nominatorEntry
	for _, ch := range changes {
		if ch.Value == nil {
			continue
		}
		nominatorAccountID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return nil, err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return nil, err
		}
		d := scale.NewDecoder(raw)
		n, err := d.DecodeCompact()
		if err != nil {
			return nil, fmt.Errorf("chain: decoding Nominators targets length: %w", err)
		}
		targets := make([]substrate.AccountID, n)
		for i := range targets {
			accRaw, err := scale.DecodePrimitive("AccountId", d)
			if err != nil {
				return nil, fmt.Errorf("chain: decoding Nominators target %d: %w", i, err)
			}
			targets[i] = substrate.AccountID(accRaw.(scale.AccountID32))
		}
		submittedIn, err := d.DecodeUint(4)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding Nominators.submitted_in: %w", err)
		}
		entries = append(entries, nominatorEntry{nominatorAccountID, targets, uint32(submittedIn)})
	}

	controllerAccounts := make([]substrate.AccountID, 0, len(entries)+len(validatorOrder))
	for _, e := range entries {
		controllerAccounts = append(controllerAccounts, e.nominatorAccountID)
	}
	controllerAccounts = append(controllerAccounts, validatorOrder...)
	bondedKeys, err := mapKeysFor(md, "Staking", "Bonded", controllerAccounts)
	if err != nil {
		return nil, err
	}
	bondedChanges, err := c.queryStorageAtChunked(ctx, bondedKeys, bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}
	controllerByStash := make(map[substrate.AccountID]substrate.AccountID, len(bondedChanges))
	for _, ch := range bondedChanges {
		if ch.Value == nil {
			continue
		}
		stash, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return nil, err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return nil, err
		}
		controllerRaw, err := scale.DecodePrimitive("AccountId", scale.NewDecoder(raw))
		if err != nil {
			return nil, fmt.Errorf("chain: decoding Bonded controller for %x: %w", stash, err)
		}
		controllerByStash[stash] = substrate.AccountID(controllerRaw.(scale.AccountID32))
	}

	controllerIDs := make([]substrate.AccountID, 0, len(controllerByStash))
	for _, controller := range controllerByStash {
		controllerIDs = append(controllerIDs, controller)
	}
	ledgerKeys, err := mapKeysFor(md, "Staking", "Ledger", controllerIDs)
	if err != nil {
		return nil, err
	}
	ledgerChanges, err := c.queryStorageAtChunked(ctx, ledgerKeys, bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}
	activeStakeByStash := make(map[substrate.AccountID]string, len(ledgerChanges))
	for _, ch := range ledgerChanges {
		if ch.Value == nil {
			continue
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return nil, err
		}
		stash, active, err := stakingLedgerActive(raw)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding Ledger: %w", err)
		}
		activeStakeByStash[stash] = active
	}

	for _, id := range validatorOrder {
		if stake, ok := activeStakeByStash[id]; ok {
			if v, ok := byAccount[id]; ok {
				v.SelfStake = stake
			}
		}
	}

	byValidator := make(map[substrate.AccountID][]substrate.Nomination)
	for _, e := range entries {
		controller, hasController := controllerByStash[e.nominatorAccountID]
		stake, hasStake := activeStakeByStash[e.nominatorAccountID]
		if !hasController || !hasStake {
			// Staking.Bonded/Staking.Ledger should cover every
			// nominator; a gap means a half-torn-down staking entry.
			// Keep the nomination with zero controller/stake rather
			// than dropping or failing the whole snapshot.
			c.logger.Printf("nominator %s has no resolvable controller/ledger, keeping nomination with zero controller and stake", e.nominatorAccountID)
		}
		nomination := substrate.Nomination{
			NominatorAccount:  e.nominatorAccountID,
			ControllerAccount: controller,
			Stake:             stake,
			Targets:           e.targets,
			SubmissionEra:     int64(e.submittedInEra),
		}
		for _, target := range e.targets {
			if _, ok := byAccount[target]; ok {
				byValidator[target] = append(byValidator[target], nomination)
			}
		}
	}
	return byValidator, nil
}

// fillIdentities resolves Identity.IdentityOf for every candidate, and
// for any candidate with an Identity.SuperOf parent, resolves the
// parent's own identity one hop up.
func (c *Client) fillIdentities(ctx context.Context, md *metadata.Metadata, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, order []substrate.AccountID, atBlockHash string) error {
	identityKeys, err := mapKeysFor(md, "Identity", "IdentityOf", order)
	if err != nil {
		return err
	}
	identityChanges, err := c.queryStorageAtChunked(ctx, identityKeys, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	for _, ch := range identityChanges {
		if ch.Value == nil {
			continue
		}
		accountID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return err
		}
		reg, err := decodeIdentityRegistration(raw)
		if err != nil {
			return fmt.Errorf("chain: decoding IdentityOf for %x: %w", accountID, err)
		}
		if v, ok := byAccount[accountID]; ok {
			v.Account.Identity = reg
		}
	}

	superKeys, err := mapKeysFor(md, "Identity", "SuperOf", order)
	if err != nil {
		return err
	}
	superChanges, err := c.queryStorageAtChunked(ctx, superKeys, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	parentByChild := make(map[substrate.AccountID]substrate.AccountID)
	for _, ch := range superChanges {
		if ch.Value == nil {
			continue
		}
		childID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return err
		}
		d := scale.NewDecoder(raw)
		parentRaw, err := scale.DecodePrimitive("AccountId", d)
		if err != nil {
			return fmt.Errorf("chain: decoding SuperOf for %x: %w", childID, err)
		}
		parentByChild[childID] = substrate.AccountID(parentRaw.(scale.AccountID32))
	}
	if len(parentByChild) == 0 {
		return nil
	}
	parentIDs := make([]substrate.AccountID, 0, len(parentByChild))
	for _, parent := range parentByChild {
		parentIDs = append(parentIDs, parent)
	}
	parentIdentityKeys, err := mapKeysFor(md, "Identity", "IdentityOf", parentIDs)
	if err != nil {
		return err
	}
	parentIdentityChanges, err := c.queryStorageAtChunked(ctx, parentIdentityKeys, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	parentIdentityByID := make(map[substrate.AccountID]*substrate.IdentityRegistration, len(parentIdentityChanges))
	for _, ch := range parentIdentityChanges {
		if ch.Value == nil {
			continue
		}
		parentID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return err
		}
		reg, err := decodeIdentityRegistration(raw)
		if err != nil {
			return fmt.Errorf("chain: decoding parent IdentityOf for %x: %w", parentID, err)
		}
		parentIdentityByID[parentID] = reg
	}
	for childID, parentID := range parentByChild {
		v, ok := byAccount[childID]
		if !ok {
			continue
		}
		v.Account.Parent = &substrate.ParentAccount{ID: parentID, Identity: parentIdentityByID[parentID]}
	}
	return nil
}

// decodeIdentityRegistration decodes Identity.IdentityOf's Registration
// struct down to the display-name fields SubVT surfaces. The
// judgements are read only to decide whether the identity is confirmed
// (a Reasonable or KnownGood judgement); the deposit is skipped, and
// only the `info` sub-struct's known fields are read.
func decodeIdentityRegistration(raw []byte) (*substrate.IdentityRegistration, error) {
	d := scale.NewDecoder(raw)
	n, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("decoding judgements length: %w", err)
	}
	confirmed := false
	for i := uint64(0); i < n; i++ {
		if _, err := d.DecodeCompact(); err != nil { // RegistrarIndex
			return nil, err
		}
		tagRaw, err := scale.DecodePrimitive("Judgement", d)
		if err != nil {
			return nil, err
		}
		if tag, ok := tagRaw.(byte); ok && (tag == 2 || tag == 3) { // Reasonable, KnownGood
			confirmed = true
		}
	}
	if _, err := d.DecodeUint128(); err != nil { // deposit
		return nil, err
	}
	// IdentityInfo.additional: Vec<(Data, Data)>, read and discarded --
	// SubVT only ever surfaces the named fields below.
	additionalCount, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("decoding identity additional-fields length: %w", err)
	}
	for i := uint64(0); i < additionalCount; i++ {
		if _, err := scale.DecodePrimitive("Data", d); err != nil {
			return nil, err
		}
		if _, err := scale.DecodePrimitive("Data", d); err != nil {
			return nil, err
		}
	}
	reg := &substrate.IdentityRegistration{Confirmed: confirmed}
	// display, legal, web, riot/matrix (unused), email
	fields := []**string{&reg.Display, &reg.Legal, &reg.Web, nil, &reg.Email}
	for _, dst := range fields {
		v, err := scale.DecodePrimitive("Data", d)
		if err != nil {
			return nil, err
		}
		if dst == nil {
			continue
		}
		if s, ok := v.(string); ok {
			*dst = &s
		}
	}
	present, err := d.DecodeOptionTag() // pgp_fingerprint: Option<[u8; 20]>
	if err != nil {
		return nil, err
	}
	if present {
		if _, err := d.ReadBytes(20); err != nil {
			return nil, err
		}
	}
	if _, err := scale.DecodePrimitive("Data", d); err != nil { // image, unused
		return nil, err
	}
	twitterVal, err := scale.DecodePrimitive("Data", d)
	if err != nil {
		return nil, err
	}
	if s, ok := twitterVal.(string); ok {
		reg.Twitter = &s
	}
	return reg, nil
}

// fillPreferences reads Staking.Validators preferences for every
// candidate in a single batched query.
func (c *Client) fillPreferences(ctx context.Context, md *metadata.Metadata, byAccount map[substrate.AccountID]*substrate.ValidatorDetails, keys []string, atBlockHash string) error {
	changes, err := c.queryStorageAtChunked(ctx, keys, bulkPageSize, atBlockHash)
	if err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Value == nil {
			continue
		}
		accountID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return err
		}
		prefsRaw, err := scale.DecodePrimitive("ValidatorPrefs", scale.NewDecoder(raw))
		if err != nil {
			return fmt.Errorf("chain: decoding ValidatorPrefs for %x: %w", accountID, err)
		}
		prefs := prefsRaw.(scale.ValidatorPreferences)
		if v, ok := byAccount[accountID]; ok {
			v.Preferences = substrate.ValidatorPreferences{
				CommissionPerBillion: prefs.CommissionPerBillion,
				BlocksNominations:    prefs.BlocksNominations,
			}
		}
	}
	return nil
}
