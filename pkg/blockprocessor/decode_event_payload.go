package blockprocessor

import (
	"fmt"

	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// buildEventPayload maps a decoded event's (module, name, arguments)
// onto one of pkg/substrate's typed event payloads.
// A (nil, "", nil) result means the (module, name) combination has no
// typed payload in this table (e.g. System.Remarked); the caller
// records every such event as Other.
func buildEventPayload(moduleName, eventName string, args []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch moduleName {
	case "Democracy":
		return buildDemocracyEvent(eventName, args)
	case "Referenda", "FellowshipReferenda":
		return buildReferendaEvent(eventName, args)
	case "Staking":
		return buildStakingEvent(eventName, args)
	case "System":
		return buildSystemEvent(eventName, args)
	case "ImOnline":
		return buildImOnlineEvent(eventName, args)
	case "Offences":
		return buildOffencesEvent(eventName, args)
	case "Paras", "Slots", "Auctions":
		return buildParaEvent(eventName, args)
	default:
		return nil, "", nil
	}
}

func accountID(v interface{}) substrate.AccountID {
	return substrate.AccountID(v.(scale.AccountID32))
}

func hash(v interface{}) substrate.Hash {
	return substrate.Hash(v.(scale.Hash32))
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asU32(v interface{}) uint32 {
	switch x := v.(type) {
	case uint32:
		return x
	case uint64:
		return uint32(x)
	default:
		return 0
	}
}

func convertAccountVote(v scale.AccountVote) substrate.AccountVote {
	if v.IsSplit {
		return substrate.AccountVote{
			Kind:      substrate.AccountVoteSplit,
			AyeAmount: v.AyeAmount,
			NayAmount: v.NayAmount,
		}
	}
	return substrate.AccountVote{
		Kind:       substrate.AccountVoteStandard,
		Aye:        v.Aye,
		Conviction: v.Conviction,
		Balance:    v.Balance,
	}
}

func buildDemocracyEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "Voted":
		return &substrate.DemocracyVoted{
			AccountID:       accountID(a[0].Value),
			ReferendumIndex: asU32(a[1].Value),
			Vote:            convertAccountVote(a[2].Value.(scale.AccountVote)),
		}, substrate.EventModuleDemocracy, nil
	case "Proposed":
		return &substrate.DemocracyProposed{
			ProposalIndex: asU32(a[0].Value),
			Deposit:       asString(a[1].Value),
		}, substrate.EventModuleDemocracy, nil
	case "Seconded":
		return &substrate.DemocracySeconded{
			AccountID:     accountID(a[0].Value),
			ProposalIndex: asU32(a[1].Value),
		}, substrate.EventModuleDemocracy, nil
	case "Started":
		return &substrate.DemocracyStarted{
			ReferendumIndex: asU32(a[0].Value),
			VoteThreshold:   asString(a[1].Value),
		}, substrate.EventModuleDemocracy, nil
	case "Passed":
		return &substrate.DemocracyPassed{ReferendumIndex: asU32(a[0].Value)}, substrate.EventModuleDemocracy, nil
	case "NotPassed":
		return &substrate.DemocracyNotPassed{ReferendumIndex: asU32(a[0].Value)}, substrate.EventModuleDemocracy, nil
	case "Cancelled":
		return &substrate.DemocracyCancelled{ReferendumIndex: asU32(a[0].Value)}, substrate.EventModuleDemocracy, nil
	case "Delegated":
		return &substrate.DemocracyDelegated{
			OriginalAccountID: accountID(a[0].Value),
			DelegateAccountID: accountID(a[1].Value),
		}, substrate.EventModuleDemocracy, nil
	case "Undelegated":
		return &substrate.DemocracyUndelegated{AccountID: accountID(a[0].Value)}, substrate.EventModuleDemocracy, nil
	default:
		return nil, "", nil
	}
}

func buildReferendaEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "Submitted":
		ev := &substrate.ReferendaSubmitted{Index: asU32(a[0].Value)}
		if len(a) > 1 {
			ev.TrackID = uint16(asU32(a[1].Value))
		}
		if len(a) > 2 {
			if h, ok := a[2].Value.(scale.Hash32); ok {
				ev.ProposalHash = hash(h)
			}
		}
		return ev, substrate.EventModuleReferenda, nil
	case "Confirmed", "Approved":
		return &substrate.ReferendaApproved{Index: asU32(a[0].Value)}, substrate.EventModuleReferenda, nil
	case "Rejected":
		return &substrate.ReferendaRejected{Index: asU32(a[0].Value)}, substrate.EventModuleReferenda, nil
	default:
		return nil, "", nil
	}
}

func buildStakingEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "Slashed", "Slash":
		return &substrate.StakingSlashed{AccountID: accountID(a[0].Value), Amount: asString(a[1].Value)}, substrate.EventModuleStaking, nil
	case "Chilled":
		return &substrate.StakingChilled{AccountID: accountID(a[0].Value)}, substrate.EventModuleStaking, nil
	case "Bonded":
		return &substrate.StakingBonded{AccountID: accountID(a[0].Value), Amount: asString(a[1].Value)}, substrate.EventModuleStaking, nil
	case "Unbonded":
		return &substrate.StakingUnbonded{AccountID: accountID(a[0].Value), Amount: asString(a[1].Value)}, substrate.EventModuleStaking, nil
	case "PayoutStarted":
		return &substrate.StakingPayoutStarted{
			EraIndex:           int64(asU32(a[0].Value)),
			ValidatorAccountID: accountID(a[1].Value),
		}, substrate.EventModuleStaking, nil
	case "Rewarded", "Reward":
		return &substrate.StakingRewarded{AccountID: accountID(a[0].Value), Amount: asString(a[1].Value)}, substrate.EventModuleStaking, nil
	case "EraPaid", "EraPayout":
		return &substrate.StakingEraPaid{
			EraIndex:    int64(asU32(a[0].Value)),
			TotalPayout: asString(a[1].Value),
			Remainder:   asString(a[2].Value),
		}, substrate.EventModuleStaking, nil
	default:
		return nil, "", nil
	}
}

func buildSystemEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "ExtrinsicSuccess":
		return &substrate.SystemExtrinsicSuccess{}, substrate.EventModuleSystem, nil
	case "ExtrinsicFailed":
		return &substrate.SystemExtrinsicFailed{DispatchError: asString(a[0].Value)}, substrate.EventModuleSystem, nil
	case "NewAccount":
		return &substrate.SystemNewAccount{AccountID: accountID(a[0].Value)}, substrate.EventModuleSystem, nil
	case "KilledAccount":
		return &substrate.SystemKilledAccount{AccountID: accountID(a[0].Value)}, substrate.EventModuleSystem, nil
	default:
		return nil, "", nil
	}
}

func buildImOnlineEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "HeartbeatReceived":
		hb := a[0].Value.(scale.Heartbeat)
		return &substrate.ImOnlineHeartbeatReceived{
			ValidatorAuthorityIndex: hb.AuthorityIndex,
		}, substrate.EventModuleImOnline, nil
	case "AllGood":
		return &substrate.ImOnlineAllGood{}, substrate.EventModuleImOnline, nil
	case "SomeOffline":
		items := a[0].Value.([]scale.Argument)
		ids := make([]substrate.AccountID, 0, len(items))
		for _, item := range items {
			// Each item is a (AccountId, Exposure) tuple for
			// SomeOffline; only the account id is needed here.
			if tup, ok := item.Value.([]scale.Argument); ok && len(tup) > 0 {
				ids = append(ids, accountID(tup[0].Value))
			}
		}
		return &substrate.ImOnlineSomeOffline{OfflineAccountIDs: ids}, substrate.EventModuleImOnline, nil
	default:
		return nil, "", nil
	}
}

func buildOffencesEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "Offence":
		ev := &substrate.OffencesOffence{}
		if len(a) > 0 {
			ev.Kind = asString(a[0].Value)
		}
		if len(a) > 1 {
			if b, ok := a[1].Value.([]byte); ok {
				ev.TimeSlot = b
			}
		}
		return ev, substrate.EventModuleOffences, nil
	default:
		return nil, "", nil
	}
}

func buildParaEvent(name string, a []scale.Argument) (interface{}, substrate.EventModule, error) {
	switch name {
	case "Leased":
		ev := &substrate.ParaLeaseGranted{}
		if len(a) > 0 {
			ev.ParaID = asU32(a[0].Value)
		}
		if len(a) > 1 {
			ev.LeasingAccountID = accountID(a[1].Value)
		}
		if len(a) > 2 {
			ev.PeriodBegin = asU32(a[2].Value)
		}
		if len(a) > 3 {
			ev.PeriodCount = asU32(a[3].Value)
		}
		return ev, substrate.EventModulePara, nil
	case "AuctionClosed":
		ev := &substrate.ParaAuctionClosed{}
		if len(a) > 0 {
			ev.AuctionIndex = asU32(a[0].Value)
		}
		return ev, substrate.EventModulePara, nil
	default:
		return nil, "", nil
	}
}
