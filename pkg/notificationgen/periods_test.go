package notificationgen

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/subvt-network/subvt/pkg/app"
	"github.com/subvt-network/subvt/pkg/substrate"
)

func TestCoalesceByRuleGroupsAndPreservesOrder(t *testing.T) {
	ruleA := uuid.New()
	ruleB := uuid.New()
	n1 := &app.Notification{ID: uuid.New(), RuleID: ruleA}
	n2 := &app.Notification{ID: uuid.New(), RuleID: ruleB}
	n3 := &app.Notification{ID: uuid.New(), RuleID: ruleA}

	groups := coalesceByRule([]*app.Notification{n1, n2, n3})

	require.Len(t, groups, 2)
	require.Equal(t, []*app.Notification{n1, n3}, groups[ruleA])
	require.Equal(t, []*app.Notification{n2}, groups[ruleB])
}

// ruleFixture is the YAML shape of the rule fixtures under testdata/.
type ruleFixture struct {
	Name               string `yaml:"name"`
	NotificationType   string `yaml:"notification_type"`
	ValidatorAccountID string `yaml:"validator_account_id"`
	Period             string `yaml:"period"`
}

func loadRuleFixtures(t *testing.T) []*app.NotificationRule {
	t.Helper()
	raw, err := os.ReadFile("testdata/rules.yaml")
	require.NoError(t, err)
	var fixtures []ruleFixture
	require.NoError(t, yaml.Unmarshal(raw, &fixtures))

	periods := map[string]app.PeriodType{
		"off":       app.PeriodOff,
		"immediate": app.PeriodImmediate,
		"hour":      app.PeriodHour,
		"day":       app.PeriodDay,
	}
	rules := make([]*app.NotificationRule, 0, len(fixtures))
	for _, f := range fixtures {
		period, ok := periods[f.Period]
		require.True(t, ok, f.Period)
		r := &app.NotificationRule{
			ID:               uuid.New(),
			NotificationType: app.NotificationTypeCode(f.NotificationType),
			Period:           period,
		}
		if f.ValidatorAccountID != "" {
			id, err := substrate.ParseAccountID(f.ValidatorAccountID)
			require.NoError(t, err)
			r.ValidatorAccountID = &id
		}
		rules = append(rules, r)
	}
	return rules
}

// Period gating: Off never matches, Immediate rows are born ready,
// Hour/Day rows accumulate until a sweep flips them.
func TestPeriodGating(t *testing.T) {
	rules := loadRuleFixtures(t)
	require.Len(t, rules, 4)

	var target substrate.AccountID
	for i := range target {
		target[i] = 0x01
	}

	offRule, immediateRule, hourRule, dayRule := rules[0], rules[1], rules[2], rules[3]

	require.False(t, offRule.Matches(target))
	require.True(t, immediateRule.Matches(target))
	require.True(t, hourRule.Matches(target))
	// The day rule has no validator filter: it matches any account.
	require.True(t, dayRule.Matches(target))

	var other substrate.AccountID
	other[0] = 0xff
	require.False(t, hourRule.Matches(other))
	require.True(t, dayRule.Matches(other))

	// Inspectors mark a row ready only for Immediate rules; Hour/Day
	// rows wait for the period sweep.
	require.True(t, immediateRule.Period == app.PeriodImmediate)
	for _, accumulated := range []*app.NotificationRule{hourRule, dayRule} {
		require.NotEqual(t, app.PeriodImmediate, accumulated.Period)
		require.NotEqual(t, app.PeriodOff, accumulated.Period)
	}
}
