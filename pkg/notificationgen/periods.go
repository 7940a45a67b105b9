package notificationgen

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/subvt-network/subvt/pkg/app"
	"github.com/subvt-network/subvt/pkg/database"
)

// PeriodProcessor is the cron-driven sweep for Hour/Day-period rules:
// inspectors enqueue one not-ready row per event as they happen, and
// the processor coalesces everything accumulated for a rule since the
// last tick and flips it ready for delivery in one go. Hourly rules
// are swept at the top of each hour, daily rules at UTC noon.
type PeriodProcessor struct {
	gateway *database.Gateway
	logger  *log.Logger
	cron    *cron.Cron
}

// NewPeriodProcessor builds the processor without starting its
// schedule.
func NewPeriodProcessor(gateway *database.Gateway, logger *log.Logger) *PeriodProcessor {
	if logger == nil {
		logger = log.New(log.Writer(), "[NotificationGenerator] ", log.LstdFlags)
	}
	return &PeriodProcessor{
		gateway: gateway,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers the two sweep schedules and starts the cron runner.
// The runner stops when ctx is cancelled.
func (p *PeriodProcessor) Start(ctx context.Context) error {
	if _, err := p.cron.AddFunc("0 * * * *", func() { p.runSweep(ctx, app.PeriodHour) }); err != nil {
		return fmt.Errorf("notificationgen: schedule hourly sweep: %w", err)
	}
	if _, err := p.cron.AddFunc("0 12 * * *", func() { p.runSweep(ctx, app.PeriodDay) }); err != nil {
		return fmt.Errorf("notificationgen: schedule daily sweep: %w", err)
	}
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()
	return nil
}

func (p *PeriodProcessor) runSweep(ctx context.Context, period app.PeriodType) {
	if err := p.Sweep(ctx, period); err != nil {
		p.logger.Printf("period sweep failed for period %d: %v", period, err)
	}
}

// Sweep loads everything accumulated for rules of the given period
// type, coalesces per rule, and marks the rows ready.
func (p *PeriodProcessor) Sweep(ctx context.Context, period app.PeriodType) error {
	pending, err := p.gateway.App.GetPendingAccumulatedNotifications(ctx, period)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	groups := coalesceByRule(pending)
	var ids []uuid.UUID
	for _, group := range groups {
		for _, n := range group {
			ids = append(ids, n.ID)
		}
	}
	if err := p.gateway.App.MarkNotificationsReady(ctx, ids); err != nil {
		return err
	}
	p.logger.Printf("marked %d accumulated notification(s) across %d rule(s) ready", len(ids), len(groups))
	return nil
}

// coalesceByRule groups accumulated notifications by the rule that
// produced them, preserving their stored order within each group. The
// delivery side renders one digest message per group.
func coalesceByRule(pending []*app.Notification) map[uuid.UUID][]*app.Notification {
	groups := make(map[uuid.UUID][]*app.Notification)
	for _, n := range pending {
		groups[n.RuleID] = append(groups[n.RuleID], n)
	}
	return groups
}
