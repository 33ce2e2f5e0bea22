// Package notification sends QC rejection alerts by email. It listens on
// the in-memory event bus and never blocks or fails the production write
// path: delivery errors are logged and dropped.
package notification

import (
	"context"
	"fmt"

	"mfg_portal_backend/internal/events"
	"mfg_portal_backend/platform/config"
	"mfg_portal_backend/platform/logger"
)

// Mailer delivers QC alert emails.
type Mailer interface {
	SendQCAlert(ctx context.Context, recipients []string, alert QCAlert) error
}

// Module wires QC rejection events to email alerts.
type Module struct {
	cfg    config.EmailConfig
	mailer Mailer
	log    *logger.Logger
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(cfg config.EmailConfig, bus events.Bus, log *logger.Logger) *Module {
	m := &Module{
		cfg:    cfg,
		mailer: NewSMTPMailer(cfg),
		log:    log,
	}

	bus.Subscribe(events.QCRejectionRecorded{}.EventName(), events.HandlerFunc(m.onQCRejection))

	return m
}

func (m *Module) onQCRejection(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QCRejectionRecorded)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if !m.cfg.GetEmailEnabled() {
		return nil
	}
	recipients := m.cfg.GetQCAlertRecipients()
	if len(recipients) == 0 {
		m.log.Debug("qc alert skipped, no recipients configured",
			"stageId", e.StageID,
		)
		return nil
	}

	alert := QCAlert{
		JobOrderID:     e.JobOrderID.String(),
		SemifinishedID: e.SemifinishedID,
		ProcessName:    e.ProcessName,
		Rejected:       e.Rejected,
		Recycled:       e.Recycled,
		TotalRejected:  e.TotalRejected,
	}

	if err := m.mailer.SendQCAlert(ctx, recipients, alert); err != nil {
		// Alerting is best effort. The QC event is already committed.
		m.log.Warn("qc alert delivery failed",
			"stageId", e.StageID,
			"process", e.ProcessName,
			"error", err,
		)
	}

	return nil
}
