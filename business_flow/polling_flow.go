package businessflow

import (
	"context"

	"github.com/numbay/numbay/app/services"
	"github.com/numbay/numbay/repository"
)

// MessagesResult is the outcome of one message poll: whatever arrived on
// the number, plus billing details when this poll was the first to see SMS.
type MessagesResult struct {
	HoldID   uint                       `json:"hold_id"`
	Number   string                     `json:"number"`
	Messages []services.UpstreamMessage `json:"messages"`
	Billing  *BillingResult             `json:"billing,omitempty"`
}

// PollingFlow drives the hold lifecycle from live panel data: a poll stamps
// the expiry clock, and a delivered message triggers billing.
type PollingFlow interface {
	CheckMessages(ctx context.Context, holdID uint) (*MessagesResult, error)
}

// PollingFlowImpl implements the polling business flow
type PollingFlowImpl struct {
	holdRepo  repository.HoldRepository
	lifecycle LifecycleFlow
	upstream  services.UpstreamService
}

// NewPollingFlow creates a new polling flow instance
func NewPollingFlow(
	holdRepo repository.HoldRepository,
	lifecycle LifecycleFlow,
	upstream services.UpstreamService,
) PollingFlow {
	return &PollingFlowImpl{
		holdRepo:  holdRepo,
		lifecycle: lifecycle,
		upstream:  upstream,
	}
}

// CheckMessages polls the panel for SMS on the held number. The first poll
// stamps the hold's expiry clock before the panel is contacted, so a dead
// upstream cannot keep temporary holds alive forever. Delivered messages
// trigger idempotent billing.
func (p *PollingFlowImpl) CheckMessages(ctx context.Context, holdID uint) (*MessagesResult, error) {
	hold, err := p.holdRepo.ByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, ErrHoldNotFound
	}

	if err := p.lifecycle.FirstPoll(ctx, holdID); err != nil {
		return nil, err
	}

	messages, err := p.upstream.FetchMessages(ctx, hold.Number, hold.HoldStartTime)
	if err != nil {
		// Transient by contract: the poll was recorded, nothing else moved.
		return nil, err
	}

	result := &MessagesResult{
		HoldID:   hold.ID,
		Number:   hold.Number,
		Messages: messages,
	}
	if len(messages) == 0 {
		return result, nil
	}

	billing, err := p.lifecycle.ConfirmSMSReceived(ctx, holdID)
	if err != nil {
		return nil, err
	}
	result.Billing = billing
	return result, nil
}
