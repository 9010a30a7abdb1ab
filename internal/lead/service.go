package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/store"
)

// Service performs idempotent lead capture against the lead repository.
type Service struct {
	leads            store.LeadRepository
	purchaseKeywords []string
}

// NewService creates a lead capture service. keywords may be nil to use
// the default purchase-intent set.
func NewService(leads store.LeadRepository, keywords []string) *Service {
	return &Service{leads: leads, purchaseKeywords: keywords}
}

// CaptureInput describes one turn's lead-capture context.
type CaptureInput struct {
	BotID            string
	TenantID         string
	ConversationID   string
	VisitorID        string
	MessageText      string
	ConversationText string
	HistoryLength    int
	Sentiment        int
	Now              time.Time
}

// Capture extracts contacts from the message and upserts a lead. The
// lookup key is the exact contact field: an email only ever matches a
// lead captured by that email. Re-contact updates rather than duplicates,
// and an existing higher score is never lowered. Returns the lead (nil
// when no contact was found) and whether a new row was created.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (*model.Lead, bool, error) {
	contacts := ExtractContacts(in.MessageText)
	if !contacts.HasAny() {
		return nil, false, nil
	}

	score := Score(ScoreInput{
		Contacts:         contacts,
		HistoryLength:    in.HistoryLength,
		Sentiment:        in.Sentiment,
		ConversationText: in.ConversationText,
		PurchaseKeywords: s.purchaseKeywords,
	})

	field := store.ContactEmail
	value := contacts.Email
	if value == "" {
		field = store.ContactPhone
		value = contacts.Phone
	}

	existing, err := s.leads.FindByContact(ctx, in.BotID, field, value)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("lead lookup failed: %w", err)
	}

	if existing != nil {
		if err := s.leads.Touch(ctx, existing.ID, in.Now, score); err != nil {
			return nil, false, fmt.Errorf("lead update failed: %w", err)
		}
		existing.LastContactAt = in.Now
		existing.ConversationCount++
		if score > existing.Score {
			existing.Score = score
		}
		return existing, false, nil
	}

	created := &model.Lead{
		ID:                uuid.Must(uuid.NewV7()).String(),
		BotID:             in.BotID,
		TenantID:          in.TenantID,
		ConversationID:    in.ConversationID,
		VisitorID:         in.VisitorID,
		Email:             contacts.Email,
		Phone:             contacts.Phone,
		Score:             score,
		Status:            model.LeadStatusNew,
		LastContactAt:     in.Now,
		ConversationCount: 1,
		CreatedAt:         in.Now,
		UpdatedAt:         in.Now,
	}

	if err := s.leads.Create(ctx, created); err != nil {
		return nil, false, fmt.Errorf("lead insert failed: %w", err)
	}
	return created, true, nil
}
