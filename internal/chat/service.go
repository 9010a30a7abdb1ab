package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/lead"
	"github.com/leadline-ai/bot-platform/internal/llm"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/notify"
	"github.com/leadline-ai/bot-platform/internal/retrieval"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/internal/usage"
	"github.com/leadline-ai/bot-platform/pkg/logger"
	"github.com/leadline-ai/bot-platform/pkg/metrics"
)

// knowledgeLimit is the top-K retrieved per turn.
const knowledgeLimit = 5

// Retriever is the slice of the knowledge retriever the turn needs.
type Retriever interface {
	Retrieve(ctx context.Context, botID, query string, limit int) ([]retrieval.Result, retrieval.Method, error)
}

// Gate is the slice of the usage gate the turn needs.
type Gate interface {
	CheckAndAdmit(ctx context.Context, tenantID string, class model.UsageEventType) (usage.Decision, error)
}

// Config tunes the orchestrator.
type Config struct {
	// LLMTimeout bounds the model call (stage 8). The retriever's
	// embedding timeout is configured separately and kept much shorter.
	LLMTimeout time.Duration
	MaxTokens  int
}

// TurnService orchestrates one visitor turn. Stages run strictly
// sequentially: each depends on the previous stage's output, and turns
// for other conversations interleave only at the external-call
// suspension points.
type TurnService struct {
	bots          store.BotRepository
	tenants       store.TenantRepository
	conversations store.ConversationRepository
	messages      store.MessageRepository
	leads         store.LeadRepository
	usageEvents   store.UsageEventRepository

	gate       Gate
	retriever  Retriever
	leadSvc    *lead.Service
	llmClient  llm.Client
	dispatcher notify.Dispatcher

	cfg    Config
	logger *logger.Logger
	now    func() time.Time
}

// NewTurnService wires the orchestrator.
func NewTurnService(
	bots store.BotRepository,
	tenants store.TenantRepository,
	conversations store.ConversationRepository,
	messages store.MessageRepository,
	leads store.LeadRepository,
	usageEvents store.UsageEventRepository,
	gate Gate,
	retriever Retriever,
	leadSvc *lead.Service,
	llmClient llm.Client,
	dispatcher notify.Dispatcher,
	cfg Config,
	log *logger.Logger,
) *TurnService {
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &TurnService{
		bots:          bots,
		tenants:       tenants,
		conversations: conversations,
		messages:      messages,
		leads:         leads,
		usageEvents:   usageEvents,
		gate:          gate,
		retriever:     retriever,
		leadSvc:       leadSvc,
		llmClient:     llmClient,
		dispatcher:    dispatcher,
		cfg:           cfg,
		logger:        log,
		now:           time.Now,
	}
}

// Converse handles one visitor message end to end and returns the
// assistant's reply. Only the bot lookup, the usage gate, a fatal
// conversation-create failure, and the model call can terminate the
// turn; every other stage degrades and the visitor still gets a reply.
func (s *TurnService) Converse(ctx context.Context, botID string, req *model.ChatRequest) (*model.ChatResponse, error) {
	start := s.now()
	status := "ok"
	defer func() {
		metrics.TurnsTotal.WithLabelValues(status).Inc()
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(req.Message) == "" {
		status = "invalid"
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	// Stage 1: load bot config.
	bot, err := s.bots.GetByID(ctx, botID)
	if errors.Is(err, store.ErrNotFound) {
		status = "bot_not_found"
		return nil, ErrBotNotFound
	}
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("%w: bot lookup failed: %v", ErrService, err)
	}
	if !bot.AcceptsTurns() {
		status = "bot_inactive"
		return nil, ErrBotInactive
	}

	log := s.logger.With(
		zap.String("bot_id", bot.ID),
		zap.String("tenant_id", bot.TenantID),
	)

	// Stage 2: usage gate. Advisory check; the billable event is
	// recorded at stage 11 so failed turns are never charged.
	decision, err := s.gate.CheckAndAdmit(ctx, bot.TenantID, model.UsageEventMessage)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("%w: usage gate failed: %v", ErrService, err)
	}
	if !decision.Allowed {
		status = "quota_exceeded"
		return nil, fmt.Errorf("%w: %d of %d monthly messages used", ErrQuotaExceeded, decision.Current, decision.Limit)
	}

	// Stage 3: load-or-create conversation. The only persistence
	// failure that terminates the turn.
	conv, convCreated, err := s.loadOrCreateConversation(ctx, bot, req)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("%w: conversation load failed: %v", ErrService, err)
	}
	if convCreated {
		// Conversations are billed eagerly at creation, even if the
		// rest of the turn fails.
		s.recordUsage(ctx, log, bot, model.UsageEventConversation)
		metrics.ConversationsTotal.WithLabelValues(bot.TenantID).Inc()
	}

	// Stage 4: persist the user message. Message loss is tolerated
	// over dropping the turn.
	userMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        req.Message,
		CreatedAt:      s.now(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		log.Error("failed to persist user message", zap.Error(err))
	} else {
		metrics.MessagesTotal.WithLabelValues(bot.TenantID, string(model.RoleUser)).Inc()
	}

	history, err := s.messages.ListRecent(ctx, conv.ID, historyLimit)
	if err != nil {
		log.Warn("failed to load history, replying without context", zap.Error(err))
		history = nil
	}

	existingLead := s.findVisitorLead(ctx, log, bot.ID, conv.VisitorID)

	// Stage 5: lead extraction and upsert. Never affects the reply.
	capturedLead := s.captureLead(ctx, log, bot, conv, req.Message, history)

	// Stage 6: knowledge retrieval. Degrades to an empty context.
	knowledge, method, err := s.retriever.Retrieve(ctx, bot.ID, req.Message, knowledgeLimit)
	if err != nil {
		log.Warn("knowledge retrieval failed, proceeding without context", zap.Error(err))
		knowledge = nil
	} else if len(knowledge) > 0 {
		log.Debug("knowledge retrieved",
			zap.Int("chunks", len(knowledge)),
			zap.String("method", string(method)),
		)
	}

	// Stage 7: bounded prompt.
	contactCaptured := capturedLead != nil || existingLead != nil
	system := buildSystemPrompt(bot, knowledge, contactCaptured)
	chatMessages := buildChatMessages(history, req.Message)

	// Stage 8: the model call, with a hard timeout so a hung provider
	// becomes a retryable error instead of a hung request.
	llmCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()

	resp, err := s.llmClient.Complete(llmCtx, &llm.CompletionRequest{
		Model:       bot.Model,
		System:      system,
		Messages:    chatMessages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: bot.Temperature,
	})
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			status = "rate_limited"
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		status = "llm_error"
		return nil, fmt.Errorf("%w: completion failed: %v", ErrService, err)
	}
	metrics.RecordLLMRequest(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	// Stage 9: persist the assistant message and conversation
	// aggregates. The reply is already generated; failures here are
	// logged and the visitor still gets it.
	assistantMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        resp.Content,
		Model:          &resp.Model,
		TokensIn:       &resp.TokensIn,
		TokensOut:      &resp.TokensOut,
		LatencyMs:      &resp.LatencyMs,
		CreatedAt:      s.now(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		log.Error("failed to persist assistant message", zap.Error(err))
	} else {
		metrics.MessagesTotal.WithLabelValues(bot.TenantID, string(model.RoleAssistant)).Inc()
	}

	turnSentiment := lead.Sentiment(combineTurnText(req.Message, resp.Content))
	rolling := lead.RollingSentiment(conv.Sentiment, turnSentiment)
	if err := s.conversations.RecordTurn(ctx, conv.ID, s.now(), rolling); err != nil {
		log.Error("failed to update conversation aggregates", zap.Error(err))
	}

	// Stage 10: hot-lead notification, fire-and-forget.
	s.maybeNotifyHotLead(ctx, log, bot, conv, capturedLead, existingLead, req.Message)

	// Stage 11: record the billable message event.
	s.recordUsage(ctx, log, bot, model.UsageEventMessage)

	return &model.ChatResponse{
		ConversationID: conv.ID,
		Message:        resp.Content,
	}, nil
}

func (s *TurnService) loadOrCreateConversation(ctx context.Context, bot *model.Bot, req *model.ChatRequest) (*model.Conversation, bool, error) {
	if req.ConversationID != "" {
		conv, err := s.conversations.GetByID(ctx, req.ConversationID)
		if err == nil && conv.BotID == bot.ID {
			return conv, false, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
		// Unknown or foreign conversation id: start a fresh session
		// rather than failing a retrying widget.
	}

	now := s.now()
	conv := &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		BotID:         bot.ID,
		TenantID:      bot.TenantID,
		VisitorID:     req.VisitorID,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

func (s *TurnService) findVisitorLead(ctx context.Context, log *logger.Logger, botID, visitorID string) *model.Lead {
	if visitorID == "" {
		return nil
	}
	existing, err := s.leads.FindByVisitor(ctx, botID, visitorID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("visitor lead lookup failed", zap.Error(err))
		}
		return nil
	}
	return existing
}

func (s *TurnService) captureLead(ctx context.Context, log *logger.Logger, bot *model.Bot, conv *model.Conversation, message string, history []model.Message) *model.Lead {
	captured, created, err := s.leadSvc.Capture(ctx, lead.CaptureInput{
		BotID:            bot.ID,
		TenantID:         bot.TenantID,
		ConversationID:   conv.ID,
		VisitorID:        conv.VisitorID,
		MessageText:      message,
		ConversationText: historyText(history, message),
		HistoryLength:    len(history),
		Sentiment:        conv.Sentiment,
		Now:              s.now(),
	})
	if err != nil {
		log.Warn("lead capture failed", zap.Error(err))
		return nil
	}
	if captured == nil {
		return nil
	}

	if created {
		metrics.LeadsCapturedTotal.WithLabelValues(bot.TenantID).Inc()
		s.recordUsage(ctx, log, bot, model.UsageEventLeadCapture)
	}
	log.Info("lead captured",
		zap.String("lead_id", captured.ID),
		zap.Int("score", captured.Score),
		zap.Bool("created", created),
	)
	return captured
}

func (s *TurnService) maybeNotifyHotLead(ctx context.Context, log *logger.Logger, bot *model.Bot, conv *model.Conversation, captured, existing *model.Lead, lastMessage string) {
	hot := captured
	if hot == nil {
		hot = existing
	}
	if hot == nil || !hot.HasContact() {
		return
	}

	threshold := bot.HotLeadThreshold
	if threshold <= 0 {
		threshold = model.DefaultHotLeadThreshold
	}
	if hot.Score < threshold {
		return
	}

	// Tenant email is best-effort enrichment; the webhook can still fire
	// without it.
	tenant, err := s.tenants.GetByID(ctx, bot.TenantID)
	if err != nil {
		log.Warn("tenant lookup for notification failed", zap.Error(err))
		tenant = nil
	}

	s.dispatcher.NotifyHotLead(notify.NewHotLeadJob(bot, tenant, hot, conv.ID, lastMessage))
}

func (s *TurnService) recordUsage(ctx context.Context, log *logger.Logger, bot *model.Bot, typ model.UsageEventType) {
	ev := &model.UsageEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  bot.TenantID,
		BotID:     bot.ID,
		Type:      typ,
		Quantity:  1,
		CreatedAt: s.now(),
	}
	if err := s.usageEvents.Record(ctx, ev); err != nil {
		log.Error("failed to record usage event",
			zap.String("event_type", string(typ)),
			zap.Error(err),
		)
	}
}
