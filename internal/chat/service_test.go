package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-ai/bot-platform/internal/lead"
	"github.com/leadline-ai/bot-platform/internal/llm"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/notify"
	"github.com/leadline-ai/bot-platform/internal/retrieval"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/internal/usage"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

type fakeBots struct {
	bot *model.Bot
	err error
}

func (f *fakeBots) GetByID(ctx context.Context, id string) (*model.Bot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.bot == nil || f.bot.ID != id {
		return nil, store.ErrNotFound
	}
	return f.bot, nil
}

func (f *fakeBots) Update(ctx context.Context, id string, updates map[string]any) (*model.Bot, error) {
	return nil, errors.New("not supported")
}

type fakeTenants struct {
	tenant *model.Tenant
	err    error
}

func (f *fakeTenants) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenant, nil
}

type fakeConversations struct {
	existing      map[string]*model.Conversation
	created       []*model.Conversation
	createErr     error
	recordTurnErr error
	turnsRecorded int
	lastSentiment int
}

func (f *fakeConversations) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	if c, ok := f.existing[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeConversations) Create(ctx context.Context, c *model.Conversation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeConversations) RecordTurn(ctx context.Context, id string, at time.Time, sentiment int) error {
	if f.recordTurnErr != nil {
		return f.recordTurnErr
	}
	f.turnsRecorded++
	f.lastSentiment = sentiment
	return nil
}

type fakeMessages struct {
	msgs      []*model.Message
	createErr error
	listErr   error
}

func (f *fakeMessages) Create(ctx context.Context, m *model.Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeMessages) ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeLeads struct {
	leads []*model.Lead
	err   error
}

func (f *fakeLeads) FindByContact(ctx context.Context, botID string, field store.ContactField, value string) (*model.Lead, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.leads {
		if l.BotID != botID {
			continue
		}
		if field == store.ContactEmail && l.Email == value {
			return l, nil
		}
		if field == store.ContactPhone && l.Phone == value {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLeads) FindByVisitor(ctx context.Context, botID, visitorID string) (*model.Lead, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.leads {
		if l.BotID == botID && l.VisitorID == visitorID {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLeads) Create(ctx context.Context, l *model.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.leads = append(f.leads, l)
	return nil
}

func (f *fakeLeads) Touch(ctx context.Context, id string, at time.Time, score int) error {
	if f.err != nil {
		return f.err
	}
	for _, l := range f.leads {
		if l.ID == id {
			l.LastContactAt = at
			l.ConversationCount++
			if score > l.Score {
				l.Score = score
			}
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeUsageEvents struct {
	events    []*model.UsageEvent
	recordErr error
}

func (f *fakeUsageEvents) Record(ctx context.Context, ev *model.UsageEvent) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeUsageEvents) CountSince(ctx context.Context, tenantID string, typ model.UsageEventType, since time.Time) (int, error) {
	return len(f.events), nil
}

func (f *fakeUsageEvents) countType(typ model.UsageEventType) int {
	n := 0
	for _, ev := range f.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type fakeGate struct {
	decision usage.Decision
	err      error
	calls    int
}

func (f *fakeGate) CheckAndAdmit(ctx context.Context, tenantID string, class model.UsageEventType) (usage.Decision, error) {
	f.calls++
	if f.err != nil {
		return usage.Decision{}, f.err
	}
	return f.decision, nil
}

type fakeTurnRetriever struct {
	results []retrieval.Result
	method  retrieval.Method
	err     error
}

func (f *fakeTurnRetriever) Retrieve(ctx context.Context, botID, query string, limit int) ([]retrieval.Result, retrieval.Method, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.results, f.method, nil
}

type fakeLLM struct {
	resp    *llm.CompletionResponse
	err     error
	lastReq *llm.CompletionRequest
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

type fakeDispatcher struct {
	jobs []*notify.HotLeadJob
}

func (f *fakeDispatcher) NotifyHotLead(job *notify.HotLeadJob) {
	f.jobs = append(f.jobs, job)
}

type fixture struct {
	bots          *fakeBots
	tenants       *fakeTenants
	conversations *fakeConversations
	messages      *fakeMessages
	leads         *fakeLeads
	usageEvents   *fakeUsageEvents
	gate          *fakeGate
	retriever     *fakeTurnRetriever
	llm           *fakeLLM
	dispatcher    *fakeDispatcher
	svc           *TurnService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		bots: &fakeBots{bot: &model.Bot{
			ID:       "bot-1",
			TenantID: "tenant-1",
			Name:     "Support Bot",
			Active:   true,
			Model:    "claude-3-5-sonnet-20241022",
		}},
		tenants:       &fakeTenants{tenant: &model.Tenant{ID: "tenant-1", Email: "owner@example.com", Plan: model.PlanStarter}},
		conversations: &fakeConversations{existing: map[string]*model.Conversation{}},
		messages:      &fakeMessages{},
		leads:         &fakeLeads{},
		usageEvents:   &fakeUsageEvents{},
		gate:          &fakeGate{decision: usage.Decision{Allowed: true, Current: 1, Limit: 2000}},
		retriever:     &fakeTurnRetriever{method: retrieval.MethodVector},
		llm: &fakeLLM{resp: &llm.CompletionResponse{
			Content:   "Happy to help!",
			Model:     "claude-3-5-sonnet-20241022",
			TokensIn:  20,
			TokensOut: 10,
			LatencyMs: 120,
		}},
		dispatcher: &fakeDispatcher{},
	}

	log, err := logger.New("error")
	require.NoError(t, err)

	f.svc = NewTurnService(
		f.bots, f.tenants, f.conversations, f.messages, f.leads, f.usageEvents,
		f.gate, f.retriever, lead.NewService(f.leads, nil), f.llm, f.dispatcher,
		Config{}, log,
	)
	return f
}

func TestConverseFirstMessageCapturesLead(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message:   "Hi, I'm interested, my email is a@b.com",
		VisitorID: "v-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", resp.Message)

	require.Len(t, f.conversations.created, 1)
	assert.Equal(t, f.conversations.created[0].ID, resp.ConversationID)

	require.Len(t, f.leads.leads, 1)
	l := f.leads.leads[0]
	assert.Equal(t, "a@b.com", l.Email)
	assert.Equal(t, 70, l.Score)
	assert.Equal(t, model.LeadStatusNew, l.Status)

	assert.Equal(t, 1, f.usageEvents.countType(model.UsageEventConversation))
	assert.Equal(t, 1, f.usageEvents.countType(model.UsageEventMessage))
	assert.Equal(t, 1, f.usageEvents.countType(model.UsageEventLeadCapture))

	// Score 70 is below the default threshold, so nothing is dispatched.
	assert.Empty(t, f.dispatcher.jobs)

	// Both sides of the turn were persisted.
	require.Len(t, f.messages.msgs, 2)
	assert.Equal(t, model.RoleUser, f.messages.msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, f.messages.msgs[1].Role)
	assert.Equal(t, 1, f.conversations.turnsRecorded)
}

func TestConverseQuotaDeniedHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.gate.decision = usage.Decision{Allowed: false, Current: 2000, Limit: 2000}

	resp, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "hello"})
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Nil(t, resp)

	assert.Empty(t, f.conversations.created)
	assert.Empty(t, f.messages.msgs)
	assert.Empty(t, f.usageEvents.events)
	assert.Zero(t, f.llm.calls)
}

func TestConverseBotLookup(t *testing.T) {
	t.Run("unknown bot", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Converse(context.Background(), "no-such-bot", &model.ChatRequest{Message: "hi"})
		assert.ErrorIs(t, err, ErrBotNotFound)
	})

	t.Run("inactive bot", func(t *testing.T) {
		f := newFixture(t)
		f.bots.bot.Active = false
		_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "hi"})
		assert.ErrorIs(t, err, ErrBotInactive)
	})

	t.Run("soft-deleted bot", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()
		f.bots.bot.DeletedAt = &now
		_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "hi"})
		assert.ErrorIs(t, err, ErrBotInactive)
	})
}

func TestConverseEmptyMessage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.gate.calls)
}

func TestConverseReplySurvivesSideChannelFailures(t *testing.T) {
	f := newFixture(t)
	f.messages.createErr = errors.New("messages table down")
	f.leads.err = errors.New("leads table down")
	f.retriever.err = errors.New("embeddings down")
	f.usageEvents.recordErr = errors.New("ledger down")
	f.conversations.recordTurnErr = errors.New("aggregates down")

	resp, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message:   "my email is a@b.com, what do you sell?",
		VisitorID: "v-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", resp.Message)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestConverseReusesConversation(t *testing.T) {
	f := newFixture(t)
	f.conversations.existing["conv-1"] = &model.Conversation{
		ID: "conv-1", BotID: "bot-1", TenantID: "tenant-1", VisitorID: "v-1",
	}

	resp, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message:        "hello again",
		ConversationID: "conv-1",
		VisitorID:      "v-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Empty(t, f.conversations.created)
	assert.Zero(t, f.usageEvents.countType(model.UsageEventConversation))
}

func TestConverseForeignConversationStartsFresh(t *testing.T) {
	f := newFixture(t)
	f.conversations.existing["conv-other"] = &model.Conversation{
		ID: "conv-other", BotID: "someone-elses-bot",
	}

	resp, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message:        "hello",
		ConversationID: "conv-other",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "conv-other", resp.ConversationID)
	require.Len(t, f.conversations.created, 1)
}

func TestConverseRateLimitedProvider(t *testing.T) {
	f := newFixture(t)
	f.llm.err = llm.ErrRateLimited

	_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrRateLimited)

	// The model never replied, so no billable message event exists.
	assert.Zero(t, f.usageEvents.countType(model.UsageEventMessage))
}

func TestConverseProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("upstream 500")

	_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrService)
}

func TestConverseDispatchesHotLead(t *testing.T) {
	f := newFixture(t)
	f.bots.bot.WebhookURL = "https://example.com/hook"

	resp, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message:   "Can I get a quote? My email is buyer@example.com",
		VisitorID: "v-1",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.Len(t, f.dispatcher.jobs, 1)
	job := f.dispatcher.jobs[0]
	assert.Equal(t, "tenant-1", job.TenantID)
	assert.Equal(t, "owner@example.com", job.TenantEmail)
	assert.Equal(t, "https://example.com/hook", job.WebhookURL)
	assert.Equal(t, "buyer@example.com", job.Lead.Email)
	assert.GreaterOrEqual(t, job.Lead.Score, model.DefaultHotLeadThreshold)
	assert.Equal(t, resp.ConversationID, job.ConversationID)
}

func TestConverseHotLeadSurvivesTenantLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.tenants.err = errors.New("tenants table down")

	_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message: "Send me a quote at buyer@example.com",
	})
	require.NoError(t, err)
	require.Len(t, f.dispatcher.jobs, 1)
	assert.Empty(t, f.dispatcher.jobs[0].TenantEmail)
}

func TestConverseCustomThresholdSuppressesDispatch(t *testing.T) {
	f := newFixture(t)
	f.bots.bot.HotLeadThreshold = 95

	_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{
		Message: "Ready to buy, quote me a price: buyer@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, f.dispatcher.jobs)
}

func TestConversePromptIncludesKnowledge(t *testing.T) {
	f := newFixture(t)
	f.bots.bot.SystemPrompt = "You answer questions about Acme."
	f.retriever.results = []retrieval.Result{
		{Content: "Acme ships worldwide.", SourceLabel: "shipping.md", Score: 0.91},
	}

	_, err := f.svc.Converse(context.Background(), "bot-1", &model.ChatRequest{Message: "Do you ship to Japan?"})
	require.NoError(t, err)

	require.NotNil(t, f.llm.lastReq)
	assert.Contains(t, f.llm.lastReq.System, "You answer questions about Acme.")
	assert.Contains(t, f.llm.lastReq.System, "Acme ships worldwide.")
	require.NotEmpty(t, f.llm.lastReq.Messages)
	assert.Equal(t, "Do you ship to Japan?", f.llm.lastReq.Messages[len(f.llm.lastReq.Messages)-1].Content)
}
