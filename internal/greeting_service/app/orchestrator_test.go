package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	composerdomain "github.com/aradsms/greeting_services/internal/composer_service/domain"
	contactdomain "github.com/aradsms/greeting_services/internal/contact_service/domain"
	deliverydomain "github.com/aradsms/greeting_services/internal/delivery_service/domain"
	"github.com/aradsms/greeting_services/internal/greeting_service/domain"
)

// --- Fakes ---

type fakeContactStore struct {
	mu        sync.Mutex
	today     []*contactdomain.Recipient
	groups    map[string][]*contactdomain.Recipient
	all       []*contactdomain.Recipient
	selectErr error
	appendErr error
	// appendPanics makes that many AppendLog calls panic before succeeding.
	appendPanics int
	logs         []*contactdomain.SendLogEntry
}

func (s *fakeContactStore) RecipientsMatchingToday(context.Context) ([]*contactdomain.Recipient, error) {
	return s.today, s.selectErr
}

func (s *fakeContactStore) RecipientsInGroup(_ context.Context, tag string) ([]*contactdomain.Recipient, error) {
	return s.groups[tag], s.selectErr
}

func (s *fakeContactStore) AllRecipients(context.Context) ([]*contactdomain.Recipient, error) {
	return s.all, s.selectErr
}

func (s *fakeContactStore) AppendLog(_ context.Context, id uuid.UUID, t contactdomain.OccasionType, body string) (*contactdomain.SendLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendPanics > 0 {
		s.appendPanics--
		panic("log table locked")
	}
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	e := &contactdomain.SendLogEntry{ID: uuid.New(), RecipientID: id, OccasionType: t, Message: body, SentAt: time.Now().UTC()}
	s.logs = append(s.logs, e)
	return e, nil
}

type fakeCatalog map[string][]string

func (c fakeCatalog) OccasionsForGroup(_ context.Context, tag string) ([]string, error) {
	return c[tag], nil
}

type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) Compose(ctx context.Context, name, label string) (*composerdomain.MessageBundle, error) {
	args := m.Called(ctx, name, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*composerdomain.MessageBundle), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Send(ctx context.Context, msg deliverydomain.Message) (*deliverydomain.SendReceipt, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliverydomain.SendReceipt), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// --- Helpers ---

func recipient(name, email, md, group string, optOut bool) *contactdomain.Recipient {
	var day *contactdomain.MonthDay
	if md != "" {
		d, err := contactdomain.ParseMonthDay(md)
		if err != nil {
			panic(err)
		}
		day = &d
	}
	return contactdomain.NewRecipient(uuid.New(), name, email, "", day, group, optOut)
}

func bundleFor(name, label string) *composerdomain.MessageBundle {
	return &composerdomain.MessageBundle{
		Subject:   fmt.Sprintf("Happy %s, %s!", label, name),
		Body:      fmt.Sprintf("Dear %s, warm wishes on %s.", name, label),
		ShortBody: fmt.Sprintf("Happy %s %s!", label, name),
		HTMLBody:  fmt.Sprintf("<p>Happy %s, %s!</p>", label, name),
	}
}

func receipt() *deliverydomain.SendReceipt {
	return &deliverydomain.SendReceipt{Provider: "mock", ProviderMessageID: uuid.NewString(), AcceptedAt: time.Now()}
}

func newTestOrchestrator(store domain.ContactStore, catalog domain.OccasionCatalog, c domain.Composer, g domain.Gateway, p domain.EventPublisher, cfg Config) *Orchestrator {
	return NewOrchestrator(store, catalog, c, g, p, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- Tests ---

func TestOrchestrator_RunByDate_SkipsOptedOut(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	bo := recipient("Bo", "bo@x.io", "07-14", "", true)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada, bo}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil).Once()
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.MatchedBy(func(m deliverydomain.Message) bool {
		return m.To == "ada@x.io" && m.ToName == "Ada"
	})).Return(receipt(), nil).Once()

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ModeByDate, summary.Mode)
	assert.Equal(t, "Birthday", summary.Occasion)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.False(t, summary.Cancelled)

	require.Len(t, store.logs, 1)
	assert.Equal(t, ada.ID, store.logs[0].RecipientID)
	assert.Equal(t, contactdomain.OccasionRecurringDate, store.logs[0].OccasionType)
	assert.Equal(t, bundleFor("Ada", "Birthday").Body, store.logs[0].Message)

	assert.Equal(t, domain.StatusSent, summary.Results[0].Status)
	require.NotNil(t, summary.Results[0].LogID)
	assert.Equal(t, store.logs[0].ID, *summary.Results[0].LogID)
	assert.Equal(t, domain.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, "opted out", summary.Results[1].Reason)

	composer.AssertNotCalled(t, "Compose", mock.Anything, "Bo", mock.Anything)
	composer.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestOrchestrator_RunByDate_SelectionFailure(t *testing.T) {
	store := &fakeContactStore{selectErr: errors.New("db down")}
	o := newTestOrchestrator(store, fakeCatalog{}, new(MockComposer), new(MockGateway), nil, Config{})

	summary, err := o.RunByDate(context.Background())
	assert.Error(t, err)
	assert.Nil(t, summary)
	assert.Empty(t, store.logs)
}

func TestOrchestrator_RunByDate_NoCandidates(t *testing.T) {
	store := &fakeContactStore{}
	o := newTestOrchestrator(store, fakeCatalog{}, new(MockComposer), new(MockGateway), nil, Config{})

	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.NotNil(t, summary.Results)
}

func TestOrchestrator_RunByGroup_UsesFirstCatalogOccasion(t *testing.T) {
	r1 := recipient("Rin", "rin@x.io", "", "east", false)
	r2 := recipient("Sol", "sol@x.io", "", "east", false)
	store := &fakeContactStore{groups: map[string][]*contactdomain.Recipient{"east": {r1, r2}}}
	catalog := fakeCatalog{"east": {"Lunar New Year", "Mid-Autumn"}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Rin", "Lunar New Year").Return(bundleFor("Rin", "Lunar New Year"), nil).Once()
	composer.On("Compose", mock.Anything, "Sol", "Lunar New Year").Return(bundleFor("Sol", "Lunar New Year"), nil).Once()
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil).Twice()

	o := newTestOrchestrator(store, catalog, composer, gateway, nil, Config{})
	summary, err := o.RunByGroup(context.Background(), "east", "", "")
	require.NoError(t, err)

	assert.Equal(t, "Lunar New Year", summary.Occasion)
	assert.Equal(t, 2, summary.Sent)
	require.Len(t, store.logs, 2)
	for _, e := range store.logs {
		assert.Equal(t, contactdomain.OccasionGroup, e.OccasionType)
	}
	composer.AssertExpectations(t)
}

func TestOrchestrator_RunByGroup_OccasionResolution(t *testing.T) {
	testCases := []struct {
		name     string
		catalog  fakeCatalog
		occasion string
		fallback string
		want     string
		wantErr  error
	}{
		{name: "requested occasion in catalog", catalog: fakeCatalog{"east": {"A", "B"}}, occasion: "B", want: "B"},
		{name: "requested occasion not in catalog", catalog: fakeCatalog{"east": {"A"}}, occasion: "Z", wantErr: domain.ErrUnknownOccasion},
		{name: "empty catalog uses fallback", catalog: fakeCatalog{}, fallback: "Festival Greetings", want: "Festival Greetings"},
		{name: "empty catalog without fallback", catalog: fakeCatalog{}, wantErr: domain.ErrNoOccasion},
		{name: "empty catalog uses requested occasion", catalog: fakeCatalog{}, occasion: "Diwali", want: "Diwali"},
		{name: "empty catalog prefers fallback over requested", catalog: fakeCatalog{}, occasion: "Diwali", fallback: "Festival Greetings", want: "Festival Greetings"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeContactStore{groups: map[string][]*contactdomain.Recipient{}}
			o := newTestOrchestrator(store, tc.catalog, new(MockComposer), new(MockGateway), nil, Config{})

			summary, err := o.RunByGroup(context.Background(), "east", tc.occasion, tc.fallback)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, summary.Occasion)
		})
	}
}

func TestOrchestrator_RunByGroup_EmptyTag(t *testing.T) {
	o := newTestOrchestrator(&fakeContactStore{}, fakeCatalog{}, new(MockComposer), new(MockGateway), nil, Config{})
	_, err := o.RunByGroup(context.Background(), "  ", "", "")
	assert.ErrorIs(t, err, domain.ErrEmptyGroup)
}

func TestOrchestrator_FailedComposeDoesNotStopBatch(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	bo := recipient("Bo", "bo@x.io", "07-14", "", false)
	cy := recipient("Cy", "cy@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada, bo, cy}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	composer.On("Compose", mock.Anything, "Bo", "Birthday").
		Return(nil, &composerdomain.CompositionError{Raw: "Sorry, I can't help", Err: composerdomain.ErrMalformedOutput})
	composer.On("Compose", mock.Anything, "Cy", "Birthday").Return(bundleFor("Cy", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, domain.StatusFailed, summary.Results[1].Status)
	assert.Equal(t, domain.StageCompose, summary.Results[1].Stage)
	assert.Len(t, store.logs, 2)
	gateway.AssertNumberOfCalls(t, "Send", 2)
}

func TestOrchestrator_ComposeRetries(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(nil, composerdomain.ErrGeneratorUnavailable).Once()
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil).Once()
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil).Once()

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{ComposeAttempts: 2})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	composer.AssertNumberOfCalls(t, "Compose", 2)
}

func TestOrchestrator_SendFailureWritesNoLog(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).
		Return(nil, &deliverydomain.DeliveryError{Provider: "smtp", To: "ada@x.io", Err: deliverydomain.ErrProviderRejected})

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, domain.StageSend, summary.Results[0].Stage)
	assert.Nil(t, summary.Results[0].LogID)
	assert.Empty(t, store.logs)
}

func TestOrchestrator_LogFailureAfterSend(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada}, appendErr: errors.New("insert failed")}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, domain.StageLog, summary.Results[0].Stage)
	assert.NotEmpty(t, summary.Results[0].ProviderMessageID)
}

func TestOrchestrator_RecoversPanicPerCandidate(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	bo := recipient("Bo", "bo@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada, bo}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Run(func(mock.Arguments) { panic("boom") })
	composer.On("Compose", mock.Anything, "Bo", "Birthday").Return(bundleFor("Bo", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, summary.Results[0].Status)
	assert.Equal(t, domain.StagePanic, summary.Results[0].Stage)
	assert.Equal(t, "boom", summary.Results[0].Reason)
	assert.Equal(t, domain.StatusSent, summary.Results[1].Status)
	assert.Len(t, store.logs, 1)
}

func TestOrchestrator_PanicInLogAppendDoesNotBlockBatch(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	bo := recipient("Bo", "bo@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada, bo}, appendPanics: 1}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	composer.On("Compose", mock.Anything, "Bo", "Birthday").Return(bundleFor("Bo", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{Workers: 1})

	done := make(chan *domain.BatchSummary, 1)
	go func() {
		summary, err := o.RunByDate(context.Background())
		assert.NoError(t, err)
		done <- summary
	}()

	var summary *domain.BatchSummary
	select {
	case summary = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("batch did not finish after a panic in AppendLog")
	}

	require.NotNil(t, summary)
	assert.Equal(t, domain.StagePanic, summary.Results[0].Stage)
	assert.Equal(t, domain.StatusSent, summary.Results[1].Status)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, store.logs, 1)
}

func TestOrchestrator_LateCancellationIsNotReported(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(receipt(), nil)

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{Workers: 1})
	summary, err := o.RunByDate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Zero(t, summary.Skipped)
	assert.False(t, summary.Cancelled)
}

func TestOrchestrator_CancellationBetweenCandidates(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	bo := recipient("Bo", "bo@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada, bo}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		cancel()
		// The in-flight call still sees a live context.
		assert.NoError(t, args.Get(0).(context.Context).Err())
	}).Return(receipt(), nil).Once()

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{Workers: 1})
	summary, err := o.RunByDate(ctx)
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, domain.StatusSent, summary.Results[0].Status)
	assert.Equal(t, domain.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, "batch cancelled", summary.Results[1].Reason)
	assert.Len(t, store.logs, 1)
	composer.AssertNotCalled(t, "Compose", mock.Anything, "Bo", mock.Anything)
}

func TestOrchestrator_ConcurrentWorkers(t *testing.T) {
	var candidates []*contactdomain.Recipient
	composer := new(MockComposer)
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("R%d", i)
		candidates = append(candidates, recipient(name, name+"@x.io", "07-14", "", false))
		composer.On("Compose", mock.Anything, name, "Birthday").Return(bundleFor(name, "Birthday"), nil)
	}
	store := &fakeContactStore{today: candidates}
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, nil, Config{Workers: 4})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, summary.Sent)
	assert.Len(t, store.logs, 8)
	for i, res := range summary.Results {
		assert.Equal(t, candidates[i].ID, res.RecipientID)
	}
}

func TestOrchestrator_RunCustom(t *testing.T) {
	shared := recipient("Ada", "ada@x.io", "", "east", false)
	west := recipient("Wu", "wu@x.io", "", "west", false)
	store := &fakeContactStore{
		groups: map[string][]*contactdomain.Recipient{"east": {shared}, "west": {west, shared}},
		all:    []*contactdomain.Recipient{shared, west},
	}

	t.Run("message wins over title and groups are deduplicated", func(t *testing.T) {
		composer := new(MockComposer)
		composer.On("Compose", mock.Anything, mock.Anything, "Thank you for 10 years").
			Return(bundleFor("x", "Thank you for 10 years"), nil)
		gateway := new(MockGateway)
		gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)
		s := &fakeContactStore{groups: store.groups}

		o := newTestOrchestrator(s, fakeCatalog{}, composer, gateway, nil, Config{})
		summary, err := o.RunCustom(context.Background(), []string{"east", "west"}, "Anniversary", "Thank you for 10 years")
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 2, summary.Sent)
		for _, e := range s.logs {
			assert.Equal(t, contactdomain.OccasionCustom, e.OccasionType)
		}
	})

	t.Run("no groups targets everyone", func(t *testing.T) {
		composer := new(MockComposer)
		composer.On("Compose", mock.Anything, mock.Anything, "Anniversary").Return(bundleFor("x", "Anniversary"), nil)
		gateway := new(MockGateway)
		gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)
		s := &fakeContactStore{all: store.all}

		o := newTestOrchestrator(s, fakeCatalog{}, composer, gateway, nil, Config{})
		summary, err := o.RunCustom(context.Background(), nil, "Anniversary", "")
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Sent)
	})

	t.Run("missing title and message", func(t *testing.T) {
		o := newTestOrchestrator(store, fakeCatalog{}, new(MockComposer), new(MockGateway), nil, Config{})
		_, err := o.RunCustom(context.Background(), nil, " ", "")
		assert.ErrorIs(t, err, domain.ErrNoOccasion)
	})
}

func TestOrchestrator_Run_Validation(t *testing.T) {
	o := newTestOrchestrator(&fakeContactStore{}, fakeCatalog{}, new(MockComposer), new(MockGateway), nil, Config{})

	_, err := o.Run(context.Background(), domain.BatchRequest{Mode: "weekly"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = o.Run(context.Background(), domain.BatchRequest{Mode: domain.ModeByGroup})
	assert.ErrorIs(t, err, domain.ErrEmptyGroup)

	summary, err := o.Run(context.Background(), domain.BatchRequest{Mode: domain.ModeByDate})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeByDate, summary.Mode)
}

func TestOrchestrator_PublishesEvents(t *testing.T) {
	ada := recipient("Ada", "ada@x.io", "07-14", "", false)
	store := &fakeContactStore{today: []*contactdomain.Recipient{ada}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Ada", "Birthday").Return(bundleFor("Ada", "Birthday"), nil)
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil)

	var sent domain.DeliverySentEvent
	var completed domain.BatchCompletedEvent
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, "greetings.delivery.sent", mock.Anything).Run(func(args mock.Arguments) {
		assert.NoError(t, json.Unmarshal(args.Get(2).([]byte), &sent))
	}).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "greetings.batch.completed", mock.Anything).Run(func(args mock.Arguments) {
		assert.NoError(t, json.Unmarshal(args.Get(2).([]byte), &completed))
	}).Return(errors.New("nats down")).Once()

	o := newTestOrchestrator(store, fakeCatalog{}, composer, gateway, publisher, Config{
		DeliverySentSubject:   "greetings.delivery.sent",
		BatchCompletedSubject: "greetings.batch.completed",
	})
	summary, err := o.RunByDate(context.Background())
	require.NoError(t, err, "a publish failure never fails the batch")

	publisher.AssertExpectations(t)
	assert.Equal(t, ada.ID, sent.RecipientID)
	assert.Equal(t, summary.ID, sent.BatchID)
	assert.Equal(t, string(contactdomain.OccasionRecurringDate), sent.OccasionType)
	assert.Equal(t, summary.ID, completed.BatchID)
	assert.Equal(t, 1, completed.Sent)
}

func TestOrchestrator_RunByGroup_SkipsOptedOutMember(t *testing.T) {
	in := recipient("Rin", "rin@x.io", "", "east", false)
	out := recipient("Sol", "sol@x.io", "", "east", true)
	store := &fakeContactStore{groups: map[string][]*contactdomain.Recipient{"east": {in, out}}}

	composer := new(MockComposer)
	composer.On("Compose", mock.Anything, "Rin", "Diwali").Return(bundleFor("Rin", "Diwali"), nil).Once()
	gateway := new(MockGateway)
	gateway.On("Send", mock.Anything, mock.Anything).Return(receipt(), nil).Once()

	o := newTestOrchestrator(store, fakeCatalog{"east": {"Diwali"}}, composer, gateway, nil, Config{})
	summary, err := o.RunByGroup(context.Background(), "east", "Diwali", "")
	require.NoError(t, err)

	gateway.AssertNumberOfCalls(t, "Send", 1)
	require.Len(t, store.logs, 1)
	assert.Equal(t, in.ID, store.logs[0].RecipientID)
	assert.Equal(t, 1, summary.Skipped)
	composer.AssertNotCalled(t, "Compose", mock.Anything, "Sol", mock.Anything)
}
