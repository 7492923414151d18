package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"membership_renewal_service/internal/domain/membership"
	"membership_renewal_service/internal/domain/notification"
	idb "membership_renewal_service/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// memoryClientRepo is an in-memory membership.Repository driven by Query.Matches.
type memoryClientRepo struct {
	mu        sync.Mutex
	clients   map[int64]*membership.Client
	findErrs  []error // consumed one per Find call
	updateErr map[int64]error
	expireErr map[int64]error
}

func newMemoryClientRepo(clients ...*membership.Client) *memoryClientRepo {
	r := &memoryClientRepo{
		clients:   make(map[int64]*membership.Client),
		updateErr: make(map[int64]error),
		expireErr: make(map[int64]error),
	}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	return r
}

func (r *memoryClientRepo) Find(_ context.Context, q membership.Query) ([]*membership.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.findErrs) > 0 {
		err := r.findErrs[0]
		r.findErrs = r.findErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out []*membership.Client
	for _, c := range r.clients {
		if q.Matches(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryClientRepo) GetByID(_ context.Context, id int64) (*membership.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, idb.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryClientRepo) UpdateLastNotifiedAt(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[id]; err != nil {
		return err
	}
	c, ok := r.clients[id]
	if !ok {
		return idb.ErrClientNotFound
	}
	c.LastNotifiedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (r *memoryClientRepo) ExpireMembership(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.expireErr[id]; err != nil {
		return err
	}
	c, ok := r.clients[id]
	if !ok {
		return idb.ErrClientNotFound
	}
	if c.Status != membership.StatusActive {
		return idb.ErrMembershipNotActive
	}
	c.Status = membership.StatusExpired
	return nil
}

func (r *memoryClientRepo) get(id int64) membership.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.clients[id]
}

type sentMessage struct {
	Recipient  string
	TemplateID notification.TemplateID
	Data       notification.RenewalReminderData
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
	panicOn string
}

func newRecordingSender() *recordingSender {
	return &recordingSender{failFor: make(map[string]error)}
}

func (s *recordingSender) Send(_ context.Context, recipient string, templateID notification.TemplateID, data any) error {
	if recipient == s.panicOn && recipient != "" {
		panic("transport exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[recipient]; err != nil {
		return err
	}
	d, _ := data.(notification.RenewalReminderData)
	s.sent = append(s.sent, sentMessage{Recipient: recipient, TemplateID: templateID, Data: d})
	return nil
}

func (s *recordingSender) countFor(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if m.Recipient == recipient {
			n++
		}
	}
	return n
}

type recordingRecorder struct {
	reports []*SweepReport
	errs    []error
}

func (r *recordingRecorder) ObserveSweep(report *SweepReport, err error) {
	r.reports = append(r.reports, report)
	r.errs = append(r.errs, err)
}

type fakeTelegramClient struct {
	chatID int64
	text   string
	err    error
}

func (f *fakeTelegramClient) SendMessage(recipientChatID int64, text string, _ *telebot.SendOptions) error {
	f.chatID = recipientChatID
	f.text = text
	return f.err
}

type stubTrigger struct {
	report *SweepReport
	err    error
	calls  int
}

func (s *stubTrigger) RunNow(context.Context) (*SweepReport, error) {
	s.calls++
	return s.report, s.err
}

var errBoom = errors.New("boom")

var errMembershipRenewed = fmt.Errorf("client 1: %w", idb.ErrMembershipNotActive)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func activeClient(id int64, email string, end time.Time) *membership.Client {
	return &membership.Client{
		ID:        id,
		FirstName: "Client",
		LastName:  sql.NullString{String: email, Valid: true},
		Email:     email,
		Membership: membership.Membership{
			PlanType:  "monthly",
			Status:    membership.StatusActive,
			StartDate: sql.NullTime{Time: end.AddDate(0, -1, 0), Valid: true},
			EndDate:   sql.NullTime{Time: end, Valid: true},
		},
	}
}
