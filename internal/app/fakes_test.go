package app

import (
	"context"
	"sync"
	"time"

	"ats_workflow/internal/domain/application"
	"ats_workflow/internal/domain/notification"
	"ats_workflow/internal/domain/user"
	idb "ats_workflow/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestLogger() (*logrus.Entry, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), hook
}

type fakeAppRepo struct {
	mu      sync.Mutex
	apps    map[uuid.UUID]application.Application
	history []application.TransitionRecord
	nextID  int64

	getErr     error
	createErr  error
	advanceErr error
	// blockAdvance makes AdvanceStage wait for its context to end.
	blockAdvance  bool
	beforeAdvance func()
}

func newFakeAppRepo(apps ...application.Application) *fakeAppRepo {
	r := &fakeAppRepo{apps: map[uuid.UUID]application.Application{}}
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return r
}

func (r *fakeAppRepo) Create(ctx context.Context, a *application.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.apps[a.ID] = *a
	return nil
}

func (r *fakeAppRepo) GetByID(ctx context.Context, id uuid.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.apps[id]
	if !ok {
		return nil, idb.ErrApplicationNotFound
	}
	return &a, nil
}

func (r *fakeAppRepo) AdvanceStage(ctx context.Context, rec *application.TransitionRecord) error {
	if r.beforeAdvance != nil {
		r.beforeAdvance()
	}
	if r.blockAdvance {
		<-ctx.Done()
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advanceErr != nil {
		return r.advanceErr
	}
	a, ok := r.apps[rec.ApplicationID]
	if !ok || a.CurrentStage != rec.FromStage {
		return idb.ErrStageConflict
	}
	a.CurrentStage = rec.ToStage
	r.apps[a.ID] = a
	r.nextID++
	rec.ID = r.nextID
	rec.ChangedAt = time.Now()
	r.history = append(r.history, *rec)
	return nil
}

func (r *fakeAppRepo) ListHistory(ctx context.Context, id uuid.UUID) ([]*application.TransitionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*application.TransitionRecord, 0)
	for i := range r.history {
		if r.history[i].ApplicationID == id {
			rec := r.history[i]
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (r *fakeAppRepo) stage(id uuid.UUID) application.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apps[id].CurrentStage
}

func (r *fakeAppRepo) historyLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

type fakeProducer struct {
	mu       sync.Mutex
	err      error
	messages []notification.Message
}

func (p *fakeProducer) Enqueue(ctx context.Context, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) sent() []notification.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notification.Message(nil), p.messages...)
}

type fakeSender struct {
	errFor map[string]error // by candidate email
	panics map[string]bool
	sent   []notification.Message
}

func (s *fakeSender) Send(ctx context.Context, msg notification.Message) error {
	if s.panics[msg.CandidateEmail] {
		panic("sender exploded")
	}
	if err := s.errFor[msg.CandidateEmail]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeConsumer struct {
	batch      []notification.Envelope
	receiveErr error
	ackErr     error
	acked      []notification.Envelope
}

func (c *fakeConsumer) ReceiveBatch(ctx context.Context) ([]notification.Envelope, error) {
	if c.receiveErr != nil {
		return nil, c.receiveErr
	}
	return c.batch, nil
}

func (c *fakeConsumer) Ack(ctx context.Context, envs []notification.Envelope) error {
	c.acked = append(c.acked, envs...)
	return c.ackErr
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *fakeAlerter) Alert(ctx context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, text)
	return nil
}

func (a *fakeAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// stallingAlerter never honours its context.
type stallingAlerter struct {
	delay time.Duration
}

func (a stallingAlerter) Alert(ctx context.Context, text string) error {
	time.Sleep(a.delay)
	return nil
}

type groupCall struct {
	pool, user, group string
}

type fakeGroups struct {
	err   error
	calls []groupCall
}

func (g *fakeGroups) AddUserToGroup(ctx context.Context, userPoolID, userName, group string) error {
	g.calls = append(g.calls, groupCall{userPoolID, userName, group})
	return g.err
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]user.User
	err     error
	getErr  error
	nextID  int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]user.User{}}
}

func (r *fakeUserRepo) InsertIfAbsent(ctx context.Context, u *user.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return false, nil
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.byEmail[u.Email] = *u
	return true, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	return &u, nil
}
