package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memRepo struct {
	mu            sync.Mutex
	configs       map[Type]*Config
	templates     []Template
	data          map[uuid.UUID]*AppointmentData
	cancelled     map[uuid.UUID]bool
	notifications map[uuid.UUID]*Notification
	order         []uuid.UUID
}

func newMemRepo() *memRepo {
	return &memRepo{
		configs:       map[Type]*Config{},
		data:          map[uuid.UUID]*AppointmentData{},
		cancelled:     map[uuid.UUID]bool{},
		notifications: map[uuid.UUID]*Notification{},
	}
}

func (r *memRepo) FindConfig(_ context.Context, t Type) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.configs[t]
	if !ok {
		return nil, ErrConfigNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) FindActiveTemplate(_ context.Context, t Type, c Channel) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *Template
	for i := range r.templates {
		tpl := &r.templates[i]
		if tpl.Type != t || tpl.Channel != c || !tpl.Active {
			continue
		}
		if best == nil || tpl.UpdatedAt.After(best.UpdatedAt) {
			best = tpl
		}
	}
	if best == nil {
		return nil, ErrTemplateNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *memRepo) LoadAppointmentData(_ context.Context, id uuid.UUID) (*AppointmentData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, n Notification) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	r.notifications[n.ID] = &n
	r.order = append(r.order, n.ID)
	cp := n
	return &cp, nil
}

func (r *memRepo) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time, metadata map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = StatusSent
	n.Attempts++
	n.SentAt = &sentAt
	n.Metadata = metadata
	n.LastError = nil
	return nil
}

func (r *memRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = StatusFailed
	n.Attempts++
	n.LastError = &reason
	return nil
}

func (r *memRepo) SupersedeProgrammed(_ context.Context, appointmentID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.notifications {
		if row.AppointmentID == appointmentID && row.Status == StatusProgrammed && row.Type != TypeCancellation {
			row.Status = StatusSuperseded
			n++
		}
	}
	return n, nil
}

func (r *memRepo) claim(limit int, match func(*Notification) bool) []Notification {
	var out []Notification
	for _, id := range r.order {
		if len(out) >= limit {
			break
		}
		n := r.notifications[id]
		if n.Type != TypeCancellation && r.cancelled[n.AppointmentID] {
			continue
		}
		if !match(n) {
			continue
		}
		n.Status = StatusPending
		n.UpdatedAt = time.Now()
		out = append(out, *n)
	}
	return out
}

func (r *memRepo) ClaimDueProgrammed(_ context.Context, now time.Time, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claim(limit, func(n *Notification) bool {
		return n.Status == StatusProgrammed && n.ScheduledFor != nil && !n.ScheduledFor.After(now)
	}), nil
}

func (r *memRepo) ClaimRetryableFailed(_ context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claim(limit, func(n *Notification) bool {
		stale := n.Status == StatusPending && n.UpdatedAt.Before(staleBefore)
		return (n.Status == StatusFailed || stale) && n.Attempts < maxAttempts
	}), nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, id := range r.order {
		n := r.notifications[id]
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (r *memRepo) Stats(context.Context, *time.Time, *time.Time) (*Stats, error) {
	return nil, errors.New("not implemented")
}

func (r *memRepo) ListConfigs(context.Context) ([]Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Config
	for _, c := range r.configs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *memRepo) UpsertConfig(_ context.Context, c Config) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.UpdatedAt = time.Now()
	r.configs[c.Type] = &c
	cp := c
	return &cp, nil
}

func (r *memRepo) ListTemplates(context.Context) ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Template(nil), r.templates...), nil
}

func (r *memRepo) CreateTemplate(_ context.Context, t Template) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.templates = append(r.templates, t)
	return &t, nil
}

func (r *memRepo) byType(t Type) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, id := range r.order {
		if n := r.notifications[id]; n.Type == t {
			out = append(out, *n)
		}
	}
	return out
}

func (r *memRepo) get(id uuid.UUID) Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.notifications[id]
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePhone struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakePhone) send(to string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to)
	return "SM" + to, nil
}

func (f *fakePhone) SendWhatsApp(_ context.Context, to, _ string) (string, error) { return f.send(to) }
func (f *fakePhone) SendSMS(_ context.Context, to, _ string) (string, error)      { return f.send(to) }
