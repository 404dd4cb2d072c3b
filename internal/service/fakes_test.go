package service

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync"
	"time"

	"tg-sanctions/internal/audit"
	"tg-sanctions/internal/models"
	"tg-sanctions/internal/sanction"
)

var (
	t0     = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	bot    = sanction.Identity{ID: 1, Name: "Sanctions Bot", Username: "sanctions_bot"}
	mod    = sanction.Identity{ID: 7, Name: "Mod"}
	alice  = sanction.Identity{ID: 42, Name: "Alice"}
	errBad = errors.New("boom")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore mirrors the storage semantics in memory.
type memStore struct {
	mu        sync.Mutex
	next      int64
	records   map[int64]models.ActionRecord
	muted     map[int64]bool
	resolved  []int64
	recordErr error
}

func newMemStore() *memStore {
	return &memStore{records: map[int64]models.ActionRecord{}, muted: map[int64]bool{}}
}

func (s *memStore) Record(_ context.Context, rec models.ActionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return 0, s.recordErr
	}
	for id, r := range s.records {
		if r.TargetID == rec.TargetID && r.Kind == rec.Kind && r.Resolved != nil && !*r.Resolved {
			t := true
			r.Resolved = &t
			s.records[id] = r
		}
	}
	s.next++
	rec.ID = s.next
	s.records[rec.ID] = rec
	switch rec.Kind {
	case "mute":
		s.muted[rec.TargetID] = true
	case "unmute":
		s.muted[rec.TargetID] = false
	}
	return rec.ID, nil
}

func (s *memStore) put(rec models.ActionRecord) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	rec.ID = s.next
	s.records[rec.ID] = rec
	return rec.ID
}

func (s *memStore) sorted(keep func(models.ActionRecord) bool) []models.ActionRecord {
	var out []models.ActionRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) FindExpired(_ context.Context, now time.Time) ([]models.ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(r models.ActionRecord) bool {
		return r.Resolved != nil && !*r.Resolved && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
	}), nil
}

func (s *memStore) FindActive(_ context.Context, targetID int64, kind string) (*models.ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.sorted(func(r models.ActionRecord) bool {
		return r.TargetID == targetID && r.Kind == kind && r.Resolved != nil && !*r.Resolved
	})
	if len(active) == 0 {
		return nil, nil
	}
	rec := active[len(active)-1]
	return &rec, nil
}

func (s *memStore) MarkResolved(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if ok && r.Resolved != nil {
		t := true
		r.Resolved = &t
		s.records[id] = r
	}
	s.resolved = append(s.resolved, id)
	return nil
}

func (s *memStore) History(_ context.Context, targetID int64) iter.Seq2[models.ActionRecord, error] {
	return func(yield func(models.ActionRecord, error) bool) {
		s.mu.Lock()
		recs := s.sorted(func(r models.ActionRecord) bool { return r.TargetID == targetID })
		s.mu.Unlock()
		for i := len(recs) - 1; i >= 0; i-- {
			if !yield(recs[i], nil) {
				return
			}
		}
	}
}

func (s *memStore) CountHistory(_ context.Context, targetID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sorted(func(r models.ActionRecord) bool { return r.TargetID == targetID }))), nil
}

func (s *memStore) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) IsMuted(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted[userID], nil
}

func (s *memStore) unresolved(targetID int64, kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sorted(func(r models.ActionRecord) bool {
		return r.TargetID == targetID && r.Kind == kind && r.Resolved != nil && !*r.Resolved
	}))
}

func (s *memStore) kinds(targetID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.sorted(func(r models.ActionRecord) bool { return r.TargetID == targetID }) {
		out = append(out, r.Kind)
	}
	return out
}

type actuatorCall struct {
	Op     string
	Target int64
	Arg    string
}

type fakeActuator struct {
	mu    sync.Mutex
	calls []actuatorCall
	err   error
	block chan struct{}
}

func (f *fakeActuator) do(ctx context.Context, op string, t sanction.Identity, arg string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, actuatorCall{op, t.ID, arg})
	return f.err
}

func (f *fakeActuator) Kick(ctx context.Context, t sanction.Identity, r string) error {
	return f.do(ctx, "kick", t, r)
}
func (f *fakeActuator) Ban(ctx context.Context, t sanction.Identity, r string) error {
	return f.do(ctx, "ban", t, r)
}
func (f *fakeActuator) Unban(ctx context.Context, t sanction.Identity, r string) error {
	return f.do(ctx, "unban", t, r)
}
func (f *fakeActuator) AddRole(ctx context.Context, t sanction.Identity, role string) error {
	return f.do(ctx, "add_role", t, role)
}
func (f *fakeActuator) RemoveRole(ctx context.Context, t sanction.Identity, role string) error {
	return f.do(ctx, "remove_role", t, role)
}

func (f *fakeActuator) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Op)
	}
	return out
}

// fakeNotifier records recipients and always fails delivery.
type fakeNotifier struct {
	mu     sync.Mutex
	sent   []int64
	before func()
}

func (f *fakeNotifier) DirectMessage(_ context.Context, t sanction.Identity, _ string) error {
	if f.before != nil {
		f.before()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, t.ID)
	return errors.New("dms closed")
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDirectory struct {
	status MemberStatus
	err    error
}

func (d *fakeDirectory) Lookup(_ context.Context, id int64) (sanction.Identity, MemberStatus, error) {
	if d.err != nil {
		return sanction.Identity{}, StatusUnknown, d.err
	}
	return sanction.Identity{ID: id, Name: "Live"}, d.status, nil
}

type fakeModLog struct {
	mu        sync.Mutex
	published []int64
	err       error
}

func (m *fakeModLog) Publish(_ context.Context, a *sanction.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, a.ID)
	return m.err
}

type fakeReader struct {
	entry *audit.Entry
	err   error
	calls int
	tries int
}

func (r *fakeReader) FetchRecentEntry(_ context.Context, _ int64, _ sanction.Kind, maxRetries int) (*audit.Entry, error) {
	r.calls++
	r.tries = maxRetries
	return r.entry, r.err
}

func timedRecord(target int64, kind string, created, expires time.Time) models.ActionRecord {
	f := false
	return models.ActionRecord{
		TargetID:  target,
		ActorID:   mod.ID,
		Kind:      kind,
		CreatedAt: created,
		ExpiresAt: &expires,
		Resolved:  &f,
	}
}
