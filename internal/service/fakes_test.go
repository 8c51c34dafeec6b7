package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/salonlime/booking_bot/internal/google"
	"github.com/salonlime/booking_bot/internal/model"
)

// fakeClock управляемые часы для проверки TTL и горизонта
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeRefData struct {
	services  []*model.Service
	schedules []*model.WorkSchedule
}

func (f *fakeRefData) Services(ctx context.Context) ([]*model.Service, error) {
	return f.services, nil
}

func (f *fakeRefData) Schedules(ctx context.Context) ([]*model.WorkSchedule, error) {
	return f.schedules, nil
}

func (f *fakeRefData) ServiceByName(ctx context.Context, category, name string) (*model.Service, error) {
	for _, svc := range f.services {
		if svc.Category == category && svc.Name == name {
			return svc, nil
		}
	}
	return nil, nil
}

func (f *fakeRefData) ScheduleByProvider(ctx context.Context, provider string) (*model.WorkSchedule, error) {
	for _, ws := range f.schedules {
		if ws.Provider == provider {
			return ws, nil
		}
	}
	return nil, nil
}

type fakeReservationStore struct {
	mu           sync.Mutex
	reservations []*model.Reservation
	createErr    error
	createDelay  time.Duration
}

func (f *fakeReservationStore) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.reservations {
		if res.ID == id {
			return res, nil
		}
	}
	return nil, nil
}

func (f *fakeReservationStore) GetActiveByPhone(ctx context.Context, phone string) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reservation
	for _, res := range f.reservations {
		if res.Client.Phone == phone && res.Active() {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) GetActiveByChat(ctx context.Context, chatID int64) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reservation
	for _, res := range f.reservations {
		if res.Client.ChatID == chatID && res.Active() {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) GetActiveByProvider(ctx context.Context, provider, date string) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reservation
	for _, res := range f.reservations {
		if res.Provider == provider && res.Date == date && res.Active() {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) Create(ctx context.Context, res *model.Reservation) error {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.reservations = append(f.reservations, res)
	return nil
}

func (f *fakeReservationStore) Update(ctx context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.reservations {
		if existing.ID == res.ID {
			f.reservations[i] = res
			return nil
		}
	}
	return errors.New("reservation not found")
}

type fakeWaitlistStore struct {
	mu      sync.Mutex
	entries []*model.WaitlistEntry
}

func (f *fakeWaitlistStore) ListWaiting(ctx context.Context) ([]*model.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.WaitlistEntry
	for _, e := range f.entries {
		if e.Status == model.WaitlistStatusWaiting {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeWaitlistStore) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeWaitlistStore) UpdateStatus(ctx context.Context, entry *model.WaitlistEntry, status model.WaitlistStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.Status = status
	return nil
}

type fakeHoldStore struct {
	mu      sync.Mutex
	holds   map[string]*model.Hold
	saveErr error
}

func newFakeHoldStore() *fakeHoldStore {
	return &fakeHoldStore{holds: make(map[string]*model.Hold)}
}

func (f *fakeHoldStore) Save(ctx context.Context, hold *model.Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeHoldStore) Get(ctx context.Context, holdID string) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holds[holdID], nil
}

func (f *fakeHoldStore) GetBySession(ctx context.Context, sessionID int64) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.SessionID == sessionID {
			return h, nil
		}
	}
	return nil, nil
}

func (f *fakeHoldStore) GetBySlot(ctx context.Context, slot model.Slot) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.Slot.Key() == slot.Key() {
			return h, nil
		}
	}
	return nil, nil
}

func (f *fakeHoldStore) Delete(ctx context.Context, hold *model.Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.holds, hold.ID)
	return nil
}

func (f *fakeHoldStore) ListLive(ctx context.Context) ([]*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Hold
	for _, h := range f.holds {
		if h.Live() {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeEvent struct {
	provider string
	summary  string
	start    time.Time
	end      time.Time
}

// fakeCalendar хранит события в памяти: созданные заглушки сразу
// видны в ListBusy, как в настоящем календаре
type fakeCalendar struct {
	mu        sync.Mutex
	events    map[string]fakeEvent
	deleted   []string
	updated   []string
	nextID    int
	createErr error
	listErr   error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]fakeEvent)}
}

func (f *fakeCalendar) ListBusy(ctx context.Context, provider string, from, to time.Time) ([]google.BusyInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []google.BusyInterval
	for id, ev := range f.events {
		if ev.provider != provider {
			continue
		}
		if model.Overlaps(ev.start, ev.end, from, to) {
			out = append(out, google.BusyInterval{Start: ev.start, End: ev.end, EventID: id})
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, provider, summary string, start, end time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.events[id] = fakeEvent{provider: provider, summary: summary, start: start, end: end}
	return id, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, eventID, summary string, start, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	if !ok {
		return errors.New("event not found")
	}
	ev.summary = summary
	ev.start = start
	ev.end = end
	f.events[eventID] = ev
	f.updated = append(f.updated, eventID)
	return nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) hasEvent(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.events[eventID]
	return ok
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu        sync.Mutex
	messages  []sentMessage
	adminMsgs []string
	failFor   map[int64]bool
}

func (f *fakeNotifier) NotifyClient(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("delivery failed")
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeNotifier) NotifyAdmin(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminMsgs = append(f.adminMsgs, text)
	return nil
}

func (f *fakeNotifier) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

type fakeFreedHandler struct {
	mu    sync.Mutex
	slots []model.Slot
}

func (f *fakeFreedHandler) SlotFreed(ctx context.Context, slot model.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = append(f.slots, slot)
}

func (f *fakeFreedHandler) freed() []model.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Slot, len(f.slots))
	copy(out, f.slots)
	return out
}
