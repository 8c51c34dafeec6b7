package service

import (
	"context"
	"testing"
	"time"

	"github.com/salonlime/booking_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type holdFixture struct {
	svc      *HoldService
	holds    *fakeHoldStore
	calendar *fakeCalendar
	waitlist *fakeFreedHandler
	notifier *fakeNotifier
	clock    *fakeClock
}

func newHoldFixture(ttl, warningLead time.Duration) *holdFixture {
	f := &holdFixture{
		holds:    newFakeHoldStore(),
		calendar: newFakeCalendar(),
		waitlist: &fakeFreedHandler{},
		notifier: &fakeNotifier{},
		clock:    newFakeClock(time.Date(2026, 9, 1, 9, 0, 0, 0, testLoc)),
	}
	f.svc = NewHoldService(f.holds, f.calendar, f.waitlist, f.notifier, ttl, warningLead, f.clock.Now, zap.NewNop())
	return f
}

func testSlot() model.Slot {
	start := testMonday.Add(12 * time.Hour)
	return model.Slot{Provider: "Анна", Start: start, End: start.Add(time.Hour)}
}

func TestCreateHold(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	assert.Equal(t, model.HoldStatusHeld, hold.Status)
	assert.Equal(t, int64(100), hold.SessionID)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), hold.ExpiresAt)
	assert.NotEmpty(t, hold.EventID)

	// Заглушка в календаре делает слот занятым для всех
	assert.True(t, f.calendar.hasEvent(hold.EventID))

	saved, err := f.holds.Get(ctx, hold.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Live())
}

func TestCreateHoldRemovesSlotFromAvailability(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	refData := &fakeRefData{
		services:  []*model.Service{testService()},
		schedules: []*model.WorkSchedule{mondaySchedule("Анна")},
	}
	availability := NewAvailabilityService(refData, &fakeReservationStore{}, f.holds, f.calendar, 14, testLoc, f.clock.Now, zap.NewNop())
	query := AvailabilityQuery{Category: "hair", Service: "Стрижка", Date: "2026-09-07", Provider: "Анна"}

	before, err := availability.Availability(ctx, query)
	require.NoError(t, err)
	assert.Contains(t, slotKeys(before), testSlot().Key())

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	// Удержанный слот исчезает из выдачи для других сессий
	after, err := availability.Availability(ctx, query)
	require.NoError(t, err)
	assert.NotContains(t, slotKeys(after), testSlot().Key())
	assert.Len(t, after, len(before)-1)

	// После отмены hold'а слот возвращается
	require.NoError(t, f.svc.Cancel(ctx, hold.ID))
	again, err := availability.Availability(ctx, query)
	require.NoError(t, err)
	assert.Contains(t, slotKeys(again), testSlot().Key())
}

func TestCreateHoldRejectsHeldSlot(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	_, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	// Вторая сессия на тот же слот
	_, err = f.svc.CreateHold(ctx, 200, testSlot(), *testService())

	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, conflict.Soft)
}

func TestCreateHoldRejectsCalendarBusy(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	slot := testSlot()
	_, err := f.calendar.CreateEvent(ctx, slot.Provider, "внешняя встреча",
		slot.Start.Add(30*time.Minute), slot.End.Add(30*time.Minute))
	require.NoError(t, err)

	_, err = f.svc.CreateHold(ctx, 100, slot, *testService())

	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreateHoldReplacesPriorSessionHold(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	first, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	other := testSlot()
	other.Start = other.Start.Add(2 * time.Hour)
	other.End = other.End.Add(2 * time.Hour)
	second, err := f.svc.CreateHold(ctx, 100, other, *testService())
	require.NoError(t, err)

	// Первый hold отменён вместе с заглушкой, живым остался второй
	gone, err := f.holds.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.False(t, f.calendar.hasEvent(first.EventID))
	assert.True(t, f.calendar.hasEvent(second.EventID))

	// Освободившийся слот ушёл в лист ожидания
	require.Len(t, f.waitlist.freed(), 1)
	assert.Equal(t, first.Slot.Key(), f.waitlist.freed()[0].Key())
}

func TestCreateHoldRollsBackPlaceholderOnSaveFailure(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	f.holds.saveErr = assert.AnError
	ctx := context.Background()

	_, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.Error(t, err)

	// Заглушка не должна пережить неудавшийся hold
	assert.Len(t, f.calendar.deleted, 1)
}

func TestFinalizeKeepsCalendarEvent(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	finalized, err := f.svc.Finalize(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldStatusConfirmed, finalized.Status)

	// Hold убран из хранилища, заглушку переиспользует запись
	gone, err := f.holds.Get(ctx, hold.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.True(t, f.calendar.hasEvent(hold.EventID))
	assert.Empty(t, f.waitlist.freed())
}

func TestCancelHold(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, hold.ID))

	assert.False(t, f.calendar.hasEvent(hold.EventID))
	require.Len(t, f.waitlist.freed(), 1)

	// Повторная отмена - hold уже не в ожидаемом состоянии
	err = f.svc.Cancel(ctx, hold.ID)
	var stateErr *model.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestHoldExpiresByTimer(t *testing.T) {
	// Короткий TTL с реальными таймерами
	f := newHoldFixture(60*time.Millisecond, 20*time.Millisecond)
	f.svc.now = time.Now
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := f.holds.Get(ctx, hold.ID)
		return err == nil && got == nil
	}, time.Second, 10*time.Millisecond)

	// Заглушка удалена, слот ушёл в лист ожидания, владелец уведомлён
	assert.False(t, f.calendar.hasEvent(hold.EventID))
	require.Len(t, f.waitlist.freed(), 1)
	assert.Equal(t, hold.Slot.Key(), f.waitlist.freed()[0].Key())

	messages := f.notifier.sent()
	require.NotEmpty(t, messages)
	assert.Equal(t, int64(100), messages[len(messages)-1].chatID)
}

func TestHoldWarningBeforeExpiry(t *testing.T) {
	f := newHoldFixture(500*time.Millisecond, 450*time.Millisecond)
	f.svc.now = time.Now
	ctx := context.Background()

	_, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	// Напоминание приходит раньше истечения
	require.Eventually(t, func() bool {
		return len(f.notifier.sent()) >= 1
	}, time.Second, 10*time.Millisecond)

	live, err := f.holds.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestExpireStaleSweep(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	// До истечения сверка ничего не трогает
	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.svc.ExpireStale(ctx))
	live, err := f.holds.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 1)

	// T+16 минут: hold принудительно истекает
	f.clock.Advance(6 * time.Minute)
	require.NoError(t, f.svc.ExpireStale(ctx))

	gone, err := f.holds.Get(ctx, hold.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.False(t, f.calendar.hasEvent(hold.EventID))
	assert.Len(t, f.waitlist.freed(), 1)
}

func TestRecoverAfterRestart(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	// Hold'ы в Redis, но таймеры потеряны: процесс рестартовал
	stale := &model.Hold{
		ID:        "stale",
		SessionID: 100,
		Slot:      testSlot(),
		Status:    model.HoldStatusHeld,
		ExpiresAt: f.clock.Now().Add(-time.Minute),
		EventID:   "evt-stale",
	}
	future := testSlot()
	future.Start = future.Start.Add(3 * time.Hour)
	future.End = future.End.Add(3 * time.Hour)
	alive := &model.Hold{
		ID:        "alive",
		SessionID: 200,
		Slot:      future,
		Status:    model.HoldStatusHeld,
		ExpiresAt: f.clock.Now().Add(10 * time.Minute),
		EventID:   "evt-alive",
	}
	require.NoError(t, f.holds.Save(ctx, stale))
	require.NoError(t, f.holds.Save(ctx, alive))

	require.NoError(t, f.svc.Recover(ctx))

	gone, err := f.holds.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := f.holds.Get(ctx, "alive")
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.True(t, kept.Live())
}

func TestGetLive(t *testing.T) {
	f := newHoldFixture(15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	_, err := f.svc.GetLive(ctx, "missing")
	var stateErr *model.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "missing", stateErr.Got)

	hold, err := f.svc.CreateHold(ctx, 100, testSlot(), *testService())
	require.NoError(t, err)

	got, err := f.svc.GetLive(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, hold.ID, got.ID)
}
