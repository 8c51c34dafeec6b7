package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salonlime/booking_bot/internal/metrics"
	"github.com/salonlime/booking_bot/internal/model"
	"go.uber.org/zap"
)

// Таймаут фоновых операций, запускаемых таймерами
const callbackTimeout = 30 * time.Second

type holdTimers struct {
	warning *time.Timer
	expiry  *time.Timer
}

// HoldService машина состояний временного удержания слота:
// NONE -> HELD -> {CONFIRMED, EXPIRED, CANCELLED}.
//
// Заглушка в календаре - единственный межсессионный арбитр: повторная
// попытка занять уже удержанный слот отсекается при записи, а не
// принимается молча вторым hold'ом. Все переходы сериализованы одним
// мьютексом, коллбэки таймеров перед действием перечитывают состояние.
type HoldService struct {
	holds       HoldStore
	calendar    Calendar
	waitlist    SlotFreedHandler
	notifier    Notifier
	ttl         time.Duration
	warningLead time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu     sync.Mutex
	timers map[string]*holdTimers
}

func NewHoldService(
	holds HoldStore,
	calendar Calendar,
	waitlist SlotFreedHandler,
	notifier Notifier,
	ttl time.Duration,
	warningLead time.Duration,
	now func() time.Time,
	logger *zap.Logger,
) *HoldService {
	if now == nil {
		now = time.Now
	}
	return &HoldService{
		holds:       holds,
		calendar:    calendar,
		waitlist:    waitlist,
		notifier:    notifier,
		ttl:         ttl,
		warningLead: warningLead,
		now:         now,
		logger:      logger,
		timers:      make(map[string]*holdTimers),
	}
}

// CreateHold эксклюзивно удерживает слот на время ввода контактов.
// У сессии может быть только один живой hold: предыдущий отменяется.
// Слот с живым hold'ом или занятый в календаре - ConflictError.
func (s *HoldService) CreateHold(ctx context.Context, sessionID int64, slot model.Slot, svc model.Service) (*model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.holds.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prior != nil && prior.Live() {
		if err := s.release(ctx, prior, model.HoldStatusCancelled, false); err != nil {
			return nil, fmt.Errorf("cancel prior hold: %w", err)
		}
	}

	// Проверка на момент записи: чужой hold на этот слот - отказ сразу
	taken, err := s.holds.GetBySlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	if taken != nil && taken.Live() {
		return nil, &model.ConflictError{Reason: "slot is already held by another session"}
	}

	busy, err := s.calendar.ListBusy(ctx, slot.Provider, slot.Start, slot.End)
	if err != nil {
		return nil, err
	}
	for _, b := range busy {
		if slot.Overlaps(b.Start, b.End) {
			return nil, &model.ConflictError{Reason: "slot is busy in the calendar"}
		}
	}

	// Пишем заглушку: с этого момента слот занят для всех остальных
	summary := fmt.Sprintf("HOLD: %s", svc.Name)
	eventID, err := s.calendar.CreateEvent(ctx, slot.Provider, summary, slot.Start, slot.End)
	if err != nil {
		return nil, err
	}

	hold := &model.Hold{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Slot:      slot,
		Service:   svc,
		Status:    model.HoldStatusHeld,
		CreatedAt: s.now(),
		ExpiresAt: s.now().Add(s.ttl),
		EventID:   eventID,
	}

	if err := s.holds.Save(ctx, hold); err != nil {
		// Hold не состоялся - заглушка не должна остаться
		if delErr := s.calendar.DeleteEvent(ctx, eventID); delErr != nil {
			s.logger.Error("Failed to roll back hold placeholder", zap.Error(delErr))
		}
		return nil, err
	}

	s.armTimers(hold)
	metrics.IncHoldCreated()

	s.logger.Info("Hold created",
		zap.String("hold_id", hold.ID),
		zap.Int64("session_id", sessionID),
		zap.String("slot", slot.Key()),
		zap.Time("expires_at", hold.ExpiresAt),
	)

	return hold, nil
}

// GetLive возвращает живой hold или StateError
func (s *HoldService) GetLive(ctx context.Context, holdID string) (*model.Hold, error) {
	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, &model.StateError{Entity: "hold", Want: "held", Got: "missing"}
	}
	if !hold.Live() {
		return nil, &model.StateError{Entity: "hold", Want: "held", Got: string(hold.Status)}
	}
	return hold, nil
}

// Finalize переводит hold в CONFIRMED: таймеры снимаются, hold
// убирается из Redis. Заглушка календаря остаётся - её переиспользует
// запись.
func (s *HoldService) Finalize(ctx context.Context, holdID string) (*model.Hold, error) {
	return s.FinalizeWith(ctx, holdID, nil)
}

// FinalizeWith выполняет persist под мьютексом переходов и только затем
// переводит hold в CONFIRMED. Пока persist пишет запись в хранилище,
// таймер истечения ждёт на мьютексе и не может освободить hold; истёкший
// до захвата мьютекса hold - StateError, persist не вызывается.
func (s *HoldService) FinalizeWith(ctx context.Context, holdID string, persist func(ctx context.Context) error) (*model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, err := s.GetLive(ctx, holdID)
	if err != nil {
		return nil, err
	}

	if persist != nil {
		if err := persist(ctx); err != nil {
			// Запись не состоялась - hold остаётся живым
			return nil, err
		}
	}

	s.cancelTimers(hold.ID)
	hold.Status = model.HoldStatusConfirmed
	if err := s.holds.Delete(ctx, hold); err != nil {
		if persist == nil {
			return nil, err
		}
		// Запись уже в хранилище: гасим hold перезаписью статуса, чтобы
		// сверочный проход не освободил заглушку подтверждённой записи
		if saveErr := s.holds.Save(ctx, hold); saveErr != nil {
			s.logger.Error("Failed to retire hold after reservation persisted",
				zap.String("hold_id", hold.ID),
				zap.Error(saveErr),
			)
		}
	}

	metrics.IncHoldFinished("confirmed")
	return hold, nil
}

// Cancel явная отмена hold'а клиентом или валидатором конфликтов
func (s *HoldService) Cancel(ctx context.Context, holdID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, err := s.GetLive(ctx, holdID)
	if err != nil {
		return err
	}
	return s.release(ctx, hold, model.HoldStatusCancelled, false)
}

// ExpireStale сверочный проход: принудительно истекают hold'ы, чьи
// таймеры не сработали (например, после рестарта). Ограничивает
// максимальную задержку зависшего hold'а интервалом прохода.
func (s *HoldService) ExpireStale(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, err := s.holds.ListLive(ctx)
	if err != nil {
		return err
	}

	for _, hold := range live {
		if hold.ExpiresAt.After(s.now()) {
			continue
		}
		if err := s.release(ctx, hold, model.HoldStatusExpired, true); err != nil {
			s.logger.Error("Failed to force-expire stale hold",
				zap.String("hold_id", hold.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Recover вызывается при старте: истёкшие hold'ы освобождаются,
// живым перевзводятся таймеры, потерянные при рестарте
func (s *HoldService) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, err := s.holds.ListLive(ctx)
	if err != nil {
		return err
	}

	recovered := 0
	for _, hold := range live {
		if !hold.ExpiresAt.After(s.now()) {
			if err := s.release(ctx, hold, model.HoldStatusExpired, true); err != nil {
				s.logger.Error("Failed to expire hold on recovery",
					zap.String("hold_id", hold.ID),
					zap.Error(err),
				)
			}
			continue
		}
		if _, ok := s.timers[hold.ID]; !ok {
			s.armTimers(hold)
			recovered++
		}
	}

	if recovered > 0 {
		s.logger.Info("Recovered hold timers after restart", zap.Int("count", recovered))
	}
	return nil
}

// release общий выход из HELD: таймеры снимаются, заглушка удаляется,
// лист ожидания получает освободившийся слот. Вызывается под мьютексом.
func (s *HoldService) release(ctx context.Context, hold *model.Hold, status model.HoldStatus, notifyOwner bool) error {
	s.cancelTimers(hold.ID)

	if err := s.calendar.DeleteEvent(ctx, hold.EventID); err != nil {
		// Заглушка могла быть уже удалена руками - не фатально
		s.logger.Warn("Failed to delete hold placeholder",
			zap.String("hold_id", hold.ID),
			zap.String("event_id", hold.EventID),
			zap.Error(err),
		)
	}

	hold.Status = status
	if err := s.holds.Delete(ctx, hold); err != nil {
		return err
	}

	metrics.IncHoldFinished(string(status))
	s.logger.Info("Hold released",
		zap.String("hold_id", hold.ID),
		zap.String("status", string(status)),
		zap.String("slot", hold.Slot.Key()),
	)

	if notifyOwner {
		text := fmt.Sprintf("Время на подтверждение вышло, слот %s %s освобождён. Выберите время заново.",
			hold.Slot.Date(), hold.Slot.Clock())
		if err := s.notifier.NotifyClient(ctx, hold.SessionID, text); err != nil {
			s.logger.Warn("Failed to notify hold owner", zap.Error(err))
		}
	}

	s.waitlist.SlotFreed(ctx, hold.Slot)
	return nil
}

// armTimers взводит таймеры напоминания и истечения. Вызывается под
// мьютексом. Оба коллбэка перечитывают hold и молчат, если он уже
// финализирован - сработавший таймер чужого состояния это no-op.
func (s *HoldService) armTimers(hold *model.Hold) {
	holdID := hold.ID
	untilExpiry := hold.ExpiresAt.Sub(s.now())
	untilWarning := untilExpiry - s.warningLead

	timers := &holdTimers{
		expiry: time.AfterFunc(untilExpiry, func() { s.onExpiry(holdID) }),
	}
	if untilWarning > 0 {
		timers.warning = time.AfterFunc(untilWarning, func() { s.onWarning(holdID) })
	}
	s.timers[holdID] = timers
}

// cancelTimers снимает оба таймера hold'а. Вызывается под мьютексом.
func (s *HoldService) cancelTimers(holdID string) {
	if timers, ok := s.timers[holdID]; ok {
		if timers.warning != nil {
			timers.warning.Stop()
		}
		timers.expiry.Stop()
		delete(s.timers, holdID)
	}
}

func (s *HoldService) onExpiry(holdID string) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		s.logger.Error("Expiry timer: failed to load hold", zap.String("hold_id", holdID), zap.Error(err))
		return
	}
	if hold == nil || !hold.Live() {
		return // hold уже финализирован
	}

	if err := s.release(ctx, hold, model.HoldStatusExpired, true); err != nil {
		s.logger.Error("Failed to expire hold", zap.String("hold_id", holdID), zap.Error(err))
	}
}

func (s *HoldService) onWarning(holdID string) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		s.logger.Error("Warning timer: failed to load hold", zap.String("hold_id", holdID), zap.Error(err))
		return
	}
	if hold == nil || !hold.Live() {
		return
	}

	left := hold.ExpiresAt.Sub(s.now()).Round(time.Minute)
	text := fmt.Sprintf("Слот %s %s ещё удержан за вами, осталось %s. Подтвердите запись, иначе слот освободится.",
		hold.Slot.Date(), hold.Slot.Clock(), left)
	if err := s.notifier.NotifyClient(ctx, hold.SessionID, text); err != nil {
		s.logger.Warn("Failed to send hold warning", zap.Error(err))
	}
}
