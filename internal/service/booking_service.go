package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salonlime/booking_bot/internal/metrics"
	"github.com/salonlime/booking_bot/internal/model"
	"go.uber.org/zap"
)

var phoneRe = regexp.MustCompile(`^\+?\d{10,15}$`)

// BookingService подтверждение hold'ов в записи, отмены и переносы.
// Здесь же валидатор конфликтов: пересечение по времени с активной
// записью клиента - жёсткий отказ, повтор категории без пересечения -
// мягкий конфликт, который обходится флагом force (только админ).
type BookingService struct {
	reservations ReservationStore
	refData      RefData
	holdSvc      *HoldService
	holds        HoldStore
	waitlist     SlotFreedHandler
	calendar     Calendar
	notifier     Notifier
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

func NewBookingService(
	reservations ReservationStore,
	refData RefData,
	holdSvc *HoldService,
	holds HoldStore,
	waitlist SlotFreedHandler,
	calendar Calendar,
	notifier Notifier,
	loc *time.Location,
	now func() time.Time,
	logger *zap.Logger,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		reservations: reservations,
		refData:      refData,
		holdSvc:      holdSvc,
		holds:        holds,
		waitlist:     waitlist,
		calendar:     calendar,
		notifier:     notifier,
		loc:          loc,
		now:          now,
		logger:       logger,
	}
}

// ConfirmHold превращает живой hold в подтверждённую запись.
// Запись считается созданной только после успешной записи в хранилище;
// заглушка календаря переиспользуется - обновляется её описание.
func (s *BookingService) ConfirmHold(ctx context.Context, holdID string, client model.Client, force bool) (*model.Reservation, error) {
	if err := validateClient(client); err != nil {
		return nil, err
	}

	hold, err := s.holdSvc.GetLive(ctx, holdID)
	if err != nil {
		return nil, err
	}

	err = s.CheckConflicts(ctx, client.Phone, hold.Slot.Start, hold.Slot.End, hold.Service.Category, "", force)
	if err != nil {
		return nil, err
	}

	res := &model.Reservation{
		ID:        uuid.NewString(),
		Client:    client,
		Category:  hold.Service.Category,
		Service:   hold.Service.Name,
		Provider:  hold.Slot.Provider,
		Date:      hold.Slot.Date(),
		Time:      hold.Slot.Clock(),
		Status:    model.ReservationStatusConfirmed,
		CreatedAt: s.now(),
		EventID:   hold.EventID,
	}

	// Запись пишется под мьютексом переходов hold'а: таймер истечения
	// не может освободить слот, пока идёт запись. Истёкший hold -
	// StateError, запись не создаётся, клиент начинает заново.
	_, err = s.holdSvc.FinalizeWith(ctx, holdID, func(ctx context.Context) error {
		return s.reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("%s: %s (%s, %s)", res.Service, res.Client.Name, res.Client.Phone, res.Category)
	if err := s.calendar.UpdateEvent(ctx, res.EventID, summary, hold.Slot.Start, hold.Slot.End); err != nil {
		s.logger.Warn("Failed to update calendar event for reservation",
			zap.String("reservation_id", res.ID),
			zap.Error(err),
		)
	}

	metrics.IncReservationCreated()
	s.logger.Info("Reservation confirmed",
		zap.String("reservation_id", res.ID),
		zap.String("provider", res.Provider),
		zap.String("slot", res.Date+" "+res.Time),
	)

	adminText := fmt.Sprintf("Новая запись: %s, %s %s, %s (%s)",
		res.Service, res.Date, res.Time, res.Client.Name, res.Client.Phone)
	if err := s.notifier.NotifyAdmin(ctx, adminText); err != nil {
		s.logger.Warn("Failed to notify admin about new reservation", zap.Error(err))
	}

	return res, nil
}

// CheckConflicts проверяет слот против активных записей клиента.
// Проверка по телефону и не зависит от мастера. Порядок проверок:
// сначала пересечение (hard), затем повтор категории (soft).
func (s *BookingService) CheckConflicts(ctx context.Context, phone string, start, end time.Time, category, excludeID string, force bool) error {
	existing, err := s.reservations.GetActiveByPhone(ctx, phone)
	if err != nil {
		return err
	}

	for _, res := range existing {
		if res.ID == excludeID {
			continue
		}
		resStart, resEnd, err := res.Interval(s.loc, s.stepFor(ctx, res))
		if err != nil {
			s.logger.Warn("Skipping conflict check for malformed reservation",
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		if model.Overlaps(start, end, resStart, resEnd) {
			return &model.ConflictError{
				Existing: res,
				Reason: fmt.Sprintf("client already has %s at %s %s with %s",
					res.Service, res.Date, res.Time, res.Provider),
			}
		}
	}

	if force {
		return nil
	}
	for _, res := range existing {
		if res.ID == excludeID {
			continue
		}
		if res.Category == category {
			return &model.ConflictError{
				Soft:     true,
				Existing: res,
				Reason: fmt.Sprintf("client already has a %s reservation at %s %s",
					category, res.Date, res.Time),
			}
		}
	}

	return nil
}

// CancelReservation переводит запись в отменённый статус и освобождает
// слот. Запись не удаляется - только переход статуса.
func (s *BookingService) CancelReservation(ctx context.Context, id string, byAdmin bool) error {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res == nil {
		return &model.NotFoundError{Entity: "reservation", Key: id}
	}
	if !res.Active() {
		return &model.StateError{Entity: "reservation", Want: "confirmed", Got: string(res.Status)}
	}

	actor := "client"
	res.Status = model.ReservationStatusCancelledClient
	if byAdmin {
		actor = "admin"
		res.Status = model.ReservationStatusCancelledAdmin
	}

	if err := s.reservations.Update(ctx, res); err != nil {
		return err
	}

	if res.EventID != "" {
		if err := s.calendar.DeleteEvent(ctx, res.EventID); err != nil {
			s.logger.Warn("Failed to delete calendar event for cancelled reservation",
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
		}
	}

	metrics.IncReservationCancelled(actor)
	s.logger.Info("Reservation cancelled",
		zap.String("reservation_id", res.ID),
		zap.String("actor", actor),
	)

	s.freeReservationSlot(ctx, res)
	return nil
}

// RescheduleReservation переносит запись на новый слот.
// Жёсткий конфликт прерывает перенос, запись остаётся нетронутой.
// Старый слот после успешного переноса уходит в лист ожидания.
func (s *BookingService) RescheduleReservation(ctx context.Context, id string, newSlot model.Slot, force bool) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &model.NotFoundError{Entity: "reservation", Key: id}
	}
	if !res.Active() {
		return nil, &model.StateError{Entity: "reservation", Want: "confirmed", Got: string(res.Status)}
	}

	// Пустой мастер - перенос в рамках того же мастера,
	// незаполненный конец интервала достраивается по услуге
	if newSlot.Provider == "" {
		newSlot.Provider = res.Provider
	}
	if newSlot.End.IsZero() {
		newSlot.End = newSlot.Start.Add(s.stepFor(ctx, res))
	}

	// Новый слот не должен быть занят у мастера
	if err := s.checkSlotFree(ctx, newSlot, res); err != nil {
		return nil, err
	}

	// И не должен конфликтовать с другими записями того же клиента
	err = s.CheckConflicts(ctx, res.Client.Phone, newSlot.Start, newSlot.End, res.Category, res.ID, force)
	if err != nil {
		return nil, err
	}

	oldSlot := model.Slot{Provider: res.Provider}
	oldStart, oldEnd, intervalErr := res.Interval(s.loc, s.stepFor(ctx, res))
	if intervalErr == nil {
		oldSlot.Start = oldStart
		oldSlot.End = oldEnd
	}

	res.Provider = newSlot.Provider
	res.Date = newSlot.Date()
	res.Time = newSlot.Clock()
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	if res.EventID != "" {
		summary := fmt.Sprintf("%s: %s (%s, %s)", res.Service, res.Client.Name, res.Client.Phone, res.Category)
		if err := s.calendar.UpdateEvent(ctx, res.EventID, summary, newSlot.Start, newSlot.End); err != nil {
			s.logger.Warn("Failed to move calendar event",
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Reservation rescheduled",
		zap.String("reservation_id", res.ID),
		zap.String("new_slot", newSlot.Key()),
	)

	if intervalErr == nil {
		s.waitlist.SlotFreed(ctx, oldSlot)
	}

	text := fmt.Sprintf("Ваша запись перенесена: %s, %s %s, мастер %s.",
		res.Service, res.Date, res.Time, res.Provider)
	if err := s.notifier.NotifyClient(ctx, res.Client.ChatID, text); err != nil {
		s.logger.Warn("Failed to notify client about reschedule", zap.Error(err))
	}

	return res, nil
}

// CompleteReservation помечает состоявшуюся запись завершённой
func (s *BookingService) CompleteReservation(ctx context.Context, id string) error {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res == nil {
		return &model.NotFoundError{Entity: "reservation", Key: id}
	}
	if !res.Active() {
		return &model.StateError{Entity: "reservation", Want: "confirmed", Got: string(res.Status)}
	}

	res.Status = model.ReservationStatusCompleted
	return s.reservations.Update(ctx, res)
}

// GetActiveByPhone активные записи клиента (для меню "мои записи")
func (s *BookingService) GetActiveByPhone(ctx context.Context, phone string) ([]*model.Reservation, error) {
	return s.reservations.GetActiveByPhone(ctx, phone)
}

// GetActiveByChat активные записи клиента по chat id
func (s *BookingService) GetActiveByChat(ctx context.Context, chatID int64) ([]*model.Reservation, error) {
	return s.reservations.GetActiveByChat(ctx, chatID)
}

// checkSlotFree проверяет, что слот свободен у мастера: нет чужого
// hold'а, пересечения с другой активной записью или занятости календаря
func (s *BookingService) checkSlotFree(ctx context.Context, slot model.Slot, self *model.Reservation) error {
	held, err := s.holds.GetBySlot(ctx, slot)
	if err != nil {
		return err
	}
	if held != nil && held.Live() {
		return &model.ConflictError{Reason: "slot is held by another session"}
	}

	others, err := s.reservations.GetActiveByProvider(ctx, slot.Provider, slot.Date())
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID == self.ID {
			continue
		}
		otherStart, otherEnd, err := other.Interval(s.loc, s.stepFor(ctx, other))
		if err != nil {
			continue
		}
		if slot.Overlaps(otherStart, otherEnd) {
			return &model.ConflictError{
				Existing: other,
				Reason:   fmt.Sprintf("provider %s is booked at %s %s", slot.Provider, other.Date, other.Time),
			}
		}
	}

	busy, err := s.calendar.ListBusy(ctx, slot.Provider, slot.Start, slot.End)
	if err != nil {
		return err
	}
	for _, b := range busy {
		if b.EventID == self.EventID {
			continue // собственное событие записи
		}
		if slot.Overlaps(b.Start, b.End) {
			return &model.ConflictError{Reason: "slot is busy in the calendar"}
		}
	}

	return nil
}

// freeReservationSlot отдаёт слот отменённой записи листу ожидания
func (s *BookingService) freeReservationSlot(ctx context.Context, res *model.Reservation) {
	start, end, err := res.Interval(s.loc, s.stepFor(ctx, res))
	if err != nil {
		s.logger.Warn("Cannot free slot of reservation with malformed date/time",
			zap.String("reservation_id", res.ID),
			zap.Error(err),
		)
		return
	}
	s.waitlist.SlotFreed(ctx, model.Slot{Provider: res.Provider, Start: start, End: end})
}

// stepFor длительность записи по справочнику, час если услуга исчезла
func (s *BookingService) stepFor(ctx context.Context, res *model.Reservation) time.Duration {
	svc, err := s.refData.ServiceByName(ctx, res.Category, res.Service)
	if err != nil || svc == nil {
		return time.Hour
	}
	return svc.Step()
}

// validateClient проверяет контактные данные перед подтверждением
func validateClient(client model.Client) error {
	if strings.TrimSpace(client.Name) == "" {
		return &model.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !phoneRe.MatchString(client.Phone) {
		return &model.ValidationError{Field: "phone", Reason: "expected 10-15 digits"}
	}
	return nil
}
