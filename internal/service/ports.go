package service

import (
	"context"
	"time"

	"github.com/salonlime/booking_bot/internal/google"
	"github.com/salonlime/booking_bot/internal/model"
)

// RefData кэш справочников (услуги, графики мастеров)
type RefData interface {
	Services(ctx context.Context) ([]*model.Service, error)
	Schedules(ctx context.Context) ([]*model.WorkSchedule, error)
	ServiceByName(ctx context.Context, category, name string) (*model.Service, error)
	ScheduleByProvider(ctx context.Context, provider string) (*model.WorkSchedule, error)
}

// ReservationStore хранилище записей (лист Reservations)
type ReservationStore interface {
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetActiveByPhone(ctx context.Context, phone string) ([]*model.Reservation, error)
	GetActiveByChat(ctx context.Context, chatID int64) ([]*model.Reservation, error)
	GetActiveByProvider(ctx context.Context, provider, date string) ([]*model.Reservation, error)
	Create(ctx context.Context, res *model.Reservation) error
	Update(ctx context.Context, res *model.Reservation) error
}

// WaitlistStore хранилище листа ожидания
type WaitlistStore interface {
	ListWaiting(ctx context.Context) ([]*model.WaitlistEntry, error)
	Create(ctx context.Context, entry *model.WaitlistEntry) error
	UpdateStatus(ctx context.Context, entry *model.WaitlistEntry, status model.WaitlistStatus) error
}

// HoldStore хранилище живых hold'ов
type HoldStore interface {
	Save(ctx context.Context, hold *model.Hold) error
	Get(ctx context.Context, holdID string) (*model.Hold, error)
	GetBySession(ctx context.Context, sessionID int64) (*model.Hold, error)
	GetBySlot(ctx context.Context, slot model.Slot) (*model.Hold, error)
	Delete(ctx context.Context, hold *model.Hold) error
	ListLive(ctx context.Context) ([]*model.Hold, error)
}

// Calendar внешний календарь: заглушки hold'ов и зеркала записей
type Calendar interface {
	ListBusy(ctx context.Context, provider string, from, to time.Time) ([]google.BusyInterval, error)
	CreateEvent(ctx context.Context, provider, summary string, start, end time.Time) (string, error)
	UpdateEvent(ctx context.Context, eventID, summary string, start, end time.Time) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Notifier доставка сообщений клиентам и админу. Доставка best-effort:
// ошибка логируется вызывающим и не прерывает обработку.
type Notifier interface {
	NotifyClient(ctx context.Context, chatID int64, text string) error
	NotifyAdmin(ctx context.Context, text string) error
}

// SlotFreedHandler вызывается при освобождении слота
// (отмена, истечение hold'а, перенос записи)
type SlotFreedHandler interface {
	SlotFreed(ctx context.Context, slot model.Slot)
}
