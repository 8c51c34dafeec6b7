package model

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusConfirmed       ReservationStatus = "confirmed"
	ReservationStatusCancelledClient ReservationStatus = "cancelled_by_client"
	ReservationStatusCancelledAdmin  ReservationStatus = "cancelled_by_admin"
	ReservationStatusCompleted       ReservationStatus = "completed"
)

// Client контактные данные клиента
type Client struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	ChatID int64  `json:"chat_id"`
}

// Reservation подтверждённая запись (лист Reservations).
// Никогда не удаляется физически - только переход статуса.
type Reservation struct {
	ID        string            `json:"id"`
	Client    Client            `json:"client"`
	Category  string            `json:"category"`
	Service   string            `json:"service"`
	Provider  string            `json:"provider"`
	Date      string            `json:"date"` // "2006-01-02"
	Time      string            `json:"time"` // "15:04"
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	EventID   string            `json:"event_id"` // событие в календаре

	// Row номер строки на листе (1-based), 0 пока не записана.
	// Не из данных - нужен для updateRow.
	Row int `json:"-"`
}

// Active true для записей, занимающих слот
func (r *Reservation) Active() bool {
	return r.Status == ReservationStatusConfirmed
}

// Interval возвращает занимаемый интервал. Длительность берётся из
// справочника услуг; при нечитаемых дате/времени возвращается ошибка.
func (r *Reservation) Interval(loc *time.Location, step time.Duration) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse reservation interval: %w", err)
	}
	return start, start.Add(step), nil
}
