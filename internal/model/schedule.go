package model

import "time"

// DayHours рабочие часы мастера в конкретный день недели
type DayHours struct {
	Open  string `json:"open"`  // "10:00"
	Close string `json:"close"` // "18:00"
	Off   bool   `json:"off"`   // выходной
}

// WorkSchedule недельный график мастера (лист Schedule)
type WorkSchedule struct {
	Provider string                    `json:"provider"`
	Category string                    `json:"category"`
	Days     map[time.Weekday]DayHours `json:"days"`
}

// DayFor возвращает часы на указанный день недели.
// Отсутствующий день трактуется как выходной.
func (w *WorkSchedule) DayFor(weekday time.Weekday) DayHours {
	if day, ok := w.Days[weekday]; ok {
		return day
	}
	return DayHours{Off: true}
}
