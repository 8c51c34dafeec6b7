package model

import "time"

// Service описывает услугу из справочника (лист Services)
type Service struct {
	Category        string `json:"category"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	BufferMinutes   int    `json:"buffer_minutes"` // перерыв после услуги
}

// Step возвращает шаг сетки слотов: длительность + буфер
func (s *Service) Step() time.Duration {
	return time.Duration(s.DurationMinutes+s.BufferMinutes) * time.Minute
}
