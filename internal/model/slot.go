package model

import (
	"fmt"
	"time"
)

// Slot вычисляемый интервал (дата, время, мастер) длиной duration+buffer.
// Никогда не персистится - всегда вычисляется заново.
type Slot struct {
	Provider string    `json:"provider"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Key уникальный ключ слота для сравнения и индексации
func (s Slot) Key() string {
	return fmt.Sprintf("%s|%s", s.Provider, s.Start.Format("2006-01-02 15:04"))
}

// Date дата слота в формате листа
func (s Slot) Date() string {
	return s.Start.Format("2006-01-02")
}

// Clock время начала слота в формате листа
func (s Slot) Clock() string {
	return s.Start.Format("15:04")
}

// Overlaps проверяет пересечение интервалов: max(s1,s2) < min(e1,e2)
func (s Slot) Overlaps(start, end time.Time) bool {
	return Overlaps(s.Start, s.End, start, end)
}

// Overlaps общее правило пересечения полуоткрытых интервалов [s1,e1) и [s2,e2)
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	maxStart := s1
	if s2.After(maxStart) {
		maxStart = s2
	}
	minEnd := e1
	if e2.Before(minEnd) {
		minEnd = e2
	}
	return maxStart.Before(minEnd)
}
