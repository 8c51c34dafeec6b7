package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salonlime/booking_bot/internal/model"
)

// Колонки дней недели на листе Schedule идут с понедельника
var scheduleWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

type ScheduleRepository struct {
	rows RowsClient
}

func NewScheduleRepository(rows RowsClient) *ScheduleRepository {
	return &ScheduleRepository{rows: rows}
}

// ListAll читает графики мастеров с листа Schedule.
// Колонки: Provider | Category | Mon | Tue | Wed | Thu | Fri | Sat | Sun,
// ячейка дня - "10:00-18:00" или "off"/пусто для выходного.
func (r *ScheduleRepository) ListAll(ctx context.Context) ([]*model.WorkSchedule, error) {
	values, err := r.rows.ReadRows(ctx, tableSchedule+"!A2:I")
	if err != nil {
		return nil, fmt.Errorf("read schedules: %w", err)
	}

	var schedules []*model.WorkSchedule
	for _, row := range values {
		provider := cell(row, 0)
		if provider == "" {
			continue
		}

		ws := &model.WorkSchedule{
			Provider: provider,
			Category: cell(row, 1),
			Days:     make(map[time.Weekday]model.DayHours, len(scheduleWeekdays)),
		}
		for i, weekday := range scheduleWeekdays {
			ws.Days[weekday] = parseDayHours(cell(row, 2+i))
		}
		schedules = append(schedules, ws)
	}

	return schedules, nil
}

// parseDayHours разбирает ячейку графика. Нечитаемое значение не делает
// день выходным здесь - строки уходят дальше как есть, resolver при
// разборе часов закроет такой день сам (fail closed).
func parseDayHours(raw string) model.DayHours {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "off") || strings.EqualFold(raw, "вых") {
		return model.DayHours{Off: true}
	}

	open, close_, found := strings.Cut(raw, "-")
	if !found {
		// Оставляем сырое значение в Open: день не выходной,
		// но часы не разберутся и слоты по нему не построятся
		return model.DayHours{Open: raw}
	}

	return model.DayHours{
		Open:  strings.TrimSpace(open),
		Close: strings.TrimSpace(close_),
	}
}
