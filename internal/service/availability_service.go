package service

import (
	"context"
	"fmt"
	"time"

	"github.com/salonlime/booking_bot/internal/model"
	"go.uber.org/zap"
)

// Order порядок перечисления свободных слотов.
// Меняет только порядок обхода: для фиксированной пары (дата, мастер)
// набор слотов одинаков в обоих режимах.
type Order int

const (
	OrderByDate     Order = iota // сначала даты, внутри - мастера
	OrderByProvider              // сначала мастера, внутри - даты
)

// AvailabilityQuery запрос свободных слотов
type AvailabilityQuery struct {
	Category string
	Service  string
	Date     string // "2006-01-02", пусто = весь горизонт
	Provider string // имя мастера, пусто или "any" = любой
	Order    Order
}

// AvailabilityService вычисляет свободные слоты: сетка из графика
// мастера и шага услуги минус занятые интервалы.
type AvailabilityService struct {
	refData      RefData
	reservations ReservationStore
	holds        HoldStore
	calendar     Calendar
	horizonDays  int
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

func NewAvailabilityService(
	refData RefData,
	reservations ReservationStore,
	holds HoldStore,
	calendar Calendar,
	horizonDays int,
	loc *time.Location,
	now func() time.Time,
	logger *zap.Logger,
) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		refData:      refData,
		reservations: reservations,
		holds:        holds,
		calendar:     calendar,
		horizonDays:  horizonDays,
		loc:          loc,
		now:          now,
		logger:       logger,
	}
}

// Availability возвращает свободные слоты по запросу.
// Если мастер зафиксирован - сетка минус занятость. Если мастер "любой" -
// грубое перечисление по парам (дата, мастер) подходящей категории без
// проверки занятости: точный фильтр применяется после фиксации пары.
// Пустой результат - это пустой список, слоты никогда не выдумываются.
func (s *AvailabilityService) Availability(ctx context.Context, q AvailabilityQuery) ([]model.Slot, error) {
	svc, err := s.refData.ServiceByName(ctx, q.Category, q.Service)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, &model.NotFoundError{Entity: "service", Key: q.Category + "/" + q.Service}
	}

	dates, err := s.queryDates(q.Date)
	if err != nil {
		return nil, err
	}

	if q.Provider != "" && q.Provider != model.ProviderAny {
		schedule, err := s.refData.ScheduleByProvider(ctx, q.Provider)
		if err != nil {
			return nil, err
		}
		if schedule == nil {
			return nil, &model.NotFoundError{Entity: "provider", Key: q.Provider}
		}

		var slots []model.Slot
		for _, date := range dates {
			free, err := s.freeSlots(ctx, schedule, date, svc.Step())
			if err != nil {
				return nil, err
			}
			slots = append(slots, free...)
		}
		return slots, nil
	}

	// Мастер не выбран: предлагаем кандидатов по категории и рабочим
	// дням без точной проверки занятости
	schedules, err := s.refData.Schedules(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*model.WorkSchedule
	for _, ws := range schedules {
		if ws.Category == q.Category {
			matched = append(matched, ws)
		}
	}

	var slots []model.Slot
	if q.Order == OrderByProvider {
		for _, ws := range matched {
			for _, date := range dates {
				slots = append(slots, s.resolveDay(ws, date, svc.Step())...)
			}
		}
	} else {
		for _, date := range dates {
			for _, ws := range matched {
				slots = append(slots, s.resolveDay(ws, date, svc.Step())...)
			}
		}
	}
	return slots, nil
}

// SlotTaken проверяет занятость конкретного слота: живой hold,
// активная запись или внешняя занятость календаря
func (s *AvailabilityService) SlotTaken(ctx context.Context, slot model.Slot) (bool, error) {
	held, err := s.holds.GetBySlot(ctx, slot)
	if err != nil {
		return false, err
	}
	if held != nil && held.Live() {
		return true, nil
	}

	busy, err := s.busyIntervals(ctx, slot.Provider, slot.Date())
	if err != nil {
		return false, err
	}
	for _, b := range busy {
		if slot.Overlaps(b[0], b[1]) {
			return true, nil
		}
	}
	return false, nil
}

// resolveDay строит сетку кандидатов на дату: от open до close-шаг
// с шагом duration+buffer. Выходной или нечитаемые часы - пустой день:
// закрываемся, логируем, не роняя перебор остальных мастеров и дат.
func (s *AvailabilityService) resolveDay(schedule *model.WorkSchedule, date time.Time, step time.Duration) []model.Slot {
	day := schedule.DayFor(date.Weekday())
	if day.Off {
		return nil
	}

	open, err := time.ParseInLocation("15:04", day.Open, s.loc)
	if err != nil {
		s.logger.Warn("Malformed open hours, treating day as unavailable",
			zap.String("provider", schedule.Provider),
			zap.String("raw", day.Open),
		)
		return nil
	}
	close_, err := time.ParseInLocation("15:04", day.Close, s.loc)
	if err != nil {
		s.logger.Warn("Malformed close hours, treating day as unavailable",
			zap.String("provider", schedule.Provider),
			zap.String("raw", day.Close),
		)
		return nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), open.Hour(), open.Minute(), 0, 0, s.loc)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day(), close_.Hour(), close_.Minute(), 0, 0, s.loc)

	var slots []model.Slot
	for start := dayStart; !start.Add(step).After(dayEnd); start = start.Add(step) {
		if start.Before(s.now()) {
			continue // прошедшие слоты не предлагаем
		}
		slots = append(slots, model.Slot{
			Provider: schedule.Provider,
			Start:    start,
			End:      start.Add(step),
		})
	}
	return slots
}

// freeSlots сетка кандидатов минус занятые интервалы мастера
func (s *AvailabilityService) freeSlots(ctx context.Context, schedule *model.WorkSchedule, date time.Time, step time.Duration) ([]model.Slot, error) {
	candidates := s.resolveDay(schedule, date, step)
	if len(candidates) == 0 {
		return nil, nil
	}

	busy, err := s.busyIntervals(ctx, schedule.Provider, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	liveHolds, err := s.holds.ListLive(ctx)
	if err != nil {
		return nil, err
	}

	var free []model.Slot
	for _, slot := range candidates {
		taken := false
		for _, b := range busy {
			if slot.Overlaps(b[0], b[1]) {
				taken = true
				break
			}
		}
		if !taken {
			for _, h := range liveHolds {
				if h.Slot.Provider == slot.Provider && slot.Overlaps(h.Slot.Start, h.Slot.End) {
					taken = true
					break
				}
			}
		}
		if !taken {
			free = append(free, slot)
		}
	}
	return free, nil
}

// busyIntervals собирает занятость мастера на дату: активные записи
// из хранилища и внешняя занятость календаря
func (s *AvailabilityService) busyIntervals(ctx context.Context, provider, date string) ([][2]time.Time, error) {
	var busy [][2]time.Time

	reservations, err := s.reservations.GetActiveByProvider(ctx, provider, date)
	if err != nil {
		return nil, err
	}
	for _, res := range reservations {
		step, err := s.reservationStep(ctx, res)
		if err != nil {
			return nil, err
		}
		start, end, err := res.Interval(s.loc, step)
		if err != nil {
			s.logger.Warn("Skipping reservation with malformed date/time",
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		busy = append(busy, [2]time.Time{start, end})
	}

	dayStart, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return nil, &model.ValidationError{Field: "date", Reason: err.Error()}
	}
	intervals, err := s.calendar.ListBusy(ctx, provider, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	for _, iv := range intervals {
		busy = append(busy, [2]time.Time{iv.Start, iv.End})
	}

	return busy, nil
}

// reservationStep длительность записи по справочнику услуг.
// Услуга могла исчезнуть из справочника - тогда берём час.
func (s *AvailabilityService) reservationStep(ctx context.Context, res *model.Reservation) (time.Duration, error) {
	svc, err := s.refData.ServiceByName(ctx, res.Category, res.Service)
	if err != nil {
		return 0, err
	}
	if svc == nil {
		return time.Hour, nil
	}
	return svc.Step(), nil
}

// queryDates даты для перебора: одна указанная или весь горизонт
func (s *AvailabilityService) queryDates(date string) ([]time.Time, error) {
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return nil, &model.ValidationError{Field: "date", Reason: fmt.Sprintf("bad date %q", date)}
		}
		return []time.Time{d}, nil
	}

	today := s.now().In(s.loc)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)

	dates := make([]time.Time, 0, s.horizonDays)
	for i := 0; i < s.horizonDays; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	return dates, nil
}
