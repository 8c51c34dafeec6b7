package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/salonlime/booking_bot/internal/metrics"
	"github.com/salonlime/booking_bot/internal/model"
	"go.uber.org/zap"
)

// WaitlistService подбирает кандидатов на освободившийся слот.
// Ранжирование: приоритет по убыванию, затем близость желаемого
// времени. Уведомляются первые K кандидатов, статус notified
// терминален - повторных уведомлений заявка не получает.
type WaitlistService struct {
	waitlist    WaitlistStore
	notifier    Notifier
	maxTimeDiff time.Duration
	notifyLimit int
	loc         *time.Location
	logger      *zap.Logger
}

func NewWaitlistService(
	waitlist WaitlistStore,
	notifier Notifier,
	maxTimeDiff time.Duration,
	notifyLimit int,
	loc *time.Location,
	logger *zap.Logger,
) *WaitlistService {
	if notifyLimit < 1 {
		notifyLimit = 1
	}
	return &WaitlistService{
		waitlist:    waitlist,
		notifier:    notifier,
		maxTimeDiff: maxTimeDiff,
		notifyLimit: notifyLimit,
		loc:         loc,
		logger:      logger,
	}
}

type waitlistCandidate struct {
	entry *model.WaitlistEntry
	diff  time.Duration // отклонение желаемого времени от слота
}

// SlotFreed вызывается при любом освобождении слота: отмена записи,
// истечение или отмена hold'а, перенос. Ошибки здесь только логируются:
// освобождение слота уже состоялось и не может быть отменено.
func (s *WaitlistService) SlotFreed(ctx context.Context, slot model.Slot) {
	entries, err := s.waitlist.ListWaiting(ctx)
	if err != nil {
		s.logger.Error("Failed to read waitlist for freed slot",
			zap.String("slot", slot.Key()),
			zap.Error(err),
		)
		return
	}

	candidates := s.match(entries, slot)
	if len(candidates) == 0 {
		return
	}

	notified := 0
	for _, cand := range candidates {
		if notified >= s.notifyLimit {
			break
		}

		text := fmt.Sprintf("Освободилось время: %s %s, мастер %s. Успейте записаться!",
			slot.Date(), slot.Clock(), slot.Provider)
		if err := s.notifier.NotifyClient(ctx, cand.entry.Client.ChatID, text); err != nil {
			// Недоставленное уведомление не блокирует остальных кандидатов
			s.logger.Warn("Failed to notify waitlist candidate",
				zap.String("entry_id", cand.entry.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.waitlist.UpdateStatus(ctx, cand.entry, model.WaitlistStatusNotified); err != nil {
			s.logger.Error("Failed to mark waitlist entry notified",
				zap.String("entry_id", cand.entry.ID),
				zap.Error(err),
			)
		}
		metrics.IncWaitlistNotified()
		notified++

		s.logger.Info("Waitlist candidate notified",
			zap.String("entry_id", cand.entry.ID),
			zap.String("slot", slot.Key()),
			zap.Int("priority", cand.entry.Priority),
		)
	}
}

// Join ставит клиента в лист ожидания
func (s *WaitlistService) Join(ctx context.Context, client model.Client, category, provider, date, timeOfDay string, priority int) (*model.WaitlistEntry, error) {
	if _, err := time.ParseInLocation("2006-01-02", date, s.loc); err != nil {
		return nil, &model.ValidationError{Field: "date", Reason: fmt.Sprintf("bad date %q", date)}
	}
	if _, err := time.ParseInLocation("15:04", timeOfDay, s.loc); err != nil {
		return nil, &model.ValidationError{Field: "time", Reason: fmt.Sprintf("bad time %q", timeOfDay)}
	}
	if provider == "" {
		provider = model.ProviderAny
	}

	entry := &model.WaitlistEntry{
		ID:       uuid.NewString(),
		Client:   client,
		Category: category,
		Provider: provider,
		Date:     date,
		Time:     timeOfDay,
		Priority: priority,
		Status:   model.WaitlistStatusWaiting,
	}
	if err := s.waitlist.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Waitlist entry created",
		zap.String("entry_id", entry.ID),
		zap.String("date", date),
		zap.String("provider", provider),
	)
	return entry, nil
}

// match отбирает и ранжирует кандидатов на слот: совпадение даты,
// предпочтения по мастеру и отклонение времени не больше допуска
func (s *WaitlistService) match(entries []*model.WaitlistEntry, slot model.Slot) []waitlistCandidate {
	var candidates []waitlistCandidate
	for _, entry := range entries {
		if entry.Date != slot.Date() || !entry.MatchesProvider(slot.Provider) {
			continue
		}
		diff, err := timeOfDayDiff(entry.Time, slot.Clock())
		if err != nil {
			s.logger.Warn("Skipping waitlist entry with malformed time",
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
			continue
		}
		if diff > s.maxTimeDiff {
			continue
		}
		candidates = append(candidates, waitlistCandidate{entry: entry, diff: diff})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].entry.Priority != candidates[j].entry.Priority {
			return candidates[i].entry.Priority > candidates[j].entry.Priority
		}
		return candidates[i].diff < candidates[j].diff
	})

	return candidates
}

// timeOfDayDiff абсолютная разница двух времён "15:04"
func timeOfDayDiff(a, b string) (time.Duration, error) {
	ta, err := time.Parse("15:04", a)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", a, err)
	}
	tb, err := time.Parse("15:04", b)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", b, err)
	}
	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return diff, nil
}
