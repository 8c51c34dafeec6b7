package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

// BusyInterval занятый интервал календаря мастера
type BusyInterval struct {
	Start   time.Time
	End     time.Time
	EventID string
}

// CalendarClient события календаря: заглушки hold'ов и зеркала записей.
// Мастер хранится в private extended property события, чтобы занятость
// фильтровалась по мастеру одним запросом.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

// ListBusy возвращает занятые интервалы мастера в диапазоне [from, to)
func (c *CalendarClient) ListBusy(ctx context.Context, provider string, from, to time.Time) ([]BusyInterval, error) {
	var events *calendar.Events

	err := withRetry(ctx, "calendar.list", func(ctx context.Context) error {
		resp, err := c.service.Events.List(c.calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			PrivateExtendedProperty(fmt.Sprintf("provider=%s", provider)).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		events = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	var busy []BusyInterval
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue // событие на весь день или битые даты - пропускаем
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}
		busy = append(busy, BusyInterval{
			Start:   start.In(c.loc),
			End:     end.In(c.loc),
			EventID: item.Id,
		})
	}

	return busy, nil
}

// CreateEvent создаёт событие для мастера и возвращает его id
func (c *CalendarClient) CreateEvent(ctx context.Context, provider, summary string, start, end time.Time) (string, error) {
	event := &calendar.Event{
		Summary: summary,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"provider": provider},
		},
	}

	var eventID string
	err := withRetry(ctx, "calendar.create", func(ctx context.Context) error {
		created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		eventID = created.Id
		return nil
	})
	if err != nil {
		return "", err
	}

	return eventID, nil
}

// UpdateEvent меняет заголовок и/или интервал существующего события
func (c *CalendarClient) UpdateEvent(ctx context.Context, eventID, summary string, start, end time.Time) error {
	patch := &calendar.Event{
		Summary: summary,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
	}

	return withRetry(ctx, "calendar.update", func(ctx context.Context) error {
		_, err := c.service.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
		return err
	})
}

// DeleteEvent удаляет событие (заглушку hold'а или отменённую запись)
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return withRetry(ctx, "calendar.delete", func(ctx context.Context) error {
		return c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	})
}
