package repository

import (
	"context"
	"fmt"

	"github.com/salonlime/booking_bot/internal/model"
)

// Колонки листа Waitlist:
// A:ID B:Name C:Phone D:ChatID E:Category F:Provider G:Date H:Time I:Priority J:Status
const waitlistRange = tableWaitlist + "!A2:J"

type WaitlistRepository struct {
	rows RowsClient
}

func NewWaitlistRepository(rows RowsClient) *WaitlistRepository {
	return &WaitlistRepository{rows: rows}
}

// ListWaiting возвращает заявки в статусе waiting
func (r *WaitlistRepository) ListWaiting(ctx context.Context) ([]*model.WaitlistEntry, error) {
	values, err := r.rows.ReadRows(ctx, waitlistRange)
	if err != nil {
		return nil, fmt.Errorf("read waitlist: %w", err)
	}

	var entries []*model.WaitlistEntry
	for i, row := range values {
		entry := scanWaitlistEntry(row)
		if entry.ID == "" || entry.Status != model.WaitlistStatusWaiting {
			continue
		}
		entry.Row = firstDataRow + i
		entries = append(entries, entry)
	}

	return entries, nil
}

// Create добавляет заявку на лист
func (r *WaitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	if err := r.rows.AppendRow(ctx, tableWaitlist, marshalWaitlistEntry(entry)); err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// UpdateStatus меняет статус заявки на листе.
// Статус notified терминален: заявка больше никогда не уведомляется.
func (r *WaitlistRepository) UpdateStatus(ctx context.Context, entry *model.WaitlistEntry, status model.WaitlistStatus) error {
	if entry.Row < firstDataRow {
		return fmt.Errorf("update waitlist entry %s: unknown sheet row", entry.ID)
	}
	entry.Status = status
	if err := r.rows.UpdateRow(ctx, tableWaitlist, entry.Row, marshalWaitlistEntry(entry)); err != nil {
		return fmt.Errorf("update waitlist entry: %w", err)
	}
	return nil
}

func scanWaitlistEntry(row []interface{}) *model.WaitlistEntry {
	return &model.WaitlistEntry{
		ID: cell(row, 0),
		Client: model.Client{
			Name:   cell(row, 1),
			Phone:  cell(row, 2),
			ChatID: cellInt64(row, 3),
		},
		Category: cell(row, 4),
		Provider: cell(row, 5),
		Date:     cell(row, 6),
		Time:     cell(row, 7),
		Priority: cellInt(row, 8),
		Status:   model.WaitlistStatus(cell(row, 9)),
	}
}

func marshalWaitlistEntry(entry *model.WaitlistEntry) []interface{} {
	return []interface{}{
		entry.ID,
		entry.Client.Name,
		entry.Client.Phone,
		entry.Client.ChatID,
		entry.Category,
		entry.Provider,
		entry.Date,
		entry.Time,
		entry.Priority,
		string(entry.Status),
	}
}
