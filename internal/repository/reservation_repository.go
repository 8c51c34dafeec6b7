package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/salonlime/booking_bot/internal/model"
	"go.uber.org/zap"
)

// Колонки листа Reservations:
// A:ID B:Name C:Phone D:ChatID E:Category F:Service G:Provider
// H:Date I:Time J:Status K:CreatedAt L:EventID
const reservationsRange = tableReservations + "!A2:L"

type ReservationRepository struct {
	rows   RowsClient
	logger *zap.Logger
}

func NewReservationRepository(rows RowsClient, logger *zap.Logger) *ReservationRepository {
	return &ReservationRepository{rows: rows, logger: logger}
}

// ListAll читает все записи с листа, Row заполняется номером строки
func (r *ReservationRepository) ListAll(ctx context.Context) ([]*model.Reservation, error) {
	values, err := r.rows.ReadRows(ctx, reservationsRange)
	if err != nil {
		return nil, fmt.Errorf("read reservations: %w", err)
	}

	var reservations []*model.Reservation
	for i, row := range values {
		res := r.scanReservation(row)
		if res.ID == "" {
			continue
		}
		res.Row = firstDataRow + i
		reservations = append(reservations, res)
	}

	return reservations, nil
}

// GetByID находит запись по id, nil если не найдена
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	reservations, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, res := range reservations {
		if res.ID == id {
			return res, nil
		}
	}
	return nil, nil
}

// GetActiveByPhone возвращает активные записи клиента по телефону.
// Телефон - ключ клиента: проверка конфликтов не зависит от мастера.
func (r *ReservationRepository) GetActiveByPhone(ctx context.Context, phone string) ([]*model.Reservation, error) {
	reservations, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var active []*model.Reservation
	for _, res := range reservations {
		if res.Active() && res.Client.Phone == phone {
			active = append(active, res)
		}
	}
	return active, nil
}

// GetActiveByChat возвращает активные записи клиента по chat id
func (r *ReservationRepository) GetActiveByChat(ctx context.Context, chatID int64) ([]*model.Reservation, error) {
	reservations, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var active []*model.Reservation
	for _, res := range reservations {
		if res.Active() && res.Client.ChatID == chatID {
			active = append(active, res)
		}
	}
	return active, nil
}

// GetActiveByProvider возвращает активные записи мастера на дату
func (r *ReservationRepository) GetActiveByProvider(ctx context.Context, provider, date string) ([]*model.Reservation, error) {
	reservations, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var active []*model.Reservation
	for _, res := range reservations {
		if res.Active() && res.Provider == provider && res.Date == date {
			active = append(active, res)
		}
	}
	return active, nil
}

// Create добавляет запись на лист
func (r *ReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	if err := r.rows.AppendRow(ctx, tableReservations, marshalReservation(res)); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Update перезаписывает строку записи. Запись должна быть прочитана
// с листа (Row > 0) - записи никогда не удаляются, только мутируются.
func (r *ReservationRepository) Update(ctx context.Context, res *model.Reservation) error {
	if res.Row < firstDataRow {
		return fmt.Errorf("update reservation %s: unknown sheet row", res.ID)
	}
	if err := r.rows.UpdateRow(ctx, tableReservations, res.Row, marshalReservation(res)); err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) scanReservation(row []interface{}) *model.Reservation {
	createdAt, err := time.Parse(time.RFC3339, cell(row, 10))
	if err != nil && cell(row, 10) != "" {
		// Строку могли поправить руками: запись остаётся, метка - нулевая
		r.logger.Warn("Malformed reservation created_at, keeping zero time",
			zap.String("reservation_id", cell(row, 0)),
			zap.String("raw", cell(row, 10)),
		)
	}
	return &model.Reservation{
		ID: cell(row, 0),
		Client: model.Client{
			Name:   cell(row, 1),
			Phone:  cell(row, 2),
			ChatID: cellInt64(row, 3),
		},
		Category:  cell(row, 4),
		Service:   cell(row, 5),
		Provider:  cell(row, 6),
		Date:      cell(row, 7),
		Time:      cell(row, 8),
		Status:    model.ReservationStatus(cell(row, 9)),
		CreatedAt: createdAt,
		EventID:   cell(row, 11),
	}
}

func marshalReservation(res *model.Reservation) []interface{} {
	return []interface{}{
		res.ID,
		res.Client.Name,
		res.Client.Phone,
		res.Client.ChatID,
		res.Category,
		res.Service,
		res.Provider,
		res.Date,
		res.Time,
		string(res.Status),
		res.CreatedAt.Format(time.RFC3339),
		res.EventID,
	}
}
