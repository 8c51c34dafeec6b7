package repository

import (
	"context"
	"fmt"

	"github.com/salonlime/booking_bot/internal/model"
)

type ServiceRepository struct {
	rows RowsClient
}

func NewServiceRepository(rows RowsClient) *ServiceRepository {
	return &ServiceRepository{rows: rows}
}

// ListAll читает справочник услуг с листа Services.
// Колонки: Category | Name | Duration | Buffer
func (r *ServiceRepository) ListAll(ctx context.Context) ([]*model.Service, error) {
	values, err := r.rows.ReadRows(ctx, tableServices+"!A2:D")
	if err != nil {
		return nil, fmt.Errorf("read services: %w", err)
	}

	var services []*model.Service
	for _, row := range values {
		svc := &model.Service{
			Category:        cell(row, 0),
			Name:            cell(row, 1),
			DurationMinutes: cellInt(row, 2),
			BufferMinutes:   cellInt(row, 3),
		}
		if svc.Name == "" || svc.DurationMinutes <= 0 {
			continue // пустые и битые строки пропускаем
		}
		services = append(services, svc)
	}

	return services, nil
}
