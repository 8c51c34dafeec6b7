package repository

import (
	"context"
	"fmt"
	"strconv"
)

// Имена листов таблицы
const (
	tableServices     = "Services"
	tableSchedule     = "Schedule"
	tableReservations = "Reservations"
	tableWaitlist     = "Waitlist"
)

// Первая строка данных на листе (строка 1 - заголовки)
const firstDataRow = 2

// RowsClient построчный доступ к табличному хранилищу
type RowsClient interface {
	ReadRows(ctx context.Context, readRange string) ([][]interface{}, error)
	AppendRow(ctx context.Context, table string, row []interface{}) error
	UpdateRow(ctx context.Context, table string, rowIndex int, row []interface{}) error
}

// cell возвращает ячейку строки как строку, "" если ячейки нет
func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprintf("%v", row[idx])
}

// cellInt возвращает ячейку как int, 0 если пусто или не число
func cellInt(row []interface{}, idx int) int {
	v := cell(row, idx)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// cellInt64 возвращает ячейку как int64, 0 если пусто или не число
func cellInt64(row []interface{}, idx int) int64 {
	v := cell(row, idx)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
