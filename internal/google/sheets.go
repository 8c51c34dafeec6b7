package google

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// SheetsClient построчный доступ к Google-таблице.
// Таблица - единственный источник истины для записей и листа ожидания,
// транзакций и блокировок строк у неё нет.
type SheetsClient struct {
	service       *sheets.Service
	spreadsheetID string
}

// ReadRows читает диапазон листа, например "Reservations!A2:L".
// Возвращает строки как есть; пустые хвостовые ячейки могут отсутствовать.
func (c *SheetsClient) ReadRows(ctx context.Context, readRange string) ([][]interface{}, error) {
	var values [][]interface{}

	err := withRetry(ctx, "sheets.read", func(ctx context.Context) error {
		resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// AppendRow добавляет строку в конец листа
func (c *SheetsClient) AppendRow(ctx context.Context, table string, row []interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	// Диапазон A:A - Sheets сам определит последнюю строку
	rangeData := fmt.Sprintf("%s!A:A", table)

	return withRetry(ctx, "sheets.append", func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, rangeData, valueRange).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
}

// UpdateRow перезаписывает строку листа по её номеру (1-based)
func (c *SheetsClient) UpdateRow(ctx context.Context, table string, rowIndex int, row []interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	rangeData := fmt.Sprintf("%s!A%d", table, rowIndex)

	return withRetry(ctx, "sheets.update", func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rangeData, valueRange).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
}
