package google

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	retryAttempts = 3
	retryBase     = 500 * time.Millisecond
)

// Clients обёртка над Google API: таблица как хранилище строк
// и календарь для заглушек hold'ов и зеркал записей.
type Clients struct {
	sheets   *sheets.Service
	calendar *calendar.Service
}

// NewClients создаёт клиентов Sheets и Calendar по JSON сервисного аккаунта
func NewClients(ctx context.Context, credentialsFile string) (*Clients, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	// Настраиваем JWT конфиг с доступом к таблицам и календарю
	jwtConfig, err := google.JWTConfigFromJSON(b, sheets.SpreadsheetsScope, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	httpClient := jwtConfig.Client(ctx)

	sheetsSrv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	calendarSrv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &Clients{sheets: sheetsSrv, calendar: calendarSrv}, nil
}

// Sheets возвращает клиент хранилища строк
func (c *Clients) Sheets(spreadsheetID string) *SheetsClient {
	return &SheetsClient{service: c.sheets, spreadsheetID: spreadsheetID}
}

// Calendar возвращает клиент календаря
func (c *Clients) Calendar(calendarID string, loc *time.Location) *CalendarClient {
	return &CalendarClient{service: c.calendar, calendarID: calendarID, loc: loc}
}
