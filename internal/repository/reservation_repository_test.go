package repository

import (
	"context"
	"testing"
	"time"

	"github.com/salonlime/booking_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReservationListAll(t *testing.T) {
	rows := &fakeRows{rows: [][]interface{}{
		{"r1", "Иван", "89030000000", "100", "hair", "Стрижка", "Анна", "2026-09-07", "12:00", "confirmed", "2026-09-01T09:00:00Z", "evt-1"},
		{"", "хвост строки без id"},
		{"r2", "Пётр", "89040000000", "200", "nails", "Маникюр", "Борис", "2026-09-08", "15:00", "cancelled_client", "2026-09-02T10:30:00Z", ""},
	}}
	repo := NewReservationRepository(rows, zap.NewNop())

	reservations, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reservations, 2)

	first := reservations[0]
	assert.Equal(t, "r1", first.ID)
	assert.Equal(t, int64(100), first.Client.ChatID)
	assert.Equal(t, model.ReservationStatusConfirmed, first.Status)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, firstDataRow, first.Row)

	// Строка без id пропущена, но нумерация строк листа сохраняется
	assert.Equal(t, firstDataRow+2, reservations[1].Row)
}

func TestReservationMalformedCreatedAtLogged(t *testing.T) {
	// Испорченную руками метку времени нельзя глотать молча:
	// запись остаётся с нулевым временем, а порча попадает в лог
	core, logs := observer.New(zap.WarnLevel)
	rows := &fakeRows{rows: [][]interface{}{
		{"r1", "Иван", "89030000000", "100", "hair", "Стрижка", "Анна", "2026-09-07", "12:00", "confirmed", "вчера", "evt-1"},
	}}
	repo := NewReservationRepository(rows, zap.New(core))

	reservations, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.True(t, reservations[0].CreatedAt.IsZero())

	entries := logs.FilterMessageSnippet("created_at").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].ContextMap()["reservation_id"])
	assert.Equal(t, "вчера", entries[0].ContextMap()["raw"])
}

func TestReservationUpdateRequiresSheetRow(t *testing.T) {
	rows := &fakeRows{}
	repo := NewReservationRepository(rows, zap.NewNop())

	res := &model.Reservation{ID: "r1", Status: model.ReservationStatusConfirmed}
	require.Error(t, repo.Update(context.Background(), res))

	res.Row = firstDataRow
	require.NoError(t, repo.Update(context.Background(), res))
	assert.Contains(t, rows.updated, firstDataRow)
}
