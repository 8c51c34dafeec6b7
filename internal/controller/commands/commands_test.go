package commands

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Command{
		{Kind: KindPickCategory, Index: 0},
		{Kind: KindPickService, Index: 3},
		{Kind: KindPickProvider, Index: 0},
		{Kind: KindPickProvider, Index: 12},
		{Kind: KindPickDate, Index: 6},
		{Kind: KindPickSlot, Index: 7},
		{Kind: KindConfirmRepeat, ID: "hold-1"},
		{Kind: KindCancelHold, ID: "hold-1"},
		{Kind: KindCancelRes, ID: "res-1"},
		{Kind: KindJoinWaitlist},
	}

	for _, cmd := range cases {
		t.Run(cmd.Encode(), func(t *testing.T) {
			decoded, err := Decode(cmd.Encode())
			require.NoError(t, err)
			assert.Equal(t, cmd, decoded)
		})
	}
}

func TestEncodeFitsCallbackDataLimit(t *testing.T) {
	// Telegram ограничивает callback data 64 байтами. Кнопки выбора
	// несут индекс, кнопки отмены - uuid: данные не зависят от длины
	// названий услуг и мастеров.
	cases := []Command{
		{Kind: KindPickService, Index: 9999},
		{Kind: KindPickSlot, Index: 9999},
		{Kind: KindConfirmRepeat, ID: uuid.NewString()},
		{Kind: KindCancelHold, ID: uuid.NewString()},
		{Kind: KindCancelRes, ID: uuid.NewString()},
		{Kind: KindJoinWaitlist},
	}
	for _, cmd := range cases {
		assert.LessOrEqual(t, len(cmd.Encode()), 64, "kind %s", cmd.Kind)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode("nonsense;x")
	require.ErrorIs(t, err, ErrInvalidCommand)

	_, err = Decode("")
	require.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDecodeBadArgs(t *testing.T) {
	cases := []string{
		"cat",
		"cat;0;1",
		"cat;Стрижка",
		"svc;-1",
		"slot;12:00",
		"chold",
		"chold;",
		"wait;any",
	}
	for _, data := range cases {
		t.Run(data, func(t *testing.T) {
			_, err := Decode(data)
			require.ErrorIs(t, err, ErrInvalidCommand)
		})
	}
}
