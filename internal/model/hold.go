package model

import "time"

type HoldStatus string

const (
	HoldStatusHeld      HoldStatus = "held"      // Слот удержан, ждём данные клиента
	HoldStatusConfirmed HoldStatus = "confirmed" // Превращён в запись
	HoldStatusExpired   HoldStatus = "expired"   // TTL истёк
	HoldStatusCancelled HoldStatus = "cancelled" // Отменён явно
)

// Hold временное эксклюзивное удержание слота на время ввода контактов.
// Живёт в Redis до подтверждения/истечения TTL.
type Hold struct {
	ID        string     `json:"id"`
	SessionID int64      `json:"session_id"` // telegram chat id сессии
	Slot      Slot       `json:"slot"`
	Service   Service    `json:"service"`
	Status    HoldStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	EventID   string     `json:"event_id"` // id события-заглушки в календаре
}

// Live true пока hold удерживает слот
func (h *Hold) Live() bool {
	return h.Status == HoldStatusHeld
}
