package model

// ProviderAny означает "любой мастер" в предпочтениях листа ожидания
const ProviderAny = "any"

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusNotified  WaitlistStatus = "notified"
	WaitlistStatusFulfilled WaitlistStatus = "fulfilled"
)

// WaitlistEntry заявка клиента на уведомление об освободившемся слоте
// (лист Waitlist). Статус notified терминален: повторно не уведомляем.
type WaitlistEntry struct {
	ID       string         `json:"id"`
	Client   Client         `json:"client"`
	Category string         `json:"category"`
	Provider string         `json:"provider"` // "any" или имя мастера
	Date     string         `json:"date"`     // желаемая дата "2006-01-02"
	Time     string         `json:"time"`     // желаемое время "15:04"
	Priority int            `json:"priority"` // больше = срочнее
	Status   WaitlistStatus `json:"status"`

	Row int `json:"-"` // номер строки на листе
}

// MatchesProvider проверяет совпадение предпочтения с мастером
func (e *WaitlistEntry) MatchesProvider(provider string) bool {
	return e.Provider == ProviderAny || e.Provider == provider
}
