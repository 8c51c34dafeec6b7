package model

import "fmt"

// ValidationError некорректный пользовательский ввод (дата, телефон, имя).
// Обрабатывается локально повторным запросом, наружу не пробрасывается.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError неизвестная услуга, мастер или запись
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// ConflictError конфликт записи. Soft=true - повтор той же категории без
// пересечения по времени: требует явного переподтверждения, админ может
// обойти флагом force. Soft=false - пересечение по времени, жёсткий отказ.
type ConflictError struct {
	Soft     bool
	Existing *Reservation // конфликтующая запись, если есть
	Reason   string
}

func (e *ConflictError) Error() string {
	kind := "hard"
	if e.Soft {
		kind = "soft"
	}
	return fmt.Sprintf("booking conflict (%s): %s", kind, e.Reason)
}

// StateError операция над hold/записью не в ожидаемом состоянии:
// уже истёк, подтверждён или отменён. Клиенту показывается
// "слот больше недоступен", выбор начинается заново.
type StateError struct {
	Entity string
	Want   string
	Got    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is not %s (current: %s)", e.Entity, e.Want, e.Got)
}

// UpstreamError хранилище или календарь недоступны после всех ретраев.
// Операция прерывается без частичного состояния.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
