package controller

import (
	"errors"
	"fmt"

	"github.com/salonlime/booking_bot/internal/model"
)

// errorMessage возвращает пользовательское сообщение для ошибки ядра
func errorMessage(err error) string {
	var validationErr *model.ValidationError
	var notFoundErr *model.NotFoundError
	var conflictErr *model.ConflictError
	var stateErr *model.StateError
	var upstreamErr *model.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		return "❌ Не получилось разобрать введённые данные, попробуйте ещё раз"
	case errors.As(err, &notFoundErr):
		return "❌ Не найдено. Начните заново: /start"
	case errors.As(err, &conflictErr):
		if conflictErr.Existing != nil {
			return fmt.Sprintf("❌ Конфликт с вашей записью: %s, %s %s (мастер %s)",
				conflictErr.Existing.Service,
				conflictErr.Existing.Date,
				conflictErr.Existing.Time,
				conflictErr.Existing.Provider)
		}
		return "❌ Это время уже занято, выберите другое"
	case errors.As(err, &stateErr):
		return "❌ Слот больше недоступен. Выберите время заново: /start"
	case errors.As(err, &upstreamErr):
		return "❌ Сервис временно недоступен, попробуйте позже"
	default:
		return "❌ Произошла ошибка"
	}
}
