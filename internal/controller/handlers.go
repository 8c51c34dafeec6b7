package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/salonlime/booking_bot/internal/controller/commands"
	"github.com/salonlime/booking_bot/internal/controller/state"
	"github.com/salonlime/booking_bot/internal/model"
	"go.uber.org/zap"
)

// handleStart начало диалога записи: выбор категории
func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	c.states.Clear(chatID)

	services, err := c.refData.Services(ctx)
	if err != nil {
		c.logger.Error("Failed to load services", zap.Error(err))
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	seen := make(map[string]bool)
	var categories []string
	for _, svc := range services {
		if seen[svc.Category] {
			continue
		}
		seen[svc.Category] = true
		categories = append(categories, svc.Category)
	}

	if len(categories) == 0 {
		c.sendMessage(ctx, chatID, "Пока нет доступных услуг, загляните позже.", nil)
		return
	}

	c.states.Update(chatID, func(s *state.Session) { s.Categories = categories })

	var rows [][]models.InlineKeyboardButton
	for i, category := range categories {
		cmd := commands.Command{Kind: commands.KindPickCategory, Index: i}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: category, CallbackData: cmd.Encode()},
		})
	}

	c.sendMessage(ctx, chatID, "Выберите категорию услуг:",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// handleMyBookings список активных записей клиента с кнопками отмены
func (c *BotController) handleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	reservations, err := c.bookings.GetActiveByChat(ctx, chatID)
	if err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}
	if len(reservations) == 0 {
		c.sendMessage(ctx, chatID, "У вас нет активных записей. Записаться: /start", nil)
		return
	}

	var rows [][]models.InlineKeyboardButton
	var sb strings.Builder
	sb.WriteString("Ваши записи:\n")
	for i, res := range reservations {
		fmt.Fprintf(&sb, "%d. %s — %s %s, мастер %s\n", i+1, res.Service, res.Date, res.Time, res.Provider)
		cmd := commands.Command{Kind: commands.KindCancelRes, ID: res.ID}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("Отменить %d", i+1), CallbackData: cmd.Encode()},
		})
	}

	c.sendMessage(ctx, chatID, sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// handleCancel прерывает диалог, освобождая удержанный слот
func (c *BotController) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	session := c.states.Get(chatID)

	if session.HoldID != "" {
		if err := c.holds.Cancel(ctx, session.HoldID); err != nil {
			var stateErr *model.StateError
			if !errors.As(err, &stateErr) {
				c.logger.Warn("Failed to cancel hold on /cancel", zap.Error(err))
			}
		}
	}
	c.states.Clear(chatID)
	c.sendMessage(ctx, chatID, "Диалог прерван. Записаться заново: /start", nil)
}

// handleTextMessage шаги диалога, ожидающие текстового ввода
func (c *BotController) handleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	session := c.states.Get(chatID)

	switch session.Step {
	case state.StepName:
		if text == "" {
			c.sendMessage(ctx, chatID, "Введите имя:", nil)
			return
		}
		c.states.Update(chatID, func(s *state.Session) {
			s.Name = text
			s.Step = state.StepPhone
		})
		c.sendMessage(ctx, chatID, "Введите телефон (например, 89030000000):", nil)

	case state.StepPhone:
		c.states.Update(chatID, func(s *state.Session) { s.Phone = text })
		c.confirmHold(ctx, chatID, false)

	case state.StepWaitTime:
		c.joinWaitlist(ctx, chatID, text)

	default:
		// Вне диалога подсказываем меню
		c.sendMessage(ctx, chatID, "Записаться: /start, мои записи: /mybookings", nil)
	}
}

// confirmHold подтверждает удержанный слот собранными контактами
func (c *BotController) confirmHold(ctx context.Context, chatID int64, force bool) {
	session := c.states.Get(chatID)
	if session.HoldID == "" {
		c.sendMessage(ctx, chatID, "Нет удержанного слота. Начните заново: /start", nil)
		return
	}

	client := model.Client{Name: session.Name, Phone: session.Phone, ChatID: chatID}
	res, err := c.bookings.ConfirmHold(ctx, session.HoldID, client, force)
	if err != nil {
		c.handleConfirmError(ctx, chatID, session, err)
		return
	}

	c.states.Clear(chatID)
	c.sendMessage(ctx, chatID, fmt.Sprintf(
		"✅ Вы записаны!\n%s — %s %s, мастер %s.\nОтменить запись можно в /mybookings.",
		res.Service, res.Date, res.Time, res.Provider), nil)
}

// handleConfirmError разбирает отказ подтверждения по типу ошибки
func (c *BotController) handleConfirmError(ctx context.Context, chatID int64, session state.Session, err error) {
	var validationErr *model.ValidationError
	var conflictErr *model.ConflictError
	var upstreamErr *model.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		// Локальное восстановление: переспрашиваем то же поле
		if validationErr.Field == "name" {
			c.states.Update(chatID, func(s *state.Session) { s.Step = state.StepName })
			c.sendMessage(ctx, chatID, "Имя не должно быть пустым. Введите имя:", nil)
		} else {
			c.states.Update(chatID, func(s *state.Session) { s.Step = state.StepPhone })
			c.sendMessage(ctx, chatID, "Телефон должен содержать 10-15 цифр. Введите телефон:", nil)
		}

	case errors.As(err, &conflictErr) && conflictErr.Soft:
		// Мягкий конфликт: повтор категории требует переподтверждения
		confirm := commands.Command{Kind: commands.KindConfirmRepeat, ID: session.HoldID}
		cancel := commands.Command{Kind: commands.KindCancelHold, ID: session.HoldID}
		markup := &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Записаться всё равно", CallbackData: confirm.Encode()}},
			{{Text: "Отменить", CallbackData: cancel.Encode()}},
		}}
		c.sendMessage(ctx, chatID, errorMessage(err)+"\nЗаписаться ещё раз в этой категории?", markup)

	case errors.As(err, &upstreamErr):
		c.logger.Error("Upstream failure on confirm", zap.Error(err))
		if adminErr := c.notifier.NotifyAdmin(ctx, "Хранилище недоступно: "+err.Error()); adminErr != nil {
			c.logger.Warn("Failed to notify admin about upstream failure", zap.Error(adminErr))
		}
		c.sendMessage(ctx, chatID, errorMessage(err), nil)

	default:
		// Жёсткий конфликт или потерянное состояние: диалог начинается заново
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		if session.HoldID != "" {
			if cancelErr := c.holds.Cancel(ctx, session.HoldID); cancelErr != nil {
				var stateErr *model.StateError
				if !errors.As(cancelErr, &stateErr) {
					c.logger.Warn("Failed to cancel hold after hard reject", zap.Error(cancelErr))
				}
			}
		}
		c.states.Clear(chatID)
	}
}

// joinWaitlist ставит клиента в лист ожидания на желаемое время
func (c *BotController) joinWaitlist(ctx context.Context, chatID int64, text string) {
	session := c.states.Get(chatID)

	client := model.Client{Name: session.Name, Phone: session.Phone, ChatID: chatID}
	_, err := c.waitlist.Join(ctx, client, session.Category, session.Provider, session.Date, text, 1)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			c.sendMessage(ctx, chatID, "Введите время в формате 15:00:", nil)
			return
		}
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	c.states.Clear(chatID)
	c.sendMessage(ctx, chatID, "Вы в листе ожидания. Сообщим, если время освободится.", nil)
}

// ==== Команды администратора ====

// handleReschedule перенос записи: /reschedule <id> <дата> <время> [мастер] [-f]
func (c *BotController) handleReschedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !c.isAdmin(chatID) {
		return
	}

	args := strings.Fields(update.Message.Text)[1:]
	force := false
	if len(args) > 0 && args[len(args)-1] == "-f" {
		force = true
		args = args[:len(args)-1]
	}
	if len(args) < 3 {
		c.sendMessage(ctx, chatID, "Формат: /reschedule <id> <2006-01-02> <15:04> [мастер] [-f]", nil)
		return
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", args[1]+" "+args[2], c.loc)
	if err != nil {
		c.sendMessage(ctx, chatID, "Не получилось разобрать дату/время", nil)
		return
	}

	newSlot := model.Slot{Start: start}
	if len(args) > 3 {
		newSlot.Provider = args[3]
	}

	res, err := c.bookings.RescheduleReservation(ctx, args[0], newSlot, force)
	if err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}
	c.sendMessage(ctx, chatID, fmt.Sprintf("Запись перенесена: %s %s, мастер %s", res.Date, res.Time, res.Provider), nil)
}

// handleAdminCancel отмена записи админом: /cancelbooking <id>
func (c *BotController) handleAdminCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !c.isAdmin(chatID) {
		return
	}

	args := strings.Fields(update.Message.Text)[1:]
	if len(args) != 1 {
		c.sendMessage(ctx, chatID, "Формат: /cancelbooking <id>", nil)
		return
	}

	if err := c.bookings.CancelReservation(ctx, args[0], true); err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}
	c.sendMessage(ctx, chatID, "Запись отменена", nil)
}

// handleComplete пометка записи завершённой: /complete <id>
func (c *BotController) handleComplete(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !c.isAdmin(chatID) {
		return
	}

	args := strings.Fields(update.Message.Text)[1:]
	if len(args) != 1 {
		c.sendMessage(ctx, chatID, "Формат: /complete <id>", nil)
		return
	}

	if err := c.bookings.CompleteReservation(ctx, args[0]); err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}
	c.sendMessage(ctx, chatID, "Запись помечена завершённой", nil)
}

func (c *BotController) isAdmin(chatID int64) bool {
	return c.adminChatID != 0 && chatID == c.adminChatID
}
