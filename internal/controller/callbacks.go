package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/salonlime/booking_bot/internal/controller/commands"
	"github.com/salonlime/booking_bot/internal/controller/state"
	"github.com/salonlime/booking_bot/internal/model"
	"github.com/salonlime/booking_bot/internal/service"
	"go.uber.org/zap"
)

// Сколько кандидатов показывать одним экраном
const maxSlotButtons = 8

const staleButtonMessage = "Кнопка устарела. Начните заново: /start"

// handleCallbackQuery разбирает типизированную команду кнопки
// и диспатчит по закрытому набору видов
func (c *BotController) handleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callback.ID})

	chatID := callback.From.ID
	if callback.Message.Message != nil {
		chatID = callback.Message.Message.Chat.ID
	}

	cmd, err := commands.Decode(callback.Data)
	if err != nil {
		c.logger.Warn("Invalid callback command",
			zap.String("data", callback.Data),
			zap.Error(err),
		)
		return
	}

	switch cmd.Kind {
	case commands.KindPickCategory:
		c.onPickCategory(ctx, chatID, cmd)
	case commands.KindPickService:
		c.onPickService(ctx, chatID, cmd)
	case commands.KindPickProvider:
		c.onPickProvider(ctx, chatID, cmd)
	case commands.KindPickDate:
		c.onPickDate(ctx, chatID, cmd)
	case commands.KindPickSlot:
		c.onPickSlot(ctx, chatID, cmd)
	case commands.KindConfirmRepeat:
		c.confirmHold(ctx, chatID, true)
	case commands.KindCancelHold:
		c.onCancelHold(ctx, chatID, cmd)
	case commands.KindCancelRes:
		c.onCancelReservation(ctx, chatID, cmd)
	case commands.KindJoinWaitlist:
		c.onJoinWaitlist(ctx, chatID)
	}
}

// pickOption вариант по индексу из списка, сохранённого в сессии.
// Индекс за границами - кнопка из устаревшего или чужого экрана.
func pickOption(options []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(options) {
		return "", false
	}
	return options[idx], true
}

// onPickCategory выбор категории: показываем услуги
func (c *BotController) onPickCategory(ctx context.Context, chatID int64, cmd commands.Command) {
	session := c.states.Get(chatID)
	category, ok := pickOption(session.Categories, cmd.Index)
	if !ok {
		c.sendMessage(ctx, chatID, staleButtonMessage, nil)
		return
	}

	services, err := c.refData.Services(ctx)
	if err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	var names []string
	var rows [][]models.InlineKeyboardButton
	for _, svc := range services {
		if svc.Category != category {
			continue
		}
		next := commands.Command{Kind: commands.KindPickService, Index: len(names)}
		names = append(names, svc.Name)
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("%s (%d мин)", svc.Name, svc.DurationMinutes), CallbackData: next.Encode()},
		})
	}
	if len(rows) == 0 {
		c.sendMessage(ctx, chatID, "В этой категории пока нет услуг.", nil)
		return
	}

	c.states.Update(chatID, func(s *state.Session) {
		s.Category = category
		s.ServiceNames = names
	})
	c.sendMessage(ctx, chatID, "Выберите услугу:", &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// onPickService выбор услуги: показываем мастеров категории
func (c *BotController) onPickService(ctx context.Context, chatID int64, cmd commands.Command) {
	session := c.states.Get(chatID)
	name, ok := pickOption(session.ServiceNames, cmd.Index)
	if !ok {
		c.sendMessage(ctx, chatID, staleButtonMessage, nil)
		return
	}

	schedules, err := c.refData.Schedules(ctx)
	if err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	// Нулевой вариант - "любой мастер"
	providers := []string{model.ProviderAny}
	rows := [][]models.InlineKeyboardButton{
		{{Text: "Любой мастер", CallbackData: commands.Command{Kind: commands.KindPickProvider, Index: 0}.Encode()}},
	}
	for _, ws := range schedules {
		if ws.Category != session.Category {
			continue
		}
		next := commands.Command{Kind: commands.KindPickProvider, Index: len(providers)}
		providers = append(providers, ws.Provider)
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: ws.Provider, CallbackData: next.Encode()},
		})
	}

	c.states.Update(chatID, func(s *state.Session) {
		s.Service = name
		s.Providers = providers
	})
	c.sendMessage(ctx, chatID, "Выберите мастера:", &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// onPickProvider выбор мастера. Конкретный мастер - выбор даты,
// "любой" - сразу список ближайших кандидатов по всем мастерам.
func (c *BotController) onPickProvider(ctx context.Context, chatID int64, cmd commands.Command) {
	session := c.states.Get(chatID)
	provider, ok := pickOption(session.Providers, cmd.Index)
	if !ok {
		c.sendMessage(ctx, chatID, staleButtonMessage, nil)
		return
	}
	c.states.Update(chatID, func(s *state.Session) { s.Provider = provider })

	if provider != model.ProviderAny {
		today := time.Now().In(c.loc)
		dates := make([]string, 0, 7)
		var rows [][]models.InlineKeyboardButton
		for i := 0; i < 7; i++ {
			date := today.AddDate(0, 0, i).Format("2006-01-02")
			next := commands.Command{Kind: commands.KindPickDate, Index: i}
			dates = append(dates, date)
			rows = append(rows, []models.InlineKeyboardButton{
				{Text: date, CallbackData: next.Encode()},
			})
		}
		c.states.Update(chatID, func(s *state.Session) { s.Dates = dates })
		c.sendMessage(ctx, chatID, "Выберите дату:", &models.InlineKeyboardMarkup{InlineKeyboard: rows})
		return
	}

	slots, err := c.availability.Availability(ctx, service.AvailabilityQuery{
		Category: session.Category,
		Service:  session.Service,
		Provider: model.ProviderAny,
		Order:    service.OrderByDate,
	})
	if err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	c.sendSlotButtons(ctx, chatID, slots, false)
}

// onPickDate выбор даты у конкретного мастера: точные свободные слоты
func (c *BotController) onPickDate(ctx context.Context, chatID int64, cmd commands.Command) {
	session := c.states.Get(chatID)
	date, ok := pickOption(session.Dates, cmd.Index)
	if !ok {
		c.sendMessage(ctx, chatID, staleButtonMessage, nil)
		return
	}
	c.states.Update(chatID, func(s *state.Session) { s.Date = date })

	slots, err := c.availability.Availability(ctx, service.AvailabilityQuery{
		Category: session.Category,
		Service:  session.Service,
		Date:     date,
		Provider: session.Provider,
		Order:    service.OrderByDate,
	})
	if err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	c.sendSlotButtons(ctx, chatID, slots, true)
}

// sendSlotButtons показывает кандидатов или предлагает лист ожидания.
// Показанные слоты запоминаются в сессии - кнопки ссылаются на них
// по индексу.
func (c *BotController) sendSlotButtons(ctx context.Context, chatID int64, slots []model.Slot, offerWaitlist bool) {
	if len(slots) == 0 {
		text := "Свободных слотов нет."
		var markup models.ReplyMarkup
		if offerWaitlist {
			wait := commands.Command{Kind: commands.KindJoinWaitlist}
			markup = &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "Встать в лист ожидания", CallbackData: wait.Encode()}},
			}}
			text += " Могу сообщить, если время освободится."
		}
		c.sendMessage(ctx, chatID, text, markup)
		return
	}

	if len(slots) > maxSlotButtons {
		slots = slots[:maxSlotButtons]
	}
	c.states.Update(chatID, func(s *state.Session) { s.Slots = slots })

	var rows [][]models.InlineKeyboardButton
	for i, slot := range slots {
		next := commands.Command{Kind: commands.KindPickSlot, Index: i}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("%s %s — %s", slot.Date(), slot.Clock(), slot.Provider), CallbackData: next.Encode()},
		})
	}

	c.sendMessage(ctx, chatID, "Выберите время:", &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// onPickSlot удержание выбранного слота и запрос контактов
func (c *BotController) onPickSlot(ctx context.Context, chatID int64, cmd commands.Command) {
	session := c.states.Get(chatID)
	if cmd.Index < 0 || cmd.Index >= len(session.Slots) {
		c.sendMessage(ctx, chatID, staleButtonMessage, nil)
		return
	}
	slot := session.Slots[cmd.Index]

	svc, err := c.refData.ServiceByName(ctx, session.Category, session.Service)
	if err != nil || svc == nil {
		c.sendMessage(ctx, chatID, "Услуга не найдена. Начните заново: /start", nil)
		return
	}

	hold, err := c.holds.CreateHold(ctx, chatID, slot, *svc)
	if err != nil {
		var conflictErr *model.ConflictError
		if errors.As(err, &conflictErr) {
			c.sendMessage(ctx, chatID, "Увы, это время только что заняли. Выберите другое.", nil)
			return
		}
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}

	c.states.Update(chatID, func(s *state.Session) {
		s.HoldID = hold.ID
		s.Provider = slot.Provider
		s.Date = slot.Date()
		s.Step = state.StepName
	})

	cancel := commands.Command{Kind: commands.KindCancelHold, ID: hold.ID}
	markup := &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "Отменить", CallbackData: cancel.Encode()}},
	}}
	c.sendMessage(ctx, chatID, fmt.Sprintf(
		"Слот %s %s удержан за вами до %s.\nВведите ваше имя:",
		slot.Date(), slot.Clock(), hold.ExpiresAt.In(c.loc).Format("15:04")), markup)
}

// onCancelHold явный отказ от удержанного слота
func (c *BotController) onCancelHold(ctx context.Context, chatID int64, cmd commands.Command) {
	if err := c.holds.Cancel(ctx, cmd.ID); err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		c.states.Clear(chatID)
		return
	}
	c.states.Clear(chatID)
	c.sendMessage(ctx, chatID, "Слот освобождён. Записаться заново: /start", nil)
}

// onCancelReservation отмена записи клиентом
func (c *BotController) onCancelReservation(ctx context.Context, chatID int64, cmd commands.Command) {
	if err := c.bookings.CancelReservation(ctx, cmd.ID, false); err != nil {
		c.sendMessage(ctx, chatID, errorMessage(err), nil)
		return
	}
	c.sendMessage(ctx, chatID, "Запись отменена.", nil)
}

// onJoinWaitlist запрос желаемого времени для листа ожидания.
// Мастер и дата уже выбраны - лежат в сессии.
func (c *BotController) onJoinWaitlist(ctx context.Context, chatID int64) {
	session := c.states.Get(chatID)
	if session.Date == "" {
		c.sendMessage(ctx, chatID, staleButtonMessage, nil)
		return
	}
	c.states.Update(chatID, func(s *state.Session) { s.Step = state.StepWaitTime })
	c.sendMessage(ctx, chatID, "На какое время вы хотели бы попасть? (например, 15:00)", nil)
}
