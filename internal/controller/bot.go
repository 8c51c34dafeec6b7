package controller

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/salonlime/booking_bot/internal/controller/state"
	"github.com/salonlime/booking_bot/internal/service"
	"go.uber.org/zap"
)

type BotController struct {
	bot          *bot.Bot
	availability *service.AvailabilityService
	holds        *service.HoldService
	bookings     *service.BookingService
	waitlist     *service.WaitlistService
	refData      service.RefData
	notifier     service.Notifier
	states       *state.Manager
	adminChatID  int64
	loc          *time.Location
	logger       *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	availability *service.AvailabilityService,
	holds *service.HoldService,
	bookings *service.BookingService,
	waitlist *service.WaitlistService,
	refData service.RefData,
	notifier service.Notifier,
	adminChatID int64,
	loc *time.Location,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:          botInstance,
		availability: availability,
		holds:        holds,
		bookings:     bookings,
		waitlist:     waitlist,
		refData:      refData,
		notifier:     notifier,
		states:       state.NewManager(),
		adminChatID:  adminChatID,
		loc:          loc,
		logger:       logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mybookings", bot.MatchTypeExact, c.handleMyBookings)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handleCancel)

	// Команды администратора
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reschedule", bot.MatchTypePrefix, c.handleReschedule)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancelbooking", bot.MatchTypePrefix, c.handleAdminCancel)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/complete", bot.MatchTypePrefix, c.handleComplete)

	// Текстовые сообщения - шаги диалога
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handleTextMessage)

	// Нажатия inline-кнопок
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "Записаться на услугу"},
		{Command: "mybookings", Description: "Мои записи"},
		{Command: "cancel", Description: "Прервать текущий диалог"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands})
	return err
}

// sendMessage отправляет сообщение, логируя ошибку доставки
func (c *BotController) sendMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		c.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
