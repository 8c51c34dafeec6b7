// Package commands кодек типизированных команд inline-кнопок.
// Закрытый набор видов команд: диспетчер матчится по виду, а не
// разбирает произвольные строки по префиксу.
//
// Кнопки выбора несут индекс варианта из списка, сохранённого в
// сессии, а не сам вариант: callback data у Telegram ограничена
// 64 байтами, и названия услуг и мастеров (кириллица - два байта на
// букву, возможен и разделитель внутри) в неё не помещаются.
package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindPickCategory  Kind = "cat"   // выбрана категория услуг
	KindPickService   Kind = "svc"   // выбрана услуга
	KindPickProvider  Kind = "prov"  // выбран мастер (или "любой")
	KindPickDate      Kind = "date"  // выбрана дата
	KindPickSlot      Kind = "slot"  // выбран конкретный слот
	KindConfirmRepeat Kind = "again" // клиент переподтвердил повтор категории
	KindCancelHold    Kind = "chold" // отказ от удержанного слота
	KindCancelRes     Kind = "cres"  // отмена записи клиентом
	KindJoinWaitlist  Kind = "wait"  // встать в лист ожидания
)

var ErrInvalidCommand = errors.New("invalid callback command")

const sep = ";"

// Command команда кнопки со структурными полями.
// Для кнопок выбора заполнен Index - позиция варианта в списке,
// показанном клиенту и сохранённом в его сессии.
type Command struct {
	Kind  Kind
	Index int    // позиция варианта в сессии
	ID    string // hold id или reservation id
}

// Encode сериализует команду в callback data кнопки
func (c Command) Encode() string {
	switch c.Kind {
	case KindPickCategory, KindPickService, KindPickProvider, KindPickDate, KindPickSlot:
		return string(c.Kind) + sep + strconv.Itoa(c.Index)
	case KindConfirmRepeat, KindCancelHold, KindCancelRes:
		return string(c.Kind) + sep + c.ID
	default:
		return string(c.Kind)
	}
}

// Decode разбирает callback data в команду. Неизвестный вид,
// неверное число полей или не-числовой индекс - ErrInvalidCommand.
func Decode(data string) (Command, error) {
	parts := strings.Split(data, sep)
	kind := Kind(parts[0])
	args := parts[1:]

	cmd := Command{Kind: kind}
	switch kind {
	case KindPickCategory, KindPickService, KindPickProvider, KindPickDate, KindPickSlot:
		if len(args) != 1 {
			return Command{}, badArgs(kind, args)
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 {
			return Command{}, fmt.Errorf("%w: kind %q got index %q", ErrInvalidCommand, kind, args[0])
		}
		cmd.Index = idx
	case KindConfirmRepeat, KindCancelHold, KindCancelRes:
		if len(args) != 1 || args[0] == "" {
			return Command{}, badArgs(kind, args)
		}
		cmd.ID = args[0]
	case KindJoinWaitlist:
		if len(args) != 0 {
			return Command{}, badArgs(kind, args)
		}
	default:
		return Command{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, parts[0])
	}

	return cmd, nil
}

func badArgs(kind Kind, args []string) error {
	return fmt.Errorf("%w: kind %q got %d args", ErrInvalidCommand, kind, len(args))
}
