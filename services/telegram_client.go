package services

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"backend_realty/models"
)

// messageSender часть Bot API, используемая уведомлениями
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AdminDirectory поиск сотрудника по идентификатору
type AdminDirectory interface {
	GetByHex(ctx context.Context, id string) (*models.Admin, error)
}

// TelegramNotifier отправляет агенту уведомления о событиях его сделок
type TelegramNotifier struct {
	bot    messageSender
	admins AdminDirectory
	logger *logrus.Logger
}

// NewTelegramNotifier авторизует бота по токену
func NewTelegramNotifier(token string, admins AdminDirectory, logger *logrus.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram бота: %w", err)
	}
	bot.Debug = false

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithField("bot", bot.Self.UserName).Info("telegram bot authorized")

	return newTelegramNotifier(bot, admins, logger), nil
}

func newTelegramNotifier(bot messageSender, admins AdminDirectory, logger *logrus.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, admins: admins, logger: logger}
}

// DealEventAppended уведомляет автора сделки о новом событии
func (n *TelegramNotifier) DealEventAppended(ctx context.Context, deal *models.Deal, event models.DealEvent) error {
	if deal.CreatedBy == nil || deal.CreatedBy.AdminID == "" {
		return nil
	}

	admin, err := n.admins.GetByHex(ctx, deal.CreatedBy.AdminID)
	if err != nil {
		return fmt.Errorf("получатель уведомления не найден: %w", err)
	}
	if admin.TelegramID == "" {
		return nil
	}

	chatID, err := strconv.ParseInt(admin.TelegramID, 10, 64)
	if err != nil {
		return fmt.Errorf("неверный chat ID: %s", admin.TelegramID)
	}

	msg := tgbotapi.NewMessage(chatID, FormatDealEventMessage(deal, event))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"deal_id":  deal.ID.Hex(),
		"admin_id": admin.ID.Hex(),
	}).Debug("deal event notification sent")
	return nil
}

// FormatDealEventMessage формирует HTML-текст уведомления о событии сделки
func FormatDealEventMessage(deal *models.Deal, event models.DealEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 <b>Сделка %s</b>\n", deal.ID.Hex())
	fmt.Fprintf(&b, "Статус: %s\n", html.EscapeString(deal.Status))

	keys := make([]string, 0, len(event))
	for k := range event {
		if k == "created_at" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", html.EscapeString(k), html.EscapeString(fmt.Sprint(event[k])))
	}
	return strings.TrimRight(b.String(), "\n")
}
