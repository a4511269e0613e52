// Package bot is the send boundary for fired notifications. It holds no
// update loop; the scheduler worker is the only caller.
package bot

import (
	"fmt"

	"food-market/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier struct {
	api            *tgbotapi.BotAPI
	accountingChat int64
}

func NewNotifier(token string, accountingChatID int64) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{api: api, accountingChat: accountingChatID}, nil
}

func (n *Notifier) NotifyChat(chatID int64, text string) error {
	_, err := n.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// NotifyAccounting sends to the configured accounting chat, if one is set.
func (n *Notifier) NotifyAccounting(text string) error {
	if n.accountingChat == 0 {
		return nil
	}
	return n.NotifyChat(n.accountingChat, text)
}

func ReminderText(orderID int64) string {
	return fmt.Sprintf("⏰ Reminder: order #%d is still waiting on the kitchen.", orderID)
}

func PayoutCompletedText(p *models.MerchantPayout) string {
	return fmt.Sprintf("✅ Payout %s for merchant %d completed: %d across %d orders.",
		p.Ref, p.MerchantID, p.Total, len(p.OrderIDs))
}
