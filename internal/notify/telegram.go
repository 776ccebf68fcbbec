package notify

import (
	"fmt"
	"log"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier pings an operator chat when a post is dead-lettered.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier builds a notifier from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID. Returns nil (no notifications) when either is unset.
func NewTelegramNotifier() *TelegramNotifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDStr == "" {
		return nil
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		log.Printf("notify: invalid TELEGRAM_CHAT_ID: %v", err)
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("notify: failed to create Telegram bot: %v", err)
		return nil
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (n *TelegramNotifier) NotifyDeadLetter(episodeTitle, platform, errMsg string) {
	text := fmt.Sprintf("Post dead-lettered\nEpisode: %s\nPlatform: %s\nError: %s\nManual attention required.",
		episodeTitle, platform, errMsg)
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		log.Printf("notify: failed to send Telegram message: %v", err)
	}
}
