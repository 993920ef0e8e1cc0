package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/validation"
)

const (
	startText = `Welcome to MoneyMind!

I'm your financial assistant for India. You can:
- ask questions about mutual funds, taxes, loans and more
- get the latest financial news on a company or topic
- assess your risk profile
- get portfolio suggestions matched to your risk profile

Just send me a message to get started. Use /help to see this again.`

	helpText = `MoneyMind - what you can ask

Questions: "What is a SIP?", "Explain PPF"
News: "Latest news about Infosys", "Update on RBI policy"
Risk profile: "Assess my risk tolerance"
Portfolio: "Suggest investment options", "Adjust portfolio to remove crypto"

/start - Show the welcome message
/help - Show this help message`

	unknownCommandText = "Unknown command. Use /help to see available commands."
)

// TelegramAPI is the slice of *tgbotapi.BotAPI the bot uses
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewTelegramAPI authorises a bot token
func NewTelegramAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = debug
	log.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")
	return api, nil
}

// TelegramSender sends plain text to a chat id
type TelegramSender struct {
	api TelegramAPI
	log zerolog.Logger
}

var _ Sender = (*TelegramSender)(nil)

// NewTelegramSender wraps an authorised API
func NewTelegramSender(api TelegramAPI) *TelegramSender {
	return &TelegramSender{
		api: api,
		log: log.With().Str("component", "telegram").Logger(),
	}
}

// Send delivers text to the chat whose numeric id is recipient
func (s *TelegramSender) Send(_ context.Context, recipient, text string) bool {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		s.log.Error().Err(err).Str("recipient", recipient).Msg("Invalid chat id")
		metrics.RecordMessageSent("telegram", false)
		return false
	}

	_, err = s.api.Send(tgbotapi.NewMessage(chatID, TruncateTo(text, TelegramLimit)))
	metrics.RecordMessageSent("telegram", err == nil)
	if err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
		return false
	}
	return true
}

// Router turns a user's message into reply text
type Router interface {
	Route(ctx context.Context, userID, message string) string
}

// BotConfig tunes update polling
type BotConfig struct {
	PollingTimeout int
	TurnTimeout    time.Duration
}

// CommandHandler answers a slash command
type CommandHandler func(ctx context.Context, message *tgbotapi.Message) string

// Bot polls Telegram for updates and answers each text message through the Router
type Bot struct {
	api      TelegramAPI
	sender   *TelegramSender
	router   Router
	config   BotConfig
	handlers map[string]CommandHandler
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewBot creates a bot with /start and /help registered
func NewBot(api TelegramAPI, router Router, config BotConfig) *Bot {
	if config.PollingTimeout <= 0 {
		config.PollingTimeout = 60
	}
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = 90 * time.Second
	}

	b := &Bot{
		api:      api,
		sender:   NewTelegramSender(api),
		router:   router,
		config:   config,
		handlers: make(map[string]CommandHandler),
		log:      log.With().Str("component", "telegram_bot").Logger(),
	}
	b.RegisterHandler("start", func(context.Context, *tgbotapi.Message) string { return startText })
	b.RegisterHandler("help", func(context.Context, *tgbotapi.Message) string { return helpText })
	return b
}

// RegisterHandler registers a command handler
func (b *Bot) RegisterHandler(command string, handler CommandHandler) {
	b.handlers[command] = handler
}

// Run polls until ctx is cancelled, then waits for in-flight turns
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info().Msg("Starting Telegram bot in polling mode")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.PollingTimeout
	updates := b.api.GetUpdatesChan(u)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("Telegram bot shutting down")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

// UserID maps a Telegram sender to a record id
func UserID(from *tgbotapi.User, chatID int64) string {
	if from != nil {
		return "tg_" + strconv.FormatInt(from.ID, 10)
	}
	return "tg_" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, b.config.TurnTimeout)
	defer cancel()

	chat := strconv.FormatInt(message.Chat.ID, 10)

	if message.IsCommand() {
		command := message.Command()
		b.log.Info().Str("command", command).Int64("chat_id", message.Chat.ID).Msg("Received command")

		reply := unknownCommandText
		if handler, ok := b.handlers[command]; ok {
			reply = handler(ctx, message)
		}
		b.sender.Send(ctx, chat, reply)
		return
	}

	text := validation.SanitizeInput(message.Text)
	if text == "" {
		b.sender.Send(ctx, chat, "Please send a text message to get started.")
		return
	}

	reply := b.router.Route(ctx, UserID(message.From, message.Chat.ID), text)
	b.sender.Send(ctx, chat, reply)
}
