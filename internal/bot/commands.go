package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ScrapeRequester asks the watcher for an immediate run.
type ScrapeRequester interface {
	PublishScrapeRequest(ctx context.Context) error
}

// Commands answers chat commands. Only the configured chat is served.
type Commands struct {
	notifier  *Notifier
	requester ScrapeRequester
}

func NewCommands(notifier *Notifier, requester ScrapeRequester) *Commands {
	return &Commands{notifier: notifier, requester: requester}
}

// Listen polls for updates until ctx is done.
func (c *Commands) Listen(ctx context.Context, api *tgbotapi.BotAPI) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := api.GetUpdatesChan(updateConfig)
	defer api.StopReceivingUpdates()

	log.Println("🤖 Bot is started! Waiting for commands...")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				c.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (c *Commands) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}
	if message.Chat.ID != c.notifier.chatID {
		log.Printf("Ignoring message from chat %d", message.Chat.ID)
		return
	}
	if !message.IsCommand() {
		return
	}

	log.Printf("Command from chat %d: /%s", message.Chat.ID, message.Command())

	switch message.Command() {
	case "start", "help":
		c.reply(helpText)
	case "scrape":
		c.handleScrape(ctx)
	default:
		c.reply("❓ Unknown command: /" + escape(message.Command()) + "\n\nUse /help to see what I can do.")
	}
}

const helpText = `👋 I watch otomoto and report new listings and price changes.

📝 Commands:
/help - show this message
/scrape - check the search right now`

func (c *Commands) handleScrape(ctx context.Context) {
	if c.requester == nil {
		c.reply("❌ Manual checks are not enabled")
		return
	}
	if err := c.requester.PublishScrapeRequest(ctx); err != nil {
		log.Printf("❌ Error requesting scrape: %v", err)
		c.reply("❌ Could not request a check. Try later")
		return
	}
	c.reply("🔍 Check requested, results will follow")
}

func (c *Commands) reply(text string) {
	if err := c.notifier.SendText(text); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
