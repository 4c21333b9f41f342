package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"otomoto-watcher/internal/kafka"
	"otomoto-watcher/internal/scraper"
	"otomoto-watcher/internal/tracker"
	"otomoto-watcher/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxCaptionLength = 1024

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier renders tracker events and delivers them to one Telegram chat.
type Notifier struct {
	api    Sender
	chatID int64
}

func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}

	api.Debug = false
	log.Printf("Bot is authorized as: @%s", api.Self.UserName)
	return api, nil
}

func NewNotifier(api Sender, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

func (n *Notifier) Dispatch(ctx context.Context, event tracker.Event) error {
	var text string
	switch event.Kind {
	case tracker.EventNewListing:
		text = RenderNewListing(event.Listing)
	case tracker.EventPriceChanged:
		text = RenderPriceChange(event)
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}

	l := event.Listing
	var msg tgbotapi.Chattable
	if scraper.IsKnown(l.ImageURL) && l.ImageURL != "" {
		photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileURL(l.ImageURL))
		photo.Caption = truncate(text, maxCaptionLength)
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = viewButton(l.ID)
		msg = photo
	} else {
		m := tgbotapi.NewMessage(n.chatID, text)
		m.ParseMode = tgbotapi.ModeMarkdown
		m.ReplyMarkup = viewButton(l.ID)
		msg = m
	}

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", event.Kind, err)
	}
	return nil
}

func (n *Notifier) SendText(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (n *Notifier) SendDocument(path string) error {
	doc := tgbotapi.NewDocument(n.chatID, tgbotapi.FilePath(path))
	if _, err := n.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send document %s: %w", path, err)
	}
	return nil
}

// HandleListingEvent forwards an event received from Kafka.
func (n *Notifier) HandleListingEvent(event kafka.ListingEvent) error {
	return n.Dispatch(context.Background(), event.Event)
}

func (n *Notifier) HandleRunSummary(event kafka.RunSummaryEvent) error {
	log.Printf("📊 Run %s: %d listings, %d new, %d price changes",
		event.RunID, event.Listings, event.NewListings, event.PriceChanges)
	return nil
}

func (n *Notifier) HandleScrapeRequest(event kafka.ScrapeRequestEvent) error {
	return nil
}

func RenderNewListing(l scraper.Listing) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🆕 *%s*\n", escape(l.Title))
	fmt.Fprintf(&b, "💰 %s\n", escape(priceText(l)))
	fmt.Fprintf(&b, "📅 %s | ⛽ %s | ⚙️ %s\n", escape(l.Year), escape(l.FuelType), escape(l.Gearbox))
	fmt.Fprintf(&b, "🛣 %s | 📍 %s\n", escape(l.Mileage), escape(l.Location))
	if l.Distance.Known() {
		fmt.Fprintf(&b, "%s %.1f km\n", l.Distance.Tier.Marker(), l.Distance.Km)
	}
	if scraper.IsKnown(l.Power) || scraper.IsKnown(l.Displacement) {
		fmt.Fprintf(&b, "🔧 %s | %s\n", escape(l.Power), escape(l.Displacement))
	}
	if scraper.IsKnown(l.VIN) {
		fmt.Fprintf(&b, "🔎 VIN: %s\n", escape(l.VIN))
	}
	if scraper.IsKnown(l.FirstRegistration) {
		fmt.Fprintf(&b, "🗓 First registration: %s\n", escape(l.FirstRegistration))
	}
	if scraper.IsKnown(l.Plate) {
		fmt.Fprintf(&b, "🚘 Plate: %s\n", escape(l.Plate))
	}
	fmt.Fprintf(&b, "\n👉 %s", escape(l.ID))

	return b.String()
}

func RenderPriceChange(e tracker.Event) string {
	l := e.Listing
	var b strings.Builder

	icon := "📈"
	if e.Direction == tracker.Decreased {
		icon = "📉"
	}

	fmt.Fprintf(&b, "%s *%s*\n", icon, escape(l.Title))
	fmt.Fprintf(&b, "💰 %s → %s\n", utils.FormatPrice(e.PreviousPrice), utils.FormatPrice(l.Price))
	fmt.Fprintf(&b, "*%s* (%s, %s PLN)\n",
		utils.FormatSignedPercent(e.Delta, e.Percent), e.Direction, utils.GroupThousands(e.Delta))
	fmt.Fprintf(&b, "📍 %s", escape(l.Location))
	if l.Distance.Known() {
		fmt.Fprintf(&b, " | %s %.1f km", l.Distance.Tier.Marker(), l.Distance.Km)
	}
	fmt.Fprintf(&b, "\n\n👉 %s", escape(l.ID))

	return b.String()
}

func priceText(l scraper.Listing) string {
	if scraper.IsKnown(l.PriceText) && l.PriceText != "" {
		return l.PriceText
	}
	if l.Price > 0 {
		return utils.FormatPrice(l.Price)
	}
	return scraper.Unknown
}

func viewButton(link string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 View listing", link),
		),
	)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
