package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"otomoto-watcher/internal/geo"
	"otomoto-watcher/internal/kafka"
	"otomoto-watcher/internal/scraper"
	"otomoto-watcher/internal/tracker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const chatID int64 = 123456

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.err
}

func sampleListing() scraper.Listing {
	return scraper.Listing{
		ID:                "https://www.otomoto.pl/osobowe/oferta/volvo_v60-ID6Gv601.html",
		Title:             "Volvo V60 D4 Momentum",
		PriceText:         "129 900 PLN",
		Price:             129900,
		Year:              "2020",
		FuelType:          "Diesel",
		Gearbox:           "Automatyczna",
		Mileage:           "120 000 km",
		Location:          "Kraków (Małopolskie)",
		Power:             "190 KM",
		Displacement:      "1969 cm³",
		ImageURL:          "https://ireland.apollo.olxcdn.com/v1/files/abc/image",
		Distance:          geo.Distance{Km: 252.3, Tier: geo.TierModerate},
		VIN:               scraper.Unknown,
		FirstRegistration: scraper.Unknown,
		Plate:             scraper.Unknown,
	}
}

func TestRenderNewListing(t *testing.T) {
	text := RenderNewListing(sampleListing())

	for _, want := range []string{
		"🆕 *Volvo V60 D4 Momentum*",
		"💰 129 900 PLN",
		"2020 | ⛽ Diesel | ⚙️ Automatyczna",
		"120 000 km | 📍 Kraków (Małopolskie)",
		"🟡 252.3 km",
		"190 KM | 1969 cm³",
		`volvo\_v60-ID6Gv601.html`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "VIN") {
		t.Errorf("Unknown VIN should be left out:\n%s", text)
	}
}

func TestRenderNewListingUnknownDistance(t *testing.T) {
	l := sampleListing()
	l.Distance = geo.UnknownDistance
	l.Location = scraper.Unknown
	l.VIN = "YV1ZWK8V1M1000001"

	text := RenderNewListing(l)
	if strings.Contains(text, "🟡") {
		t.Errorf("Distance should be left out:\n%s", text)
	}
	if !strings.Contains(text, "📍 "+scraper.Unknown) {
		t.Errorf("Expected unknown location sentinel:\n%s", text)
	}
	if !strings.Contains(text, "VIN: YV1ZWK8V1M1000001") {
		t.Errorf("Expected VIN line:\n%s", text)
	}
}

func TestRenderPriceChange(t *testing.T) {
	l := sampleListing()
	l.Price = 95000
	text := RenderPriceChange(tracker.PriceChange(l, 100000))

	for _, want := range []string{
		"📉 *Volvo V60 D4 Momentum*",
		"100 000 PLN → 95 000 PLN",
		"*-5.0%* (decreased, -5 000 PLN)",
		"📍 Kraków (Małopolskie) | 🟡 252.3 km",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestDispatchPhotoWithButton(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, chatID)

	err := n.Dispatch(context.Background(), tracker.Event{Kind: tracker.EventNewListing, Listing: sampleListing()})
	if err != nil {
		t.Fatal("Dispatch failed:", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(sender.sent))
	}

	photo, ok := sender.sent[0].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("Expected photo message, got %T", sender.sent[0])
	}
	if photo.ChatID != chatID {
		t.Errorf("Expected chat %d, got %d", chatID, photo.ChatID)
	}
	if photo.File != tgbotapi.FileURL(sampleListing().ImageURL) {
		t.Errorf("Expected image URL, got %v", photo.File)
	}
	markup, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 || *markup.InlineKeyboard[0][0].URL != sampleListing().ID {
		t.Errorf("Expected a single view button, got %+v", photo.ReplyMarkup)
	}
}

func TestDispatchTextWithoutImage(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, chatID)
	l := sampleListing()
	l.ImageURL = scraper.Unknown

	if err := n.Dispatch(context.Background(), tracker.Event{Kind: tracker.EventNewListing, Listing: l}); err != nil {
		t.Fatal(err)
	}

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected text message, got %T", sender.sent[0])
	}
	if msg.ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("Expected Markdown, got %q", msg.ParseMode)
	}
}

func TestDispatchError(t *testing.T) {
	n := NewNotifier(&fakeSender{err: errors.New("timeout")}, chatID)

	if err := n.Dispatch(context.Background(), tracker.Event{Kind: tracker.EventNewListing, Listing: sampleListing()}); err == nil {
		t.Error("Expected send error to be returned")
	}
	if err := n.Dispatch(context.Background(), tracker.Event{Kind: "bogus"}); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestCaptionIsTruncated(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, chatID)
	l := sampleListing()
	l.Title = strings.Repeat("Długi tytuł ", 200)

	if err := n.Dispatch(context.Background(), tracker.Event{Kind: tracker.EventNewListing, Listing: l}); err != nil {
		t.Fatal(err)
	}

	photo := sender.sent[0].(tgbotapi.PhotoConfig)
	if n := utf8.RuneCountInString(photo.Caption); n != maxCaptionLength {
		t.Errorf("Expected caption of %d runes, got %d", maxCaptionLength, n)
	}
}

func TestSendDocument(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, chatID)

	if err := n.SendDocument("reports/report.csv"); err != nil {
		t.Fatal(err)
	}
	doc, ok := sender.sent[0].(tgbotapi.DocumentConfig)
	if !ok || doc.File != tgbotapi.FilePath("reports/report.csv") {
		t.Errorf("Expected document upload, got %+v", sender.sent[0])
	}
}

func TestHandleListingEvent(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, chatID)

	err := n.HandleListingEvent(kafka.ListingEvent{Event: tracker.Event{Kind: tracker.EventNewListing, Listing: sampleListing()}})
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("Expected relayed message, got %d", len(sender.sent))
	}
}

type fakeRequester struct {
	calls int
	err   error
}

func (r *fakeRequester) PublishScrapeRequest(ctx context.Context) error {
	r.calls++
	return r.err
}

func command(chat int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chat},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestCommandScrape(t *testing.T) {
	sender := &fakeSender{}
	requester := &fakeRequester{}
	c := NewCommands(NewNotifier(sender, chatID), requester)

	c.handleMessage(context.Background(), command(chatID, "/scrape"))

	if requester.calls != 1 {
		t.Errorf("Expected 1 scrape request, got %d", requester.calls)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Expected confirmation, got %d messages", len(sender.sent))
	}
}

func TestCommandFromOtherChatIgnored(t *testing.T) {
	sender := &fakeSender{}
	requester := &fakeRequester{}
	c := NewCommands(NewNotifier(sender, chatID), requester)

	c.handleMessage(context.Background(), command(999, "/scrape"))

	if requester.calls != 0 || len(sender.sent) != 0 {
		t.Errorf("Expected foreign chat to be ignored, got %d requests and %d messages", requester.calls, len(sender.sent))
	}
}

func TestCommandHelpAndUnknown(t *testing.T) {
	sender := &fakeSender{}
	c := NewCommands(NewNotifier(sender, chatID), nil)

	c.handleMessage(context.Background(), command(chatID, "/help"))
	c.handleMessage(context.Background(), command(chatID, "/scrape"))
	c.handleMessage(context.Background(), command(chatID, "/foo"))

	if len(sender.sent) != 3 {
		t.Fatalf("Expected 3 replies, got %d", len(sender.sent))
	}
	last := sender.sent[2].(tgbotapi.MessageConfig)
	if !strings.Contains(last.Text, "Unknown command: /foo") {
		t.Errorf("Unexpected reply %q", last.Text)
	}
}
