package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atim-dev/atim/internal/models"
)

type fakeBot struct {
	failures int
	sent     []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"end!", "end\\!"},
		{`C:\data`, `C:\\data`},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	got := formatError(errors.New("open C:\\data\\inv.csv: bad `quote` (line 3)"))
	want := "⚠️ *Analysis failed*\n`open C:\\\\data\\\\inv.csv: bad \\`quote\\` (line 3)`"
	if got != want {
		t.Errorf("formatError() = %q, want %q", got, want)
	}
}

func TestSendError(t *testing.T) {
	bot := &fakeBot{failures: 1}
	c := newClient(bot, 42, 3, time.Millisecond)

	if err := c.SendError(errors.New("failed to render report")); err != nil {
		t.Fatalf("SendError failed: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(bot.sent))
	}
	msg := bot.sent[0]
	if msg.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("ParseMode = %q, want MarkdownV2", msg.ParseMode)
	}
	if !strings.Contains(msg.Text, "`failed to render report`") {
		t.Errorf("Unexpected text: %q", msg.Text)
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// Chat ID is parsed before any network call is made.
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func testDigest(t *testing.T) Digest {
	t.Helper()
	rising, err := models.NewTrendRecord("chunky-sneakers", 9, 60, 62, 70)
	if err != nil {
		t.Fatal(err)
	}
	return Digest{
		GeneratedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		Summary:     models.InventorySummary{TotalItems: 3, LowStockItems: 2, TotalValue: 120.5},
		Trends:      []models.TrendRecord{rising},
		LowStock: []models.InventoryItem{
			{ProductName: "Boots (tall)", CurrentStock: 1, ReorderPoint: 10},
			{ProductName: "Loafers", CurrentStock: 6, ReorderPoint: 6},
		},
		ReportURL: "http://localhost:8080/reports/abc",
	}
}

func TestFormatDigest(t *testing.T) {
	msg := formatDigest(testDigest(t))

	for _, want := range []string{
		"📅 2026\\-08\\-20 09:00:00",
		"3 products, 2 low on stock, value $120\\.50",
		"1\\. 📈 *chunky\\-sneakers* Rising \\(confidence 29\\.4, velocity \\+9\\.0\\)",
		"Boots \\(tall\\): 1 left \\(reorder at 10\\)",
		"[Full report](http://localhost:8080/reports/abc)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("digest missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Loafers") {
		t.Error("non-urgent items should not be listed")
	}
	if strings.Contains(msg, "placeholders") {
		t.Error("real data should not carry the placeholder note")
	}
}

func TestFormatDigest_SyntheticAndEmpty(t *testing.T) {
	msg := formatDigest(Digest{GeneratedAt: time.Now(), Synthetic: true})
	if !strings.Contains(msg, "placeholders") {
		t.Error("expected placeholder note")
	}
	if !strings.Contains(msg, "No trends met the confidence threshold") {
		t.Error("expected empty trends line")
	}
	if strings.Contains(msg, "Urgent reorders") || strings.Contains(msg, "Full report") {
		t.Error("empty sections should be omitted")
	}
}

func TestFormatDigest_CapsTrends(t *testing.T) {
	var trends []models.TrendRecord
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		r, err := models.NewTrendRecord(k, 0, 50, 50, 60)
		if err != nil {
			t.Fatal(err)
		}
		trends = append(trends, r)
	}
	msg := formatDigest(Digest{GeneratedAt: time.Now(), Trends: trends})
	if !strings.Contains(msg, "5\\. ") || strings.Contains(msg, "6\\. ") {
		t.Errorf("expected exactly %d trend lines:\n%s", maxDigestTrends, msg)
	}
}

func TestSendDigest_Retries(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c := newClient(bot, 42, 3, time.Millisecond)

	if err := c.SendDigest(testDigest(t)); err != nil {
		t.Fatalf("SendDigest: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	if bot.sent[0].ChatID != 42 || bot.sent[0].ParseMode != "MarkdownV2" {
		t.Errorf("unexpected message config %+v", bot.sent[0])
	}
}

func TestSendDigest_GivesUp(t *testing.T) {
	bot := &fakeBot{failures: 5}
	c := newClient(bot, 42, 2, time.Millisecond)

	err := c.SendDigest(testDigest(t))
	if err == nil || !strings.Contains(err.Error(), "failed after 2 retries") {
		t.Errorf("expected retry exhaustion error, got %v", err)
	}
}

func TestHandleCommand(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, 42, 1, time.Millisecond)

	lister := func(limit int) ([]models.Report, error) {
		return []models.Report{{
			ID:         "r-1",
			CreatedAt:  time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
			TrendCount: 4,
			TopKeyword: "boots",
		}}, nil
	}

	c.handleCommand(7, "ping", lister)
	c.handleCommand(7, "reports", lister)
	c.handleCommand(7, "reports", nil)
	c.handleCommand(7, "unknown", lister)

	if len(bot.sent) != 3 {
		t.Fatalf("sent %d replies, want 3", len(bot.sent))
	}
	if bot.sent[0].Text != "Pong" || bot.sent[0].ChatID != 7 {
		t.Errorf("unexpected ping reply %+v", bot.sent[0])
	}
	if bot.sent[1].Text != "2026-08-20 09:00  r-1  4 trends, top: boots" {
		t.Errorf("unexpected reports reply %q", bot.sent[1].Text)
	}
	if bot.sent[2].Text != "Report archive is disabled" {
		t.Errorf("unexpected disabled reply %q", bot.sent[2].Text)
	}
}
