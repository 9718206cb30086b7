// Package telegram sends analysis digests via the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/models"
)

// maxDigestTrends caps the trend lines in one digest message.
const maxDigestTrends = 5

// Digest is the content of one run notification.
type Digest struct {
	GeneratedAt time.Time
	Summary     models.InventorySummary
	Trends      []models.TrendRecord
	LowStock    []models.InventoryItem
	Synthetic   bool
	ReportURL   string
}

// ReportLister returns the most recent archived reports.
type ReportLister func(limit int) ([]models.Report, error)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            sender
	api            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	c := newClient(bot, chatIDInt, maxRetries, retryDelayBase)
	c.api = bot
	return c, nil
}

func newClient(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, reports ReportLister) {
	if c.api == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.api.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message.Chat.ID, update.Message.Command(), reports)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(chatID int64, command string, reports ReportLister) {
	var text string
	switch command {
	case "ping":
		text = "Pong"
	case "reports":
		if reports == nil {
			text = "Report archive is disabled"
			break
		}
		list, err := reports(5)
		if err != nil {
			logger.Error("Failed to list reports for Telegram: %v", err)
			text = "Failed to list reports"
			break
		}
		text = formatReportList(list)
	default:
		return
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn("Failed to answer Telegram command %q: %v", command, err)
	}
}

func formatReportList(reports []models.Report) string {
	if len(reports) == 0 {
		return "No reports yet"
	}
	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "%s  %s  %d trends", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.TrendCount)
		if r.TopKeyword != "" {
			fmt.Fprintf(&b, ", top: %s", r.TopKeyword)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError reports a failed analysis run.
func (c *Client) SendError(runErr error) error {
	return c.sendMarkdownV2(formatError(runErr))
}

func formatError(runErr error) string {
	return fmt.Sprintf("⚠️ *Analysis failed*\n`%s`", escapeCode(runErr.Error()))
}

// SendDigest sends the top trends and urgent low stock items of a run.
func (c *Client) SendDigest(d Digest) error {
	return c.sendMarkdownV2(formatDigest(d))
}

func formatDigest(d Digest) string {
	var b strings.Builder
	b.WriteString("📊 *Trend & Inventory Digest*\n")
	fmt.Fprintf(&b, "📅 %s\n\n", escapeMarkdownV2(d.GeneratedAt.Format("2006-01-02 15:04:05")))

	if d.Synthetic {
		b.WriteString("_Live trend data unavailable, figures are placeholders_\n\n")
	}

	fmt.Fprintf(&b, "📦 %d products, %d low on stock, value %s\n\n",
		d.Summary.TotalItems, d.Summary.LowStockItems,
		escapeMarkdownV2(fmt.Sprintf("$%.2f", d.Summary.TotalValue)))

	if len(d.Trends) == 0 {
		b.WriteString("No trends met the confidence threshold\\.\n")
	}
	for i, t := range d.Trends {
		if i == maxDigestTrends {
			break
		}
		fmt.Fprintf(&b, "%d\\. %s *%s* %s \\(confidence %s, velocity %s\\)\n",
			i+1, statusEmoji(t.Status), escapeMarkdownV2(t.Keyword), escapeMarkdownV2(string(t.Status)),
			escapeMarkdownV2(fmt.Sprintf("%.1f", t.Confidence)),
			escapeMarkdownV2(fmt.Sprintf("%+.1f", t.Velocity)))
	}

	var urgent []models.InventoryItem
	for _, item := range d.LowStock {
		if item.Urgent() {
			urgent = append(urgent, item)
		}
	}
	if len(urgent) > 0 {
		b.WriteString("\n🔴 *Urgent reorders*\n")
		for _, item := range urgent {
			fmt.Fprintf(&b, "• %s: %d left \\(reorder at %d\\)\n",
				escapeMarkdownV2(item.ProductName), item.CurrentStock, item.ReorderPoint)
		}
	}

	if d.ReportURL != "" {
		fmt.Fprintf(&b, "\n[Full report](%s)\n", escapeLinkURL(d.ReportURL))
	}

	return b.String()
}

func statusEmoji(s models.Status) string {
	switch s {
	case models.StatusRising:
		return "📈"
	case models.StatusDeclining:
		return "📉"
	case models.StatusPeaking:
		return "⛰️"
	default:
		return "➖"
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes the characters MarkdownV2 reserves inside code entities.
func escapeCode(text string) string {
	return strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(text)
}

// escapeLinkURL escapes the characters MarkdownV2 reserves inside a link target.
func escapeLinkURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(u)
}
