package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/models"
)

// NotificationConfig gates which value signals get announced.
type NotificationConfig struct {
	BotToken       string
	ChatID         string
	MinEdge        float64
	MinProbability float64
}

// NotificationService announces VALUE_BET signals to a Telegram chat.
// Without a bot token it stays disabled and every call is a no-op. A
// signal is announced once per match and selection.
type NotificationService struct {
	cfg    NotificationConfig
	bot    *bot.Bot
	logger *logrus.Entry

	mu        sync.Mutex
	announced map[string]time.Time
}

func NewNotificationService(cfg NotificationConfig) *NotificationService {
	ns := &NotificationService{
		cfg:       cfg,
		logger:    logrus.WithField("component", "notifications"),
		announced: make(map[string]time.Time),
	}

	if cfg.BotToken == "" {
		ns.logger.Info("Telegram notifications disabled: no bot token configured")
		return ns
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		ns.logger.WithError(err).Error("Failed to initialize Telegram bot, notifications disabled")
		return ns
	}
	ns.bot = b
	return ns
}

// Enabled reports whether a working bot is configured.
func (ns *NotificationService) Enabled() bool {
	return ns.bot != nil
}

// AnnounceSignals sends one message per qualifying VALUE_BET signal
// that has not been announced for this match yet.
func (ns *NotificationService) AnnounceSignals(ctx context.Context, match *models.LiveMatch, res *engine.PredictionResult, signals []engine.ValueSignal) {
	if ns.bot == nil || len(signals) == 0 {
		return
	}

	for i := range signals {
		signal := &signals[i]
		if !ns.qualifies(signal) {
			continue
		}
		key := match.ID + ":" + signal.Market + ":" + signal.Selection
		if !ns.markAnnounced(key) {
			continue
		}
		ns.send(ctx, formatSignalMessage(match, res, signal))
	}
}

func (ns *NotificationService) qualifies(signal *engine.ValueSignal) bool {
	if signal.Signal != engine.SignalValueBet {
		return false
	}
	if signal.Edge < ns.cfg.MinEdge {
		return false
	}
	return signal.ModelProb >= ns.cfg.MinProbability
}

// markAnnounced records the dedup key, returning false if it was
// already present. Old keys age out alongside the matches they belong
// to.
func (ns *NotificationService) markAnnounced(key string) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, seen := ns.announced[key]; seen {
		return false
	}

	now := time.Now()
	for k, at := range ns.announced {
		if now.Sub(at) > 6*time.Hour {
			delete(ns.announced, k)
		}
	}
	ns.announced[key] = now
	return true
}

func (ns *NotificationService) send(ctx context.Context, message string) {
	_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.cfg.ChatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		ns.logger.WithError(err).Error("Failed to send Telegram notification")
	}
}

func formatSignalMessage(match *models.LiveMatch, res *engine.PredictionResult, signal *engine.ValueSignal) string {
	message := "💰 *Value Bet Detected*\n\n"
	message += fmt.Sprintf("⚽ %s vs %s (%s)\n", match.HomeTeam, match.AwayTeam, match.League)
	message += fmt.Sprintf("🕐 Minute %d, score %d-%d\n\n", match.Minute, match.HomeScore, match.AwayScore)
	message += fmt.Sprintf("Market: `%s` — *%s*\n", signal.Market, signal.Selection)
	message += fmt.Sprintf("Model probability: %.1f%%\n", signal.ModelProb*100)
	message += fmt.Sprintf("Market odds: %s (fair %s)\n", signal.MarketOdds.StringFixed(2), signal.FairOdds.StringFixed(2))
	message += fmt.Sprintf("Edge: %+.1f%%\n", signal.Edge*100)
	if signal.KellyStake > 0 {
		message += fmt.Sprintf("Suggested stake: %.1f%% of bankroll\n", signal.KellyStake*100)
	}
	if res != nil {
		message += fmt.Sprintf("\nModel confidence: %.0f%%", res.Confidence*100)
	}
	return message
}
