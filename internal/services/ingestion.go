package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oddscope/matchpulse/internal/cache"
	"github.com/oddscope/matchpulse/internal/models"
	"github.com/oddscope/matchpulse/internal/upstream"
)

// FixtureSource is the slice of the upstream client ingestion needs.
type FixtureSource interface {
	LiveFixtures(ctx context.Context) ([]upstream.Fixture, error)
	LiveOdds(ctx context.Context, fixtureID int64) (*upstream.OddsQuote, error)
	PreMatchOdds(ctx context.Context, fixtureID int64) (*upstream.OddsQuote, error)
}

// IngestionConfig tunes the poll loop and league filtering.
type IngestionConfig struct {
	PollInterval   time.Duration
	AllowedLeagues []string
	DeniedLeagues  []string
}

// IngestionService polls the fixture feed, normalizes payloads into
// internal match records, diffs them against the previous poll, and
// publishes change events. Odds ride a best-effort side channel with
// their own TTL and are merged even when the core record is unchanged.
type IngestionService struct {
	source      FixtureSource
	oddsCache   *cache.OddsCache
	preMatch    *cache.OddsCache
	broadcaster *Broadcaster
	cfg         IngestionConfig
	logger      *logrus.Entry

	allowed map[string]bool
	denied  map[string]bool

	mu      sync.RWMutex
	matches map[string]*models.LiveMatch

	stopCh chan struct{}
	wg     sync.WaitGroup

	titleCaser cases.Caser
}

func NewIngestionService(source FixtureSource, oddsCache, preMatch *cache.OddsCache, broadcaster *Broadcaster, cfg IngestionConfig) *IngestionService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	return &IngestionService{
		source:      source,
		oddsCache:   oddsCache,
		preMatch:    preMatch,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logrus.WithField("component", "ingestion"),
		allowed:     leagueSet(cfg.AllowedLeagues),
		denied:      leagueSet(cfg.DeniedLeagues),
		matches:     make(map[string]*models.LiveMatch),
		stopCh:      make(chan struct{}),
		titleCaser:  cases.Title(language.English),
	}
}

// Start launches the poll loop.
func (s *IngestionService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		s.poll(ctx)
		for {
			select {
			case <-ticker.C:
				s.poll(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the poll loop.
func (s *IngestionService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// LiveMatches returns a copy of all currently tracked matches.
func (s *IngestionService) LiveMatches() []*models.LiveMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.LiveMatch, 0, len(s.matches))
	for _, m := range s.matches {
		copied := *m
		out = append(out, &copied)
	}
	return out
}

// Match returns the tracked record for one match id.
func (s *IngestionService) Match(matchID string) (*models.LiveMatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, false
	}
	copied := *m
	return &copied, true
}

// poll runs one ingestion cycle. A fetch failure skips the cycle
// without touching cached state.
func (s *IngestionService) poll(ctx context.Context) {
	fixtures, err := s.source.LiveFixtures(ctx)
	if err != nil {
		if err == upstream.ErrRateLimited {
			s.logger.Warn("Upstream rate limit hit, backing off to next tick")
		} else {
			s.logger.WithError(err).Error("Failed to fetch live fixtures")
		}
		return
	}

	seen := make(map[string]bool, len(fixtures))
	for i := range fixtures {
		fixture := &fixtures[i]
		if !s.leagueAllowed(fixture.League.Name) {
			continue
		}

		match := s.normalize(fixture)
		seen[match.ID] = true
		s.applyUpdate(ctx, match)
		s.refreshOdds(ctx, fixture.ID, match.ID)
	}

	s.pruneAbsent(seen)
}

// applyUpdate diffs the fresh record against the cached one, replaces
// the cache, and emits a classified event when score, status or minute
// moved.
func (s *IngestionService) applyUpdate(ctx context.Context, match *models.LiveMatch) {
	s.mu.Lock()
	prev := s.matches[match.ID]
	changed := prev == nil ||
		prev.HomeScore != match.HomeScore ||
		prev.AwayScore != match.AwayScore ||
		prev.Status != match.Status ||
		prev.Minute != match.Minute
	s.matches[match.ID] = match
	s.mu.Unlock()

	if !changed {
		return
	}

	event := &models.MatchEvent{
		ID:        uuid.NewString(),
		MatchID:   match.ID,
		Type:      classifyChange(prev, match),
		HomeTeam:  match.HomeTeam,
		AwayTeam:  match.AwayTeam,
		HomeScore: match.HomeScore,
		AwayScore: match.AwayScore,
		Minute:    match.Minute,
		Status:    match.Status,
		Timestamp: time.Now().UTC(),
	}
	s.broadcaster.PublishMatchEvent(ctx, event)

	if event.Type == models.EventGoal {
		s.logger.WithFields(logrus.Fields{
			"match_id": match.ID,
			"score":    strconv.Itoa(match.HomeScore) + "-" + strconv.Itoa(match.AwayScore),
			"minute":   match.Minute,
		}).Info("Goal detected")
	}
}

func classifyChange(prev, current *models.LiveMatch) models.MatchEventType {
	if prev == nil {
		return models.EventScoreUpdate
	}
	if prev.HomeScore != current.HomeScore || prev.AwayScore != current.AwayScore {
		return models.EventGoal
	}
	if prev.Status != current.Status && prev.Minute == current.Minute {
		return models.EventStatusChange
	}
	return models.EventScoreUpdate
}

// refreshOdds pulls in-play odds through the short-TTL cache and the
// pre-match reference through the long-lived one. Failures are
// swallowed: odds are advisory, never load-bearing.
func (s *IngestionService) refreshOdds(ctx context.Context, fixtureID int64, matchID string) {
	if s.oddsCache != nil {
		if _, ok := s.oddsCache.Quote(ctx, matchID); !ok {
			quote, err := s.source.LiveOdds(ctx, fixtureID)
			if err != nil {
				s.logger.WithError(err).WithField("match_id", matchID).Debug("Live odds unavailable")
			} else {
				s.storeQuote(ctx, s.oddsCache, matchID, quote)
			}
		}
	}

	if s.preMatch != nil {
		if _, ok := s.preMatch.MatchOdds(ctx, matchID); !ok {
			quote, err := s.source.PreMatchOdds(ctx, fixtureID)
			if err != nil {
				s.logger.WithError(err).WithField("match_id", matchID).Debug("Pre-match odds unavailable")
			} else {
				s.storeQuote(ctx, s.preMatch, matchID, quote)
			}
		}
	}
}

func (s *IngestionService) storeQuote(ctx context.Context, target *cache.OddsCache, matchID string, quote *upstream.OddsQuote) {
	now := time.Now().UTC()
	target.SetMatchOdds(ctx, &models.MatchOdds{
		MatchID:   matchID,
		Home:      decimal.NewFromFloat(quote.Home),
		Draw:      decimal.NewFromFloat(quote.Draw),
		Away:      decimal.NewFromFloat(quote.Away),
		Bookmaker: quote.Bookmaker,
		FetchedAt: now,
	})
	if quote.Handicap != nil {
		target.SetQuote(ctx, &models.HandicapQuote{
			MatchID:   matchID,
			Line:      quote.Handicap.Line,
			Home:      decimal.NewFromFloat(quote.Handicap.Home),
			Away:      decimal.NewFromFloat(quote.Handicap.Away),
			Suspended: quote.Handicap.Suspended,
			FetchedAt: now,
		})
	}
}

// pruneAbsent drops matches no longer present in the feed.
func (s *IngestionService) pruneAbsent(seen map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.matches {
		if !seen[id] {
			delete(s.matches, id)
		}
	}
}

func (s *IngestionService) leagueAllowed(league string) bool {
	key := strings.ToLower(strings.TrimSpace(league))
	if s.denied[key] {
		return false
	}
	if len(s.allowed) == 0 {
		return true
	}
	return s.allowed[key]
}

func leagueSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return set
}

// statusTable maps feed status codes to the internal lifecycle. Codes
// for any flavor of a running clock collapse to live; every terminal
// code collapses to finished.
var statusTable = map[string]models.MatchStatus{
	"NS":   models.StatusNotStarted,
	"TBD":  models.StatusNotStarted,
	"1H":   models.StatusLive,
	"2H":   models.StatusLive,
	"ET":   models.StatusLive,
	"BT":   models.StatusLive,
	"P":    models.StatusLive,
	"LIVE": models.StatusLive,
	"HT":   models.StatusHalftime,
	"FT":   models.StatusFinished,
	"AET":  models.StatusFinished,
	"PEN":  models.StatusFinished,
	"PST":  models.StatusFinished,
	"CANC": models.StatusFinished,
	"ABD":  models.StatusFinished,
	"AWD":  models.StatusFinished,
	"WO":   models.StatusFinished,
}

// normalize maps one upstream fixture to the fully-defaulted internal
// record. Every optional field lands on zero or a neutral value so
// downstream consumers never see nils.
func (s *IngestionService) normalize(fixture *upstream.Fixture) *models.LiveMatch {
	status, ok := statusTable[strings.ToUpper(fixture.Status.Code)]
	if !ok {
		status = models.StatusNotStarted
		if fixture.Status.Elapsed != nil {
			status = models.StatusLive
		}
	}

	match := &models.LiveMatch{
		ID:        strconv.FormatInt(fixture.ID, 10),
		HomeTeam:  fixture.Teams.Home.Name,
		AwayTeam:  fixture.Teams.Away.Name,
		League:    s.titleCaser.String(strings.ToLower(fixture.League.Name)),
		HomeScore: intOrZero(fixture.Goals.Home),
		AwayScore: intOrZero(fixture.Goals.Away),
		Minute:    intOrZero(fixture.Status.Elapsed),
		Status:    status,
		HomeStats: s.sideStats(fixture, fixture.Teams.Home.ID),
		AwayStats: s.sideStats(fixture, fixture.Teams.Away.ID),
		UpdatedAt: time.Now().UTC(),
	}
	return match
}

func (s *IngestionService) sideStats(fixture *upstream.Fixture, teamID int64) models.TeamStats {
	stats := models.TeamStats{Possession: 50}

	for _, block := range fixture.Stats {
		if block.Team.ID != teamID {
			continue
		}
		for _, item := range block.Items {
			switch item.Type {
			case "Ball Possession":
				if v, ok := parseStatPercent(item.Value); ok {
					stats.Possession = v
				}
			case "Shots on Goal", "Shots on Target":
				stats.ShotsOnTarget = parseStatInt(item.Value)
			case "Shots off Goal", "Shots off Target":
				stats.ShotsOffTarget = parseStatInt(item.Value)
			case "Corner Kicks", "Corners":
				stats.Corners = parseStatInt(item.Value)
			case "Dangerous Attacks":
				stats.DangerousAttacks = parseStatInt(item.Value)
			}
		}
	}

	for _, event := range fixture.Events {
		if event.Team.ID == teamID && event.Type == "Card" && strings.Contains(event.Detail, "Red") {
			stats.RedCards++
		}
	}
	return stats
}

// parseStatInt accepts a JSON number, a numeric string, or null.
func parseStatInt(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			return v
		}
	}
	return 0
}

// parseStatPercent accepts "58%", "58", or a JSON number.
func parseStatPercent(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
