package engagement

import (
	"log"
	"time"

	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/database/models"
	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/reactions"
)

// Snapshot copies every table. Tables are read one at a time in the order
// registry, ledger, aggregator.
func (s *Service) Snapshot() *models.Snapshot {
	snap := &models.Snapshot{
		ID:      models.SnapshotID,
		Version: models.SnapshotVersion,
		SavedAt: s.now().UTC(),
	}

	for _, rec := range s.registry.Export() {
		snap.Chats = append(snap.Chats, models.Chat{
			ChatID:          rec.ChatID,
			Subscribed:      rec.Subscribed,
			IntervalSeconds: int64(rec.Schedule.Interval / time.Second),
			LastSent:        rec.Schedule.LastSent,
			Format:          string(rec.Settings.Format),
			Welcome:         rec.Settings.Welcome,
		})
	}

	for _, b := range s.ledger.Export() {
		snap.Reactions = append(snap.Reactions, models.Reaction{
			ChatID:    b.ChatID,
			MessageID: b.MessageID,
			UserID:    b.UserID,
			Kind:      string(b.Kind),
		})
	}

	for _, rec := range s.board.ExportActivity() {
		snap.Activity = append(snap.Activity, models.UserActivity{
			ChatID:  rec.ChatID,
			UserID:  rec.UserID,
			Name:    rec.Name,
			Overall: rec.Overall,
			Daily:   rec.Daily,
			Weekly:  rec.Weekly,
		})
	}

	totals := s.board.Totals()
	snap.GrandTotal = totals.GrandTotal
	for _, c := range totals.PerChat {
		snap.Broadcasts = append(snap.Broadcasts, models.ChatCount{ChatID: c.ChatID, Count: c.Count})
	}

	for _, rec := range s.board.ExportProfiles() {
		snap.Profiles = append(snap.Profiles, models.UserProfile{
			ChatID:         rec.ChatID,
			UserID:         rec.UserID,
			JoinedAt:       rec.JoinedAt,
			ReactionsGiven: rec.ReactionsGiven,
			QuoteRequests:  rec.QuoteRequests,
		})
	}

	s.lastMu.RLock()
	for chatID, item := range s.last {
		snap.LastDelivered = append(snap.LastDelivered, models.DeliveredItem{ChatID: chatID, Quote: item.Quote, Author: item.Author})
	}
	s.lastMu.RUnlock()

	return snap
}

func (s *Service) restore(snap *models.Snapshot) {
	if snap.Version > models.SnapshotVersion {
		log.Printf("[Persistence] Snapshot version %d is newer than %d, loading what is understood", snap.Version, models.SnapshotVersion)
	}

	records := make([]chats.ChatRecord, 0, len(snap.Chats))
	for _, c := range snap.Chats {
		records = append(records, chats.ChatRecord{
			ChatID:     c.ChatID,
			Subscribed: c.Subscribed,
			Schedule: chats.Schedule{
				Interval: time.Duration(c.IntervalSeconds) * time.Second,
				LastSent: c.LastSent,
			},
			Settings: chats.Settings{Format: chats.Format(c.Format), Welcome: c.Welcome},
		})
	}
	if fixed := s.registry.Import(records); fixed > 0 {
		log.Printf("[Persistence] Repaired %d chat record(s)", fixed)
	}

	ballots := make([]reactions.Ballot, 0, len(snap.Reactions))
	for _, r := range snap.Reactions {
		ballots = append(ballots, reactions.Ballot{ChatID: r.ChatID, MessageID: r.MessageID, UserID: r.UserID, Kind: reactions.Kind(r.Kind)})
	}
	if skipped := s.ledger.Import(ballots); skipped > 0 {
		log.Printf("[Persistence] Skipped %d reaction(s) with unknown kind", skipped)
	}

	activity := make([]leaderboard.ActivityRecord, 0, len(snap.Activity))
	for _, a := range snap.Activity {
		activity = append(activity, leaderboard.ActivityRecord{
			ChatID: a.ChatID,
			UserID: a.UserID,
			Activity: &leaderboard.Activity{
				Name:    a.Name,
				Overall: a.Overall,
				Daily:   a.Daily,
				Weekly:  a.Weekly,
			},
		})
	}
	s.board.ImportActivity(activity)

	totals := leaderboard.Totals{GrandTotal: snap.GrandTotal}
	for _, c := range snap.Broadcasts {
		totals.PerChat = append(totals.PerChat, leaderboard.ChatCount{ChatID: c.ChatID, Count: c.Count})
	}
	s.board.ImportTotals(totals)

	profiles := make([]leaderboard.ProfileRecord, 0, len(snap.Profiles))
	for _, p := range snap.Profiles {
		profiles = append(profiles, leaderboard.ProfileRecord{
			ChatID: p.ChatID,
			UserID: p.UserID,
			Profile: leaderboard.Profile{
				JoinedAt:       p.JoinedAt,
				ReactionsGiven: p.ReactionsGiven,
				QuoteRequests:  p.QuoteRequests,
			},
		})
	}
	s.board.ImportProfiles(profiles)

	last := make(map[int64]content.Item, len(snap.LastDelivered))
	for _, d := range snap.LastDelivered {
		last[d.ChatID] = content.Item{Quote: d.Quote, Author: d.Author}
	}
	s.lastMu.Lock()
	s.last = last
	s.lastMu.Unlock()
}
