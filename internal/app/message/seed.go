package message

import (
	"context"
	"fmt"
)

var rulesSeed = []string{
	"**PROTOCOL 1: THE GREAT WEB**\nWe are the antibodies of the multiverse. Our task is to protect the strands that hold existence together.",
	"**PROTOCOL 2: ANOMALY CONTAINMENT**\nAnomalies threaten the stability of the host dimension. Locate, contain, and return them immediately.",
	"**PROTOCOL 3: DIMENSIONAL WATCHES**\nAll agents must maintain watch synchronization. Failure to do so will result in cellular decay.",
	"**PROTOCOL 4: CANON EVENTS**\nThese are absolute points in time. Disrupting a Canon Event can destroy an entire universe.",
	"**PROTOCOL 5: GO-HOME MACHINE**\nCaptured anomalies must be sent back to their native dimension via the Go-Home Machine.",
}

const missionSeed = "⚠️ **ANOMALY DETECTED**\n**Location:** Earth-65\n**Threat Level:** 4\n**Target:** Vulture (Variant)\n**Status:** OPEN - NEED 2 AGENTS"

// SeedDefaults writes the starter content of the rules and missions-board channels
// when they are empty. It is safe to run on every start.
func (s *Service) SeedDefaults(ctx context.Context) error {
	seeds := []struct {
		channel string
		drafts  []Draft
	}{
		{channel: "rules", drafts: rulesDrafts()},
		{channel: "missions-board", drafts: []Draft{{
			ChannelID:    "missions-board",
			AuthorID:     SystemAuthorID,
			AuthorName:   "MIGUEL O'HARA",
			AuthorAvatar: "miguel.png",
			Text:         missionSeed,
			Type:         TypeText,
		}}},
	}

	for _, seed := range seeds {
		n, err := s.repo.Count(ctx, seed.channel)
		if err != nil {
			return fmt.Errorf("count %s: %w", seed.channel, err)
		}
		if n > 0 {
			continue
		}

		for _, d := range seed.drafts {
			if _, err := s.Append(ctx, d); err != nil {
				return fmt.Errorf("seed %s: %w", seed.channel, err)
			}
		}
		s.logger.Info().Str("channel_id", seed.channel).Int("messages", len(seed.drafts)).Msg("Seeded default content")
	}

	return nil
}

func rulesDrafts() []Draft {
	drafts := make([]Draft, 0, len(rulesSeed))
	for _, text := range rulesSeed {
		drafts = append(drafts, Draft{
			ChannelID:    "rules",
			AuthorID:     SystemAuthorID,
			AuthorName:   "LYLA",
			AuthorAvatar: "lyla.png",
			Text:         text,
			Type:         TypeSystem,
		})
	}
	return drafts
}
