package db

import (
	"bundler/config"
	"bundler/logger"
	"bundler/types"
	"bundler/utils"
)

// History is the orchestrator-facing view over the store. Inserts are
// deduped through an in-memory seen cache seeded from the table, so a
// resubmitted id never produces a second row.
type History struct {
	database Database
	seen     *utils.SeenCache
}

func NewHistory(database Database) *History {
	seen := utils.NewSeenCache(config.SEEN_CACHE_CAPACITY)

	ids, err := database.QueryLatestBundleIds(config.HISTORY_RECENT_QUERY_LIMIT)
	if err != nil {
		logger.GlobalLogger.Error("Failed to seed submission cache from store", "err", err)
	} else {
		for _, id := range ids {
			seen.Add(id)
		}
	}

	return &History{database: database, seen: seen}
}

func (h *History) InsertSubmission(row *types.SubmittedBundle) error {
	if h.seen.Has(row.BundleID) {
		return nil
	}
	if err := h.database.InsertSubmission(row); err != nil {
		return err
	}
	h.seen.Add(row.BundleID)
	return nil
}

func (h *History) UpdateOutcome(bundleID string, outcome *types.Outcome) error {
	return h.database.UpdateOutcome(bundleID, outcome)
}
