package stats

import (
	"sort"
	"time"

	"teleasistencia-backend/internal/types"
)

const (
	// OKWindowDays is the maximum age of the last successful call for
	// a beneficiary to count as on-track.
	OKWindowDays = 15

	// DangerWindowDays is the silence threshold: a beneficiary whose
	// last call of any outcome is at least this old is urgent.
	DangerWindowDays = 30
)

// Classify derives the follow-up status of a beneficiary from their
// call history. Pure function of the history and the given "now":
//
//   - OK when the most recent successful call is 15 days old or fewer
//   - DANGER when there is no call at all, the most recent call is 30
//     or more days old, or no call was ever successful
//   - WARNING otherwise (recent activity, no qualifying success)
func Classify(history []types.CallRecord, now time.Time) types.FollowUpStatus {
	if len(history) == 0 {
		return types.StatusDanger
	}

	ordered := make([]types.CallRecord, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})

	var lastSuccess *types.CallRecord
	for i := range ordered {
		if ordered[i].Successful {
			lastSuccess = &ordered[i]
			break
		}
	}

	if lastSuccess != nil && daysBetween(lastSuccess.Timestamp, now) <= OKWindowDays {
		return types.StatusOK
	}
	if daysBetween(ordered[0].Timestamp, now) >= DangerWindowDays {
		return types.StatusDanger
	}
	if lastSuccess == nil {
		return types.StatusDanger
	}
	return types.StatusWarning
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
