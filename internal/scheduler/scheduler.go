// Package scheduler provides the expiration timers the effects engine arms.
// Every adapter fires each successful Schedule exactly once unless it is
// cancelled or replaced by a later Schedule of the same (target, key).
package scheduler

import (
	"sort"
	"strings"
	"time"
)

// unitSeparator joins target and key into one timer id. Neither targets nor
// trigger keys use it.
const unitSeparator = "\x1f"

// Pending describes a timer that has not fired yet
type Pending struct {
	Target string
	Key    string
	Due    time.Time
}

func timerID(target, key string) string {
	return target + unitSeparator + key
}

func splitTimerID(id string) (target, key string, ok bool) {
	return strings.Cut(id, unitSeparator)
}

func sortPending(pending []Pending) {
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].Due.Equal(pending[j].Due) {
			return pending[i].Due.Before(pending[j].Due)
		}
		return pending[i].Target+pending[i].Key < pending[j].Target+pending[j].Key
	})
}
