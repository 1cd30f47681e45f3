package profile

import "time"

// sameDay 两个时间在 loc 时区是否同一日历日
func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// IsToday last 与 now 同一本地日历日
func IsToday(last, now time.Time) bool {
	return sameDay(last, now, now.Location())
}

// IsYesterday last 是 now 的前一个本地日历日
func IsYesterday(last, now time.Time) bool {
	y, m, d := now.Date()
	yesterday := time.Date(y, m, d-1, 12, 0, 0, 0, now.Location())
	return sameDay(last, yesterday, now.Location())
}

// NextStreak 计算本次游玩后的连续天数
//
// Yesterday extends the streak, today keeps it, anything else (including no
// previous play) starts over at 1. Calendar days are taken in now's location.
func NextStreak(current int, lastPlayed *time.Time, now time.Time) int {
	if lastPlayed == nil {
		return 1
	}
	switch {
	case IsToday(*lastPlayed, now):
		if current < 1 {
			return 1
		}
		return current
	case IsYesterday(*lastPlayed, now):
		return current + 1
	default:
		return 1
	}
}
