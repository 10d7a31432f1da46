package cache

import (
	"time"
)

// TimeUntilNextHour は loc における次の hour:00 までの期間を返します。
// 日次の取り込み後にキャッシュが切れるよう TTL として使います。
func TimeUntilNextHour(hour int, loc *time.Location) time.Duration {
	return untilNextHour(time.Now(), hour, loc)
}

func untilNextHour(now time.Time, hour int, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)
	// 既に過ぎていれば翌日（夏時間の切替日でも壁時計で hour 時）
	if !now.Before(next) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, loc)
	}
	return next.Sub(now)
}
