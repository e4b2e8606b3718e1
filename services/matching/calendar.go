package matching

import (
	"time"
)

const (
	localDateLayout = "2006-01-02"
	minTZOffset     = -12 * 60
	maxTZOffset     = 14 * 60
)

// Day - локальные сутки пользователя для лимита лайков
type Day struct {
	Date  string
	Start time.Time
	End   time.Time
}

// Calendar вычисляет начало локальных суток по смещению, которое передает клиент
type Calendar struct {
	DefaultOffsetMinutes int
}

// StartOfLocalDay возвращает UTC-момент начала локальных суток для смещения tzOffsetMinutes
func StartOfLocalDay(tzOffsetMinutes int, now time.Time) time.Time {
	zone := time.FixedZone("", tzOffsetMinutes*60)
	local := now.In(zone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	return start.UTC()
}

// LocalDate возвращает дату YYYY-MM-DD в зоне со смещением tzOffsetMinutes
func LocalDate(tzOffsetMinutes int, now time.Time) string {
	return now.In(time.FixedZone("", tzOffsetMinutes*60)).Format(localDateLayout)
}

// Resolve определяет локальные сутки. localDate (если задан) имеет приоритет, но
// должен совпадать с датой, возможной где-то на Земле в момент now
func (c Calendar) Resolve(localDate string, tzOffsetMinutes *int, now time.Time) (Day, error) {
	offset := c.DefaultOffsetMinutes
	if tzOffsetMinutes != nil {
		offset = *tzOffsetMinutes
	}
	if offset < minTZOffset || offset > maxTZOffset {
		return Day{}, ErrInvalidRequest.WithDetail("reason", "tz_offset_minutes out of range")
	}
	zone := time.FixedZone("", offset*60)

	if localDate == "" {
		start := StartOfLocalDay(offset, now)
		return Day{
			Date:  LocalDate(offset, now),
			Start: start,
			End:   start.Add(24 * time.Hour),
		}, nil
	}

	parsed, err := time.ParseInLocation(localDateLayout, localDate, zone)
	if err != nil {
		return Day{}, ErrInvalidRequest.WithDetail("reason", "local_date must be YYYY-MM-DD")
	}
	earliest := LocalDate(minTZOffset, now)
	latest := LocalDate(maxTZOffset, now)
	if localDate < earliest || localDate > latest {
		return Day{}, ErrInvalidRequest.WithDetail("reason", "local_date is too far from current date")
	}
	return Day{
		Date:  localDate,
		Start: parsed.UTC(),
		End:   parsed.Add(24 * time.Hour).UTC(),
	}, nil
}
