package finance

import "time"

// getEasternTime returns America/New_York location, falling back to fixed EST if tzdata is missing.
func getEasternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// exchangeLocation resolves the exchange timezone Yahoo reports, defaulting to Eastern.
func exchangeLocation(name string) *time.Location {
	if name == "" {
		return getEasternTime()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return getEasternTime()
	}
	return loc
}

// tradingDay maps a bar timestamp to its trading date at UTC midnight, the
// date key every price source uses so series from different sources line up.
func tradingDay(ts int64, loc *time.Location) time.Time {
	t := time.Unix(ts, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateOnly truncates t to its calendar date at UTC midnight.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
