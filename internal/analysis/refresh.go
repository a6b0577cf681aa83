package analysis

import "time"

// NextRefresh returns the start of the slot after the one containing now, plus
// buffer. Slots are aligned to multiples of slot from midnight in now's
// location, so a 30-minute slot and 5s buffer give hh:00:05 or hh:30:05.
func NextRefresh(now time.Time, slot, buffer time.Duration) time.Time {
	if slot <= 0 {
		slot = 30 * time.Minute
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight)
	return midnight.Add((elapsed/slot+1)*slot + buffer)
}
