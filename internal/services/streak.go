package services

import "github.com/AnshRaj112/moodjournal-backend/internal/models"

// NextStreak computes the streak and last-login date after a mood entry for
// entryDate. The streak grows on a write exactly one day after the last
// login, holds on a same-day write and otherwise restarts at 1 (back-dated
// writes included). last_login only ever moves forward.
func NextStreak(lastLogin *models.Date, streak int, entryDate models.Date) (int, *models.Date) {
	if lastLogin == nil {
		d := entryDate
		return 1, &d
	}

	next := 1
	switch {
	case lastLogin.AddDays(1).Equal(entryDate):
		next = streak + 1
	case lastLogin.Equal(entryDate):
		next = streak
	}

	if entryDate.After(*lastLogin) {
		d := entryDate
		return next, &d
	}
	return next, lastLogin
}
