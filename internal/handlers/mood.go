package handlers

import (
	"net/http"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

// CreateMoodEntry records (or replaces) the caller's mood for a date.
func CreateMoodEntry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	var req models.MoodEntryCreate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entry, err := services.UpsertMoodEntry(ctx, u.ID, req)
	if err != nil {
		writeServiceError(w, err, "upsert mood entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func ListMoodEntries(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	page, msg := parsePagination(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entries, err := services.ListMoodEntries(ctx, u.ID, page)
	if err != nil {
		writeServiceError(w, err, "list mood entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetMoodEntryByID answers null when the entry is missing or not the caller's.
func GetMoodEntryByID(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entry, err := services.GetMoodEntryByID(ctx, u.ID, id)
	if err != nil {
		writeServiceError(w, err, "get mood entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func GetMoodEntryByDate(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	date, ok := pathDate(r, "date")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entry, err := services.GetMoodEntryByDate(ctx, u.ID, date)
	if err != nil {
		writeServiceError(w, err, "get mood entry by date")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// GetMoodEntriesInRange lists entries between start_date and end_date inclusive.
func GetMoodEntriesInRange(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	q := r.URL.Query()
	start, err := models.ParseDate(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return
	}
	end, err := models.ParseDate(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return
	}
	if start.After(end) {
		writeError(w, http.StatusBadRequest, "Start date must be before end date")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entries, err := services.MoodEntriesInRange(ctx, u.ID, start, end)
	if err != nil {
		writeServiceError(w, err, "mood entries in range")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
