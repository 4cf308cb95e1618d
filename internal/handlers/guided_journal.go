package handlers

import (
	"net/http"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

// CreateGuidedJournalEntry stores the four guided-journal steps for a date.
// Unknown cognitive distortions are rejected with 400.
func CreateGuidedJournalEntry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	var req models.GuidedJournalEntryCreate
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

	entry, err := services.UpsertGuidedJournalEntry(ctx, u.ID, req)
	if err != nil {
		writeServiceError(w, err, "upsert guided journal entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func ListGuidedJournalEntries(w http.ResponseWriter, r *http.Request) {
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

	entries, err := services.ListGuidedJournalEntries(ctx, u.ID, page)
	if err != nil {
		writeServiceError(w, err, "list guided journal entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func GetGuidedJournalEntryByID(w http.ResponseWriter, r *http.Request) {
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

	entry, err := services.GetGuidedJournalEntryByID(ctx, u.ID, id)
	if err != nil {
		writeServiceError(w, err, "get guided journal entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func GetGuidedJournalEntryByDate(w http.ResponseWriter, r *http.Request) {
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

	entry, err := services.GetGuidedJournalEntryByDate(ctx, u.ID, date)
	if err != nil {
		writeServiceError(w, err, "get guided journal entry by date")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
