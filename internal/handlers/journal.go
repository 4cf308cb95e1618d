package handlers

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

// CreateJournalEntry writes the caller's journal for a date. An optional base64
// image is normalized and stored first.
func CreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	var req models.JournalEntryCreate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return
	}
	if req.Image != nil && strings.TrimSpace(*req.Image) == "" {
		req.Image = nil
	}

	ctx, cancel := uploadContext(r)
	defer cancel()

	entry, err := services.UpsertJournalEntry(ctx, u.ID, req)
	if err != nil {
		writeServiceError(w, err, "upsert journal entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func ListJournalEntries(w http.ResponseWriter, r *http.Request) {
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

	entries, err := services.ListJournalEntries(ctx, u.ID, page)
	if err != nil {
		writeServiceError(w, err, "list journal entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func GetJournalEntryByID(w http.ResponseWriter, r *http.Request) {
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

	entry, err := services.GetJournalEntryByID(ctx, u.ID, id)
	if err != nil {
		writeServiceError(w, err, "get journal entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func GetJournalEntryByDate(w http.ResponseWriter, r *http.Request) {
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

	entry, err := services.GetJournalEntryByDate(ctx, u.ID, date)
	if err != nil {
		writeServiceError(w, err, "get journal entry by date")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
