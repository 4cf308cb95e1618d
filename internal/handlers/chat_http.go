package handlers

import (
	"net/http"

	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

// LoadChatHistory returns the caller's conversation with another user, oldest
// first. Only messages the caller sent or received are ever returned.
func LoadChatHistory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	otherID, ok := pathID(r, "other_user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	page, msg := parsePagination(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	messages, err := services.LoadChatMessagesWithCache(ctx, u.ID, otherID, page)
	if err != nil {
		writeServiceError(w, err, "load chat history")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
