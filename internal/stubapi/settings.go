package stubapi

import (
	"encoding/json"
	"net/http"

	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	s.state.mu.Lock()
	settings, ok := s.state.settings[userID]
	s.state.mu.Unlock()

	if !ok {
		// Unknown user settings resolve to an empty document, not an error.
		writeData(w, http.StatusOK, nil)
		return
	}
	writeData(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	userID := requestUserID(r)
	s.state.mu.Lock()
	s.state.settings[userID] = settings
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, settings)
}
