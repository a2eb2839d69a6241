package stubapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Esmakirs9082/chat-sub000/internal/ids"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

type characterRequest struct {
	Name        string                    `json:"name" validate:"required,min=2,max=64"`
	Description string                    `json:"description" validate:"required,max=2000"`
	AvatarURL   *string                   `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Personality []models.PersonalityTrait `json:"personality" validate:"max=20"`
	Tags        []string                  `json:"tags" validate:"max=10,dive,min=1,max=32"`
	IsNSFW      bool                      `json:"isNsfw"`
	IsPublic    bool                      `json:"isPublic"`
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.state.listCharacters())
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := ids.New("chr")
	if err != nil {
		internalError(w)
		return
	}

	character := models.Character{
		ID:          id,
		Name:        sanitizer.Sanitize(req.Name),
		Description: sanitizer.Sanitize(req.Description),
		AvatarURL:   req.AvatarURL,
		Personality: req.Personality,
		IsNSFW:      req.IsNSFW,
		IsPublic:    req.IsPublic,
		CreatorID:   requestUserID(r),
		Tags:        req.Tags,
		CreatedAt:   time.Now().UTC(),
	}

	s.state.mu.Lock()
	s.state.characters[character.ID] = &character
	s.state.mu.Unlock()

	writeData(w, http.StatusCreated, character)
}

func (s *Server) handleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch models.CharacterPatch
	if err := decodeAndValidate(r.Body, &patch); err != nil {
		badRequest(w, err.Error())
		return
	}
	if patch.Name != nil {
		clean := sanitizer.Sanitize(*patch.Name)
		patch.Name = &clean
	}
	if patch.Description != nil {
		clean := sanitizer.Sanitize(*patch.Description)
		patch.Description = &clean
	}

	s.state.mu.Lock()
	character, ok := s.state.characters[id]
	if !ok {
		s.state.mu.Unlock()
		notFound(w, "Character not found")
		return
	}
	if character.CreatorID != "system" && character.CreatorID != requestUserID(r) {
		s.state.mu.Unlock()
		forbidden(w, "You do not own this character")
		return
	}
	patch.Apply(character)
	updated := *character
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.state.mu.Lock()
	character, ok := s.state.characters[id]
	if !ok {
		s.state.mu.Unlock()
		notFound(w, "Character not found")
		return
	}
	if character.CreatorID != "system" && character.CreatorID != requestUserID(r) {
		s.state.mu.Unlock()
		forbidden(w, "You do not own this character")
		return
	}
	delete(s.state.characters, id)
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, nil)
}
