package store

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Esmakirs9082/chat-sub000/internal/apiclient"
	"github.com/Esmakirs9082/chat-sub000/internal/forms"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
	"github.com/Esmakirs9082/chat-sub000/internal/persist"
)

const characterViewBlob = "chatsub.characters"

type SortKey string

const (
	SortByName   SortKey = "name"
	SortByNewest SortKey = "newest"
)

type Filters struct {
	Search      string   `json:"search"`
	Tags        []string `json:"tags"`
	NSFWEnabled bool     `json:"nsfwEnabled"`
	Sort        SortKey  `json:"sort"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// FilterPatch merges into the persisted filter state; nil fields keep their
// current value.
type FilterPatch struct {
	Search      *string
	Tags        *[]string
	NSFWEnabled *bool
	Sort        *SortKey
}

// characterView is the persisted allow-list: favorites and view state only.
// The catalog itself is always refetched.
type characterView struct {
	Favorites  []string   `json:"favorites"`
	Filters    Filters    `json:"filters"`
	Pagination Pagination `json:"pagination"`
}

// CharacterStore owns the character catalog, the favorites id-set, and the
// filter/pagination view state.
type CharacterStore struct {
	mu         sync.RWMutex
	api        *apiclient.Client
	kv         *persist.Store
	logger     *slog.Logger
	characters []models.Character
	favorites  map[string]struct{}
	filters    Filters
	pagination Pagination
	selectedID string
	loading    bool
	lastErr    string
}

func NewCharacters(ctx context.Context, api *apiclient.Client, kv *persist.Store) *CharacterStore {
	s := &CharacterStore{
		api:        api,
		kv:         kv,
		logger:     slog.Default(),
		favorites:  make(map[string]struct{}),
		pagination: Pagination{Page: 1, PageSize: 20},
	}

	if kv != nil {
		var view characterView
		found, err := kv.Get(ctx, characterViewBlob, &view)
		if err != nil {
			s.logger.Warn("restoring character view state", "error", err)
		} else if found {
			for _, id := range view.Favorites {
				s.favorites[id] = struct{}{}
			}
			s.filters = view.Filters
			if view.Pagination.Page > 0 {
				s.pagination = view.Pagination
			}
		}
	}
	return s
}

// LoadCharacters merges any filter changes into the persisted view state and
// replaces the catalog from the server.
func (s *CharacterStore) LoadCharacters(ctx context.Context, patch *FilterPatch) error {
	if patch != nil {
		s.mu.Lock()
		if patch.Search != nil {
			s.filters.Search = *patch.Search
		}
		if patch.Tags != nil {
			s.filters.Tags = *patch.Tags
		}
		if patch.NSFWEnabled != nil {
			s.filters.NSFWEnabled = *patch.NSFWEnabled
		}
		if patch.Sort != nil {
			s.filters.Sort = *patch.Sort
		}
		s.mu.Unlock()
		s.persistView(ctx)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var out []models.Character
	if err := s.api.Request(ctx, http.MethodGet, "/characters", nil, &out); err != nil {
		s.logger.Error("loading characters", "error", err)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.characters = out
	s.mu.Unlock()
	s.recordErr(nil)
	return nil
}

// LoadCharacter resolves a character from the in-memory catalog. It is a local
// lookup and fails with a NotFoundError, never a network error.
func (s *CharacterStore) LoadCharacter(id string) (models.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.characters {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Character{}, &NotFoundError{Resource: "character", ID: id}
}

func (s *CharacterStore) CreateCharacter(ctx context.Context, form forms.CharacterForm) (models.Character, error) {
	if err := forms.Validate(form); err != nil {
		s.recordErr(err)
		return models.Character{}, err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var out models.Character
	if err := s.api.Request(ctx, http.MethodPost, "/characters", form, &out); err != nil {
		s.logger.Error("creating character", "error", err)
		s.recordErr(err)
		return models.Character{}, err
	}

	s.mu.Lock()
	s.characters = append(s.characters, out)
	s.mu.Unlock()
	s.recordErr(nil)
	return out, nil
}

func (s *CharacterStore) UpdateCharacter(ctx context.Context, id string, patch models.CharacterPatch) error {
	var out models.Character
	if err := s.api.Request(ctx, http.MethodPatch, "/characters/"+id, patch, &out); err != nil {
		s.logger.Error("updating character", "error", err, "character_id", id)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	for i := range s.characters {
		if s.characters[i].ID == id {
			s.characters[i] = out
			break
		}
	}
	s.mu.Unlock()
	s.recordErr(nil)
	return nil
}

// DeleteCharacter removes the character from the catalog, purges it from
// favorites, and clears the selection if it pointed at the deleted id.
func (s *CharacterStore) DeleteCharacter(ctx context.Context, id string) error {
	if err := s.api.Request(ctx, http.MethodDelete, "/characters/"+id, nil, nil); err != nil {
		s.logger.Error("deleting character", "error", err, "character_id", id)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	kept := s.characters[:0]
	for _, c := range s.characters {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.characters = kept
	delete(s.favorites, id)
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.persistView(ctx)
	s.recordErr(nil)
	return nil
}

// ToggleFavorite flips membership in the favorites set. Toggling twice
// restores the prior state.
func (s *CharacterStore) ToggleFavorite(id string) {
	s.mu.Lock()
	if _, ok := s.favorites[id]; ok {
		delete(s.favorites, id)
	} else {
		s.favorites[id] = struct{}{}
	}
	s.mu.Unlock()

	s.persistView(context.Background())
}

func (s *CharacterStore) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[id]
	return ok
}

// SelectCharacter records the currently focused character id. An empty id
// clears the selection.
func (s *CharacterStore) SelectCharacter(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

func (s *CharacterStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// FilteredCharacters is a pure selector over (characters, filters): search,
// then tag intersection, then NSFW exclusion, then a stable sort. The order
// of application is significant.
func (s *CharacterStore) FilteredCharacters() []models.Character {
	s.mu.RLock()
	characters := make([]models.Character, len(s.characters))
	copy(characters, s.characters)
	filters := s.filters
	s.mu.RUnlock()

	result := characters[:0]
	search := strings.ToLower(strings.TrimSpace(filters.Search))
	for _, c := range characters {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		if len(filters.Tags) > 0 && !c.HasAnyTag(filters.Tags) {
			continue
		}
		if c.IsNSFW && !filters.NSFWEnabled {
			continue
		}
		result = append(result, c)
	}

	switch filters.Sort {
	case SortByName:
		sort.SliceStable(result, func(i, j int) bool {
			return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
		})
	case SortByNewest:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}

	return result
}

// FavoriteCharacters returns the catalog filtered by favorites membership.
func (s *CharacterStore) FavoriteCharacters() []models.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Character
	for _, c := range s.characters {
		if _, ok := s.favorites[c.ID]; ok {
			result = append(result, c)
		}
	}
	return result
}

func (s *CharacterStore) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *CharacterStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *CharacterStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *CharacterStore) persistView(ctx context.Context) {
	if s.kv == nil {
		return
	}

	s.mu.RLock()
	view := characterView{
		Favorites:  make([]string, 0, len(s.favorites)),
		Filters:    s.filters,
		Pagination: s.pagination,
	}
	for id := range s.favorites {
		view.Favorites = append(view.Favorites, id)
	}
	s.mu.RUnlock()
	sort.Strings(view.Favorites)

	if err := s.kv.Put(ctx, characterViewBlob, view); err != nil {
		s.logger.Error("persisting character view state", "error", err)
	}
}

func (s *CharacterStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *CharacterStore) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}
