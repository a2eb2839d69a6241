package store

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Esmakirs9082/chat-sub000/internal/apiclient"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
	"github.com/Esmakirs9082/chat-sub000/internal/persist"
)

const settingsBlob = "chatsub.settings"

// SyncResult is the outcome of one background settings save. Callers may
// inspect it or drop the channel; a failed save never rolls back the local
// change.
type SyncResult struct {
	Err error
}

// SettingsStore is local-first: every mutator applies the change
// synchronously, runs any environment side effect, then schedules a
// fire-and-forget save to the server.
type SettingsStore struct {
	mu          sync.RWMutex
	api         *apiclient.Client
	kv          *persist.Store
	logger      *slog.Logger
	settings    models.Settings
	applyTheme  func(models.Theme)
	prefersDark func() bool
}

// NewSettings restores persisted settings or falls back to defaults.
// applyTheme mirrors the document-root class side effect and may be nil;
// prefersDark supplies the environment color-scheme preference for first run.
func NewSettings(ctx context.Context, api *apiclient.Client, kv *persist.Store, applyTheme func(models.Theme), prefersDark func() bool) *SettingsStore {
	if prefersDark == nil {
		prefersDark = func() bool { return true }
	}

	s := &SettingsStore{
		api:         api,
		kv:          kv,
		logger:      slog.Default(),
		applyTheme:  applyTheme,
		prefersDark: prefersDark,
		settings:    models.DefaultSettings(prefersDark()),
	}

	if kv != nil {
		var saved models.Settings
		found, err := kv.Get(ctx, settingsBlob, &saved)
		if err != nil {
			s.logger.Warn("restoring settings", "error", err)
		} else if found {
			s.settings = saved
		}
	}

	s.runApplyTheme()
	return s
}

func (s *SettingsStore) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsStore) SetTheme(theme models.Theme) <-chan SyncResult {
	s.mu.Lock()
	s.settings.Theme = theme
	s.mu.Unlock()

	s.runApplyTheme()
	s.persistLocal()
	return s.scheduleSave()
}

func (s *SettingsStore) ToggleNSFW() <-chan SyncResult {
	s.mu.Lock()
	s.settings.NSFWEnabled = !s.settings.NSFWEnabled
	s.mu.Unlock()

	s.persistLocal()
	return s.scheduleSave()
}

func (s *SettingsStore) UpdateNotifications(n models.NotificationSettings) <-chan SyncResult {
	s.mu.Lock()
	s.settings.Notifications = n
	s.mu.Unlock()

	s.persistLocal()
	return s.scheduleSave()
}

func (s *SettingsStore) UpdateChatSettings(c models.ChatBehaviorSettings) <-chan SyncResult {
	s.mu.Lock()
	s.settings.Chat = c
	s.mu.Unlock()

	s.persistLocal()
	return s.scheduleSave()
}

func (s *SettingsStore) UpdatePrivacy(p models.PrivacySettings) <-chan SyncResult {
	s.mu.Lock()
	s.settings.Privacy = p
	s.mu.Unlock()

	s.persistLocal()
	return s.scheduleSave()
}

// LoadSettings fetches server settings. Server state wins on load: if the
// server returns a settings document, local state is overwritten wholesale.
// Between loads the local copy is the source of truth.
func (s *SettingsStore) LoadSettings(ctx context.Context) error {
	var out *models.Settings
	if err := s.api.Request(ctx, http.MethodGet, "/settings", nil, &out); err != nil {
		s.logger.Error("loading settings", "error", err)
		return err
	}
	if out == nil {
		return nil
	}

	s.mu.Lock()
	s.settings = *out
	s.mu.Unlock()

	s.runApplyTheme()
	s.persistLocal()
	return nil
}

// ResetToDefaults restores the fixed default bundle and re-triggers a save.
func (s *SettingsStore) ResetToDefaults() <-chan SyncResult {
	s.mu.Lock()
	s.settings = models.DefaultSettings(s.prefersDark())
	s.mu.Unlock()

	s.runApplyTheme()
	s.persistLocal()
	return s.scheduleSave()
}

// scheduleSave pushes the current settings to the server without blocking the
// caller. Failures are logged and reported on the result channel only.
func (s *SettingsStore) scheduleSave() <-chan SyncResult {
	s.mu.RLock()
	snapshot := s.settings
	s.mu.RUnlock()

	result := make(chan SyncResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), apiclient.DefaultTimeout)
		defer cancel()

		err := s.api.Request(ctx, http.MethodPut, "/settings", snapshot, nil)
		if err != nil {
			s.logger.Warn("background settings sync failed", "error", err)
			result <- SyncResult{Err: err}
			return
		}

		now := time.Now().UTC()
		s.mu.Lock()
		s.settings.LastSyncedAt = &now
		s.mu.Unlock()
		s.persistLocal()
		result <- SyncResult{}
	}()
	return result
}

func (s *SettingsStore) persistLocal() {
	if s.kv == nil {
		return
	}

	s.mu.RLock()
	snapshot := s.settings
	s.mu.RUnlock()

	if err := s.kv.Put(context.Background(), settingsBlob, snapshot); err != nil {
		s.logger.Error("persisting settings", "error", err)
	}
}

func (s *SettingsStore) runApplyTheme() {
	if s.applyTheme == nil {
		return
	}
	s.mu.RLock()
	theme := s.settings.Theme
	s.mu.RUnlock()
	s.applyTheme(theme)
}
