package stubapi

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Esmakirs9082/chat-sub000/internal/ids"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

// sanitizer strips any markup from user-supplied text before it is stored.
var sanitizer = bluemonday.StrictPolicy()

// state is the stub's in-memory world: users, characters, chats, settings,
// subscriptions. One mutex guards everything; contention is not a concern here.
type state struct {
	mu sync.Mutex

	users         map[string]*models.User // by id
	passwords     map[string]string       // user id -> sha256(password)
	emails        map[string]string       // email -> user id
	characters    map[string]*models.Character
	chats         map[string]*models.Chat
	messages      map[string][]models.Message // chat id -> messages
	settings      map[string]models.Settings  // user id -> settings
	subscriptions map[string]*models.Subscription
	payments      map[string][]models.PaymentRecord
	usage         map[string]models.UsageCounters
	plans         []models.SubscriptionPlan
}

func newState() *state {
	s := &state{
		users:         make(map[string]*models.User),
		passwords:     make(map[string]string),
		emails:        make(map[string]string),
		characters:    make(map[string]*models.Character),
		chats:         make(map[string]*models.Chat),
		messages:      make(map[string][]models.Message),
		settings:      make(map[string]models.Settings),
		subscriptions: make(map[string]*models.Subscription),
		payments:      make(map[string][]models.PaymentRecord),
		usage:         make(map[string]models.UsageCounters),
	}
	s.seed()
	return s
}

// seed installs the plan catalog and a handful of public characters so a fresh
// stub is immediately usable.
func (s *state) seed() {
	s.plans = []models.SubscriptionPlan{
		{
			ID: "plan_free", Tier: models.TierFree, Name: "Free", PriceCents: 0, Currency: "USD",
			Limits:   models.PlanLimits{ChatsPerDay: 5, MessagesPerMonth: 100},
			Features: []string{"5 chats per day", "100 messages per month"},
		},
		{
			ID: "plan_basic", Tier: models.TierBasic, Name: "Basic", PriceCents: 499, Currency: "USD",
			Limits:   models.PlanLimits{ChatsPerDay: 50, MessagesPerMonth: models.UnlimitedLimit},
			Features: []string{"50 chats per day", "Unlimited messages", "NSFW content"},
		},
		{
			ID: "plan_premium", Tier: models.TierPremium, Name: "Premium", PriceCents: 1999, Currency: "USD",
			Limits:   models.PlanLimits{ChatsPerDay: models.UnlimitedLimit, MessagesPerMonth: models.UnlimitedLimit},
			Features: []string{"Unlimited chats", "Unlimited messages", "NSFW content", "Priority replies"},
		},
	}

	seedCharacters := []models.Character{
		{
			Name:        "Aster",
			Description: "A stoic ranger who speaks in short, careful sentences and never wastes a word.",
			Personality: []models.PersonalityTrait{{Trait: "stoic", Value: 9}, {Trait: "loyal", Value: 8}},
			Tags:        []string{"fantasy", "adventure"},
			IsPublic:    true,
		},
		{
			Name:        "Briar",
			Description: "A sly alchemist with an answer for everything and a price for most of it.",
			Personality: []models.PersonalityTrait{{Trait: "cunning", Value: 8}, {Trait: "playful", Value: 7}},
			Tags:        []string{"fantasy", "romance"},
			IsPublic:    true,
		},
		{
			Name:        "Vex",
			Description: "A retired smuggler captain who tells the same three stories, each time differently.",
			Personality: []models.PersonalityTrait{{Trait: "boastful", Value: 7}, {Trait: "warm", Value: 6}},
			Tags:        []string{"scifi", "adventure"},
			IsNSFW:      true,
			IsPublic:    true,
		},
	}
	for i := range seedCharacters {
		c := seedCharacters[i]
		id, err := ids.New("chr")
		if err != nil {
			continue
		}
		c.ID = id
		c.CreatorID = "system"
		c.CreatedAt = time.Now().UTC()
		s.characters[c.ID] = &c
	}
}

func hashPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

func (s *state) createUser(email, username, password string) (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[email]; exists {
		return nil, false
	}

	id, err := ids.New("usr")
	if err != nil {
		return nil, false
	}
	user := &models.User{
		ID:        id,
		Email:     email,
		Username:  username,
		Tier:      models.TierFree,
		CreatedAt: time.Now().UTC(),
		Preferences: models.UserPreferences{
			Theme: models.ThemeDark,
		},
	}
	s.users[id] = user
	s.emails[email] = id
	s.passwords[id] = hashPassword(password)
	s.settings[id] = models.DefaultSettings(true)
	return user, true
}

func (s *state) authenticate(email, password string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return nil
	}
	if s.passwords[id] != hashPassword(password) {
		return nil
	}
	return s.userViewLocked(id)
}

func (s *state) user(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userViewLocked(id)
}

// userViewLocked returns a copy of the user with the subscription embedded.
func (s *state) userViewLocked(id string) *models.User {
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	view := *user
	if sub, ok := s.subscriptions[id]; ok {
		snap := *sub
		view.Subscription = &snap
		view.Tier = sub.Tier
	}
	return &view
}

func (s *state) listCharacters() []models.Character {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *state) listChats(userID string) []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) appendMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	if chat, ok := s.chats[msg.ChatID]; ok {
		chat.MessageCount = len(s.messages[msg.ChatID])
		ts := msg.Timestamp
		chat.LastMessageAt = &ts
	}

	if msg.Sender == models.SenderUser {
		if chat, ok := s.chats[msg.ChatID]; ok {
			u := s.usage[chat.UserID]
			u.MessagesThisMonth++
			s.usage[chat.UserID] = u
		}
	}
}
