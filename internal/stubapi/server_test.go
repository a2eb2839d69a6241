package stubapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Esmakirs9082/chat-sub000/internal/chatws"
	"github.com/Esmakirs9082/chat-sub000/internal/config"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 24 * time.Hour

	srv := httptest.NewServer(NewServer(cfg))
	t.Cleanup(srv.Close)
	return srv
}

type apiResult struct {
	status int
	data   json.RawMessage
	errMsg string
	code   string
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) apiResult {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+"/api/v1"+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding %s %s response: %v", method, path, err)
	}
	return apiResult{
		status: resp.StatusCode,
		data:   decoded.Data,
		errMsg: decoded.Message,
		code:   decoded.Code,
	}
}

type authPayload struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func register(t *testing.T, srv *httptest.Server, email string) authPayload {
	t.Helper()
	res := call(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"username": "tester1",
		"password": "hunter2hunter2",
	})
	if res.status != http.StatusCreated {
		t.Fatalf("register status = %d (%s)", res.status, res.errMsg)
	}
	var out authPayload
	if err := json.Unmarshal(res.data, &out); err != nil {
		t.Fatalf("decoding auth payload: %v", err)
	}
	return out
}

func TestRegisterLoginAndDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)

	auth := register(t, srv, "a@example.com")
	if auth.User == nil || auth.User.Tier != models.TierFree {
		t.Fatalf("registered user = %+v", auth.User)
	}
	if auth.AccessToken == "" || auth.RefreshToken == "" {
		t.Fatal("register returned empty tokens")
	}

	res := call(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "a@example.com",
		"username": "tester2",
		"password": "hunter2hunter2",
	})
	if res.status != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", res.status)
	}

	res = call(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "a@example.com",
		"password": "hunter2hunter2",
	})
	if res.status != http.StatusOK {
		t.Fatalf("login status = %d (%s)", res.status, res.errMsg)
	}

	res = call(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "a@example.com",
		"password": "wrongpassword",
	})
	if res.status != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", res.status)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")

	res := call(t, srv, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": auth.RefreshToken,
	})
	if res.status != http.StatusOK {
		t.Fatalf("refresh status = %d (%s)", res.status, res.errMsg)
	}
	var rotated authPayload
	if err := json.Unmarshal(res.data, &rotated); err != nil {
		t.Fatalf("decoding rotated pair: %v", err)
	}
	if rotated.RefreshToken == auth.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// The consumed token must be dead.
	res = call(t, srv, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": auth.RefreshToken,
	})
	if res.status != http.StatusUnauthorized {
		t.Fatalf("reused refresh status = %d, want 401", res.status)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/characters"},
		{http.MethodGet, "/chats"},
		{http.MethodGet, "/settings"},
		{http.MethodGet, "/subscriptions/me"},
	}
	for _, tt := range paths {
		res := call(t, srv, tt.method, tt.path, "", nil)
		if res.status != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tt.method, tt.path, res.status)
		}
	}

	res := call(t, srv, http.MethodGet, "/characters", "not-a-jwt", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", res.status)
	}
}

func TestCharacterCreateSanitizesMarkup(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")

	res := call(t, srv, http.MethodPost, "/characters", auth.AccessToken, map[string]any{
		"name":        "Mira",
		"description": "A quiet scholar<script>alert(1)</script> of dead languages.",
		"tags":        []string{"mystery"},
	})
	if res.status != http.StatusCreated {
		t.Fatalf("create character status = %d (%s)", res.status, res.errMsg)
	}
	var created models.Character
	if err := json.Unmarshal(res.data, &created); err != nil {
		t.Fatalf("decoding character: %v", err)
	}
	if strings.Contains(created.Description, "<script>") {
		t.Fatalf("description not sanitized: %q", created.Description)
	}
	if created.CreatorID == "" || created.CreatorID == "system" {
		t.Fatalf("CreatorID = %q, want the registering user", created.CreatorID)
	}
}

func TestCharacterOwnershipEnforced(t *testing.T) {
	srv := newTestServer(t)
	owner := register(t, srv, "owner@example.com")
	other := register(t, srv, "other@example.com")

	res := call(t, srv, http.MethodPost, "/characters", owner.AccessToken, map[string]any{
		"name":        "Mira",
		"description": "A quiet scholar.",
	})
	if res.status != http.StatusCreated {
		t.Fatalf("create status = %d", res.status)
	}
	var created models.Character
	json.Unmarshal(res.data, &created)

	res = call(t, srv, http.MethodDelete, "/characters/"+created.ID, other.AccessToken, nil)
	if res.status != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d, want 403", res.status)
	}

	res = call(t, srv, http.MethodDelete, "/characters/"+created.ID, owner.AccessToken, nil)
	if res.status != http.StatusOK {
		t.Fatalf("owner delete status = %d", res.status)
	}
}

func firstCharacterID(t *testing.T, srv *httptest.Server, token string, nsfw bool) string {
	t.Helper()
	res := call(t, srv, http.MethodGet, "/characters", token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("list characters status = %d", res.status)
	}
	var characters []models.Character
	if err := json.Unmarshal(res.data, &characters); err != nil {
		t.Fatalf("decoding characters: %v", err)
	}
	for _, c := range characters {
		if c.IsNSFW == nsfw {
			return c.ID
		}
	}
	t.Fatalf("no seeded character with isNsfw=%v", nsfw)
	return ""
}

func TestChatAndMessageFlow(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")
	characterID := firstCharacterID(t, srv, auth.AccessToken, false)

	res := call(t, srv, http.MethodPost, "/chats", auth.AccessToken, map[string]string{
		"characterId": characterID,
	})
	if res.status != http.StatusCreated {
		t.Fatalf("create chat status = %d (%s)", res.status, res.errMsg)
	}
	var chat models.Chat
	json.Unmarshal(res.data, &chat)
	if chat.UserID != auth.User.ID || !chat.Settings.AutoReply {
		t.Fatalf("chat = %+v", chat)
	}

	res = call(t, srv, http.MethodPost, "/chats/"+chat.ID+"/messages", auth.AccessToken, map[string]string{
		"content": "hello there",
	})
	if res.status != http.StatusCreated {
		t.Fatalf("post message status = %d (%s)", res.status, res.errMsg)
	}

	res = call(t, srv, http.MethodGet, "/chats/"+chat.ID+"/messages", auth.AccessToken, nil)
	var messages []models.Message
	json.Unmarshal(res.data, &messages)
	if len(messages) != 1 || messages[0].Content != "hello there" {
		t.Fatalf("messages = %+v", messages)
	}

	res = call(t, srv, http.MethodPost, "/chats/"+chat.ID+"/messages", auth.AccessToken, map[string]string{
		"content": strings.Repeat("x", 4001),
	})
	if res.status != http.StatusBadRequest || res.code != "MESSAGE_TOO_LONG" {
		t.Fatalf("oversized message: status = %d code = %q", res.status, res.code)
	}
}

func TestNSFWCharacterRequiresSubscription(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")
	nsfwID := firstCharacterID(t, srv, auth.AccessToken, true)

	res := call(t, srv, http.MethodPost, "/chats", auth.AccessToken, map[string]string{
		"characterId": nsfwID,
	})
	if res.status != http.StatusForbidden || res.code != "UPGRADE_REQUIRED" {
		t.Fatalf("nsfw chat without subscription: status = %d code = %q", res.status, res.code)
	}

	subscribe(t, srv, auth.AccessToken, "plan_basic")

	res = call(t, srv, http.MethodPost, "/chats", auth.AccessToken, map[string]string{
		"characterId": nsfwID,
	})
	if res.status != http.StatusCreated {
		t.Fatalf("nsfw chat with basic plan: status = %d (%s)", res.status, res.errMsg)
	}
}

func TestFreePlanDailyChatCeiling(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")
	characterID := firstCharacterID(t, srv, auth.AccessToken, false)

	for i := 0; i < 5; i++ {
		res := call(t, srv, http.MethodPost, "/chats", auth.AccessToken, map[string]string{
			"characterId": characterID,
		})
		if res.status != http.StatusCreated {
			t.Fatalf("chat %d status = %d (%s)", i, res.status, res.errMsg)
		}
	}

	res := call(t, srv, http.MethodPost, "/chats", auth.AccessToken, map[string]string{
		"characterId": characterID,
	})
	if res.status != http.StatusForbidden || res.code != "USAGE_LIMIT_REACHED" {
		t.Fatalf("sixth chat: status = %d code = %q", res.status, res.code)
	}
}

func subscribe(t *testing.T, srv *httptest.Server, token, planID string) {
	t.Helper()
	res := call(t, srv, http.MethodPost, "/subscriptions", token, map[string]string{
		"planId":        planID,
		"paymentMethod": "card",
	})
	if res.status != http.StatusOK {
		t.Fatalf("subscribe status = %d (%s)", res.status, res.errMsg)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")

	res := call(t, srv, http.MethodGet, "/subscriptions/plans", auth.AccessToken, nil)
	var plans []models.SubscriptionPlan
	json.Unmarshal(res.data, &plans)
	if len(plans) != 3 {
		t.Fatalf("plans = %d, want 3", len(plans))
	}

	subscribe(t, srv, auth.AccessToken, "plan_premium")

	res = call(t, srv, http.MethodGet, "/subscriptions/me", auth.AccessToken, nil)
	var state subscriptionState
	json.Unmarshal(res.data, &state)
	if state.Subscription == nil || state.Subscription.Tier != models.TierPremium || !state.Subscription.Active {
		t.Fatalf("subscription = %+v", state.Subscription)
	}
	if len(state.History) != 1 || state.History[0].AmountCents != 1999 {
		t.Fatalf("history = %+v", state.History)
	}

	// The user view embeds the subscription tier after subscribing.
	res = call(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "a@example.com",
		"password": "hunter2hunter2",
	})
	var relogin authPayload
	json.Unmarshal(res.data, &relogin)
	if relogin.User.Tier != models.TierPremium || relogin.User.Subscription == nil {
		t.Fatalf("user after subscribe = %+v", relogin.User)
	}

	res = call(t, srv, http.MethodPost, "/subscriptions/cancel", auth.AccessToken, nil)
	if res.status != http.StatusOK {
		t.Fatalf("cancel status = %d", res.status)
	}

	res = call(t, srv, http.MethodGet, "/subscriptions/me", auth.AccessToken, nil)
	json.Unmarshal(res.data, &state)
	if state.Subscription.Active || state.Subscription.AutoRenew {
		t.Fatalf("cancelled subscription = %+v", state.Subscription)
	}
	if len(state.History) != 1 {
		t.Fatalf("cancel appended a payment record: %+v", state.History)
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")

	res := call(t, srv, http.MethodGet, "/settings", auth.AccessToken, nil)
	var settings models.Settings
	json.Unmarshal(res.data, &settings)
	if settings.Theme != models.ThemeDark {
		t.Fatalf("default theme = %q", settings.Theme)
	}

	settings.Theme = models.ThemeLight
	settings.NSFWEnabled = true
	res = call(t, srv, http.MethodPut, "/settings", auth.AccessToken, settings)
	if res.status != http.StatusOK {
		t.Fatalf("put settings status = %d", res.status)
	}

	res = call(t, srv, http.MethodGet, "/settings", auth.AccessToken, nil)
	json.Unmarshal(res.data, &settings)
	if settings.Theme != models.ThemeLight || !settings.NSFWEnabled {
		t.Fatalf("settings after put = %+v", settings)
	}
}

func TestAuthRouteRateLimit(t *testing.T) {
	srv := newTestServer(t)

	var last apiResult
	for i := 0; i < 11; i++ {
		last = call(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    fmt.Sprintf("u%d@example.com", i),
			"password": "hunter2hunter2",
		})
	}
	if last.status != http.StatusTooManyRequests || last.code != "RATE_LIMITED" {
		t.Fatalf("11th auth call: status = %d code = %q", last.status, last.code)
	}
}

func TestChatSocketEchoesAndReplies(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "a@example.com")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chats/cht_test?token=" + auth.AccessToken
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing socket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	readFrame := func() chatws.Frame {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var frame chatws.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("reading frame: %v", err)
		}
		return frame
	}

	if frame := readFrame(); frame.Type != chatws.FramePresence {
		t.Fatalf("first frame type = %q, want presence", frame.Type)
	}

	out, _ := json.Marshal(chatws.SendPayload{Content: "hello"})
	if err := conn.WriteJSON(chatws.Frame{Type: chatws.FrameMessage, Data: out}); err != nil {
		t.Fatalf("writing frame: %v", err)
	}

	echo := readFrame()
	if echo.Type != chatws.FrameMessage {
		t.Fatalf("echo frame type = %q", echo.Type)
	}
	var echoPayload chatws.MessagePayload
	json.Unmarshal(echo.Data, &echoPayload)
	if echoPayload.Message.Sender != models.SenderUser || echoPayload.Message.Content != "hello" {
		t.Fatalf("echo payload = %+v", echoPayload.Message)
	}

	typingOn := readFrame()
	if typingOn.Type != chatws.FrameTyping {
		t.Fatalf("frame after echo = %q, want typing", typingOn.Type)
	}

	typingOff := readFrame()
	if typingOff.Type != chatws.FrameTyping {
		t.Fatalf("frame type = %q, want typing off", typingOff.Type)
	}

	reply := readFrame()
	if reply.Type != chatws.FrameMessage {
		t.Fatalf("reply frame type = %q", reply.Type)
	}
	var replyPayload chatws.MessagePayload
	json.Unmarshal(reply.Data, &replyPayload)
	if replyPayload.Message.Sender != models.SenderAI || replyPayload.Message.Content == "" {
		t.Fatalf("reply payload = %+v", replyPayload.Message)
	}
}

func TestChatSocketRejectsUnauthenticated(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chats/cht_test"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("unauthenticated dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
}
