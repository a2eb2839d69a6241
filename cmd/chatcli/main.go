// Command chatcli is a terminal client for the chat service: it drives the
// domain stores against a running backend and mirrors realtime chat traffic
// over the per-chat socket.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Esmakirs9082/chat-sub000/internal/apiclient"
	"github.com/Esmakirs9082/chat-sub000/internal/chatws"
	"github.com/Esmakirs9082/chat-sub000/internal/config"
	"github.com/Esmakirs9082/chat-sub000/internal/forms"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
	"github.com/Esmakirs9082/chat-sub000/internal/notify"
	"github.com/Esmakirs9082/chat-sub000/internal/persist"
	"github.com/Esmakirs9082/chat-sub000/internal/signals"
	"github.com/Esmakirs9082/chat-sub000/internal/store"
)

type app struct {
	features      config.FeatureFlags
	auth          *store.AuthStore
	characters    *store.CharacterStore
	chats         *store.ChatStore
	settings      *store.SettingsStore
	subscriptions *store.SubscriptionStore
	typing        *signals.TypingIndicator
	tracker       *signals.ConnTracker
	sockets       *chatws.Manager
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	kv, err := persist.Open(cfg.Storage.StatePath)
	if err != nil {
		slog.Error("failed to open state store", "error", err, "path", cfg.Storage.StatePath)
		os.Exit(1)
	}
	defer kv.Close()

	notifier := notify.Func(func(n notify.Notice) {
		fmt.Printf("[%s] %s\n", n.Level, n.Message)
	})

	a := newApp(ctx, cfg, kv, notifier)
	if a.sockets != nil {
		defer a.sockets.Close()
	}

	fmt.Println("chatcli ready, type 'help' for commands")
	a.repl(ctx)
}

// newApp wires the stores, signals, and (when the realtime feature is on) the
// socket manager against one API client.
func newApp(ctx context.Context, cfg *config.Config, kv *persist.Store, notifier notify.Notifier) *app {
	session := store.NewSession(ctx, kv)

	var opts []apiclient.Option
	if cfg.API.Timeout > 0 {
		opts = append(opts, apiclient.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}))
	}
	api := apiclient.New(cfg.API.BaseURL, session, notifier, opts...)

	a := &app{
		features:   cfg.Features,
		auth:       store.NewAuth(session, api),
		characters: store.NewCharacters(ctx, api, kv),
		settings: store.NewSettings(ctx, api, kv, func(theme models.Theme) {
			fmt.Printf("(theme is now %s)\n", theme)
		}, nil),
		subscriptions: store.NewSubscriptions(ctx, api, kv),
		typing:        signals.NewTypingIndicator(cfg.Realtime.TypingTimeout, nil),
		tracker: signals.NewConnTracker(func(s signals.ConnState) {
			fmt.Printf("(connection: %s)\n", s)
		}),
	}
	a.chats = store.NewChats(api, func() string {
		if user := a.auth.User(); user != nil {
			return user.ID
		}
		return ""
	})

	if cfg.Features.RealtimeChat {
		a.sockets = chatws.NewManager(cfg.Realtime.WSURL, session, a.tracker, a.socketHandlers())
	}
	return a
}

// socketHandlers feeds every socket-delivered message into the chat store so
// it stays the transcript of record; the user's own echo is stored but not
// re-printed.
func (a *app) socketHandlers() chatws.Handlers {
	return chatws.Handlers{
		OnMessage: func(p chatws.MessagePayload) {
			a.chats.AddMessage(p.Message)
			if p.Message.Sender != models.SenderUser {
				fmt.Printf("%s> %s\n", p.Message.Sender, p.Message.Content)
			}
		},
		OnTyping: func(p chatws.TypingPayload) {
			if p.Typing {
				a.chats.StartTyping(p.Name)
				fmt.Printf("(%s is typing...)\n", p.Name)
			} else {
				a.chats.StopTyping()
			}
		},
		OnError: func(p chatws.ErrorPayload) {
			fmt.Printf("[error] %s (%s)\n", p.Message, p.Code)
		},
	}
}

func (a *app) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		if cmd == "quit" || cmd == "exit" {
			return
		}
		if err := a.dispatch(ctx, cmd, args, line); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string, line string) error {
	switch cmd {
	case "help":
		fmt.Print(helpText)

	case "register":
		if len(args) != 3 {
			return fmt.Errorf("usage: register <email> <username> <password>")
		}
		err := a.auth.Register(ctx, forms.RegisterForm{Email: args[0], Username: args[1], Password: args[2]})
		if err != nil {
			return err
		}
		fmt.Println("registered and signed in as", a.auth.User().Username)

	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		if err := a.auth.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("signed in as", a.auth.User().Username)

	case "logout":
		if a.sockets != nil {
			a.sockets.Close()
		}
		a.auth.Logout()
		fmt.Println("signed out")

	case "characters":
		// With the nsfw feature off the filter is pinned off on every load,
		// regardless of persisted view state.
		var patch *store.FilterPatch
		if !a.features.NSFW {
			off := false
			patch = &store.FilterPatch{NSFWEnabled: &off}
		}
		if err := a.characters.LoadCharacters(ctx, patch); err != nil {
			return err
		}
		for _, c := range a.characters.FilteredCharacters() {
			marker := " "
			if a.characters.IsFavorite(c.ID) {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %v\n", marker, c.ID, c.Name, c.Tags)
		}

	case "fav":
		if len(args) != 1 {
			return fmt.Errorf("usage: fav <character-id>")
		}
		a.characters.ToggleFavorite(args[0])

	case "chats":
		if err := a.chats.LoadChats(ctx); err != nil {
			return err
		}
		for _, c := range a.chats.Chats() {
			fmt.Printf("%s  %s  (%d messages)\n", c.ID, c.Title, c.MessageCount)
		}

	case "new":
		if len(args) != 1 {
			return fmt.Errorf("usage: new <character-id>")
		}
		chat, err := a.chats.CreateChat(args[0])
		if err != nil {
			return err
		}
		fmt.Println("created", chat.ID)
		if a.sockets == nil {
			return nil
		}
		return a.sockets.SetActiveChat(ctx, chat.ID)

	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: open <chat-id>")
		}
		a.chats.SetActiveChat(args[0])
		if a.chats.ActiveChatID() == "" {
			return fmt.Errorf("unknown chat %s", args[0])
		}
		if err := a.chats.LoadMessages(ctx, args[0]); err != nil {
			return err
		}
		for _, m := range a.chats.Messages() {
			fmt.Printf("%s> %s\n", m.Sender, m.Content)
		}
		if a.sockets == nil {
			return nil
		}
		return a.sockets.SetActiveChat(ctx, args[0])

	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(line, "say"))
		if text == "" {
			return fmt.Errorf("usage: say <message>")
		}
		a.typing.Touch()
		if a.sockets != nil {
			if session := a.sockets.Session(); session != nil {
				return session.SendMessage(text)
			}
		}
		return a.chats.SendMessage(ctx, text)

	case "plans":
		if !a.features.Subscriptions {
			return fmt.Errorf("subscriptions are disabled")
		}
		if err := a.subscriptions.LoadPlans(ctx); err != nil {
			return err
		}
		for _, p := range a.subscriptions.Plans() {
			fmt.Printf("%s  %s  $%d.%02d/mo\n", p.ID, p.Name, p.PriceCents/100, p.PriceCents%100)
		}

	case "subscribe":
		if !a.features.Subscriptions {
			return fmt.Errorf("subscriptions are disabled")
		}
		if len(args) != 1 {
			return fmt.Errorf("usage: subscribe <plan-id>")
		}
		if err := a.subscriptions.Subscribe(ctx, args[0], "card"); err != nil {
			return err
		}
		fmt.Println("subscribed, premium:", a.subscriptions.IsPremium())

	case "cancel":
		if !a.features.Subscriptions {
			return fmt.Errorf("subscriptions are disabled")
		}
		return a.subscriptions.CancelSubscription(ctx)

	case "theme":
		if len(args) != 1 || (args[0] != "dark" && args[0] != "light") {
			return fmt.Errorf("usage: theme <dark|light>")
		}
		a.settings.SetTheme(models.Theme(args[0]))

	case "status":
		fmt.Println("authenticated:", a.auth.IsAuthenticated())
		fmt.Println("connection:", a.tracker.State())
		fmt.Println("active chat:", a.chats.ActiveChatID())
		if remaining, unlimited := a.subscriptions.RemainingChats(); unlimited {
			fmt.Println("chats today: unlimited")
		} else {
			fmt.Println("chats remaining today:", remaining)
		}

	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return nil
}

const helpText = `commands:
  register <email> <username> <password>
  login <email> <password>
  logout
  characters          list characters (favorites marked *)
  fav <character-id>  toggle favorite
  chats               list chats
  new <character-id>  start a chat
  open <chat-id>      open a chat and connect its socket
  say <message>       send a message in the open chat
  plans | subscribe <plan-id> | cancel
  theme <dark|light>
  status
  quit
`
