package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/parlorchat/parlor/cmd/parlor/internal"
	"github.com/parlorchat/parlor/pkg/api"
	"github.com/parlorchat/parlor/pkg/bus"
	"github.com/parlorchat/parlor/pkg/conversation"
	"github.com/parlorchat/parlor/pkg/logger"
	"github.com/parlorchat/parlor/pkg/presence"
	"github.com/parlorchat/parlor/pkg/realtime"
	"github.com/parlorchat/parlor/pkg/session"
)

const requestTimeout = 15 * time.Second

// lockedWriter serializes output from the input loop, the event loop and the
// request goroutines, so concurrent prints cannot interleave mid-line.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// chatSession bundles everything the interactive loop needs.
type chatSession struct {
	sess    *session.Session
	client  *api.Client
	store   *conversation.Store
	tracker *presence.Tracker
	out     io.Writer

	peersMu sync.RWMutex
	peers   []api.Peer
}

func chatCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	}

	cred, err := session.LoadCredential(internal.GetCredentialsPath())
	if err != nil {
		return fmt.Errorf("reading credential: %w", err)
	}
	if cred == nil {
		return errors.New("not logged in; run: parlor auth login")
	}

	sess := session.New()
	sess.Login(cred.Identity, cred.Token)
	identity, _ := sess.CurrentIdentity()

	evBus := bus.NewEventBus()
	channel := realtime.NewChannel(realtime.Config{
		SocketURL:  cfg.Realtime.SocketURL,
		UserID:     identity.ID,
		MinBackoff: cfg.MinBackoff(),
		MaxBackoff: cfg.MaxBackoff(),
	}, evBus)
	sess.SetRealtimeCloser(channel.Close)

	cs := &chatSession{
		sess:    sess,
		client:  api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), sess),
		store:   conversation.NewStore(identity.ID),
		tracker: presence.NewTracker(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	cs.out = &lockedWriter{w: rl.Stdout()}

	go cs.eventLoop(ctx, evBus)

	if err := channel.Start(ctx); err != nil {
		return err
	}
	defer func() {
		sess.Logout()
		evBus.Close()
	}()

	if err := cs.refreshPeers(ctx, identity.ID); err != nil {
		fmt.Fprintf(cs.out, "Could not fetch users: %v\n", err)
	}

	fmt.Fprintf(cs.out, "Hello %s. /peers lists users, /select opens a chat, /help for the rest.\n", identity.Username)

	return cs.inputLoop(ctx, rl, identity.ID)
}

// eventLoop is the single consumer of the realtime event bus. All
// conversation and presence updates happen here, one event at a time.
func (cs *chatSession) eventLoop(ctx context.Context, evBus *bus.EventBus) {
	for {
		ev, ok := evBus.Consume(ctx)
		if !ok {
			return
		}

		switch ev.Kind {
		case bus.KindMessage:
			if cs.store.Ingest(ev.Message) {
				fmt.Fprintf(cs.out, "%s: %s\n", cs.peerName(ev.Message.SenderID), ev.Message.Text)
			} else if n := cs.store.UnreadCount(ev.Message.SenderID); n > 0 {
				fmt.Fprintf(cs.out, "(%s sent you a message, %d unread)\n", cs.peerName(ev.Message.SenderID), n)
			}
		case bus.KindPresence:
			cs.tracker.Replace(ev.OnlineIDs)
		case bus.KindConnection:
			if ev.Connected {
				fmt.Fprintln(cs.out, "(realtime connection established)")
			} else {
				fmt.Fprintln(cs.out, "(realtime connection lost, reconnecting...)")
			}
		}
	}
}

func (cs *chatSession) inputLoop(ctx context.Context, rl *readline.Instance, selfID string) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/q":
			return nil
		case line == "/help":
			cs.printHelp()
		case line == "/peers":
			if err := cs.refreshPeers(ctx, selfID); err != nil {
				fmt.Fprintf(cs.out, "Could not fetch users: %v\n", err)
				continue
			}
			cs.printPeers()
		case line == "/who":
			cs.printOnline()
		case strings.HasPrefix(line, "/select "):
			cs.selectPeer(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/select ")))
		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(cs.out, "Unknown command %q, /help lists commands.\n", line)
		default:
			cs.send(ctx, line)
		}
	}
}

func (cs *chatSession) refreshPeers(ctx context.Context, selfID string) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	peers, err := cs.client.ListPeers(reqCtx, selfID)
	if err != nil {
		if api.IsAuthError(err) {
			return errors.New("session expired; run: parlor auth login")
		}
		return err
	}
	cs.peersMu.Lock()
	cs.peers = peers
	cs.peersMu.Unlock()
	return nil
}

func (cs *chatSession) selectPeer(ctx context.Context, arg string) {
	peer, ok := cs.findPeer(arg)
	if !ok {
		fmt.Fprintf(cs.out, "No such user %q. /peers lists them.\n", arg)
		return
	}

	gen := cs.store.SelectPeer(peer.ID)

	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		history, err := cs.client.FetchHistory(reqCtx, peer.ID)
		if err != nil {
			if cs.store.FailHistory(gen) {
				fmt.Fprintf(cs.out, "Could not fetch history with %s: %v\n", peer.Username, err)
			}
			return
		}
		if cs.store.ApplyHistory(gen, history) {
			cs.printTimeline(peer)
		}
	}()
}

func (cs *chatSession) send(ctx context.Context, text string) {
	msg, err := cs.store.BeginSend(text)
	if err != nil {
		fmt.Fprintf(cs.out, "%v\n", err)
		return
	}

	peerID := cs.store.SelectedPeer()
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		saved, err := cs.client.SendMessage(reqCtx, peerID, text)
		if err != nil {
			cs.store.FailSend(msg.ID)
			fmt.Fprintf(cs.out, "(message not delivered: %v)\n", err)
			return
		}
		cs.store.ResolveSend(msg.ID, *saved)
	}()
}

func (cs *chatSession) findPeer(arg string) (api.Peer, bool) {
	cs.peersMu.RLock()
	defer cs.peersMu.RUnlock()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(cs.peers) {
		return cs.peers[n-1], true
	}
	for _, p := range cs.peers {
		if p.ID == arg || strings.EqualFold(p.Username, arg) {
			return p, true
		}
	}
	return api.Peer{}, false
}

func (cs *chatSession) peerName(id string) string {
	cs.peersMu.RLock()
	defer cs.peersMu.RUnlock()
	for _, p := range cs.peers {
		if p.ID == id {
			return p.Username
		}
	}
	return id
}

func (cs *chatSession) printPeers() {
	cs.peersMu.RLock()
	defer cs.peersMu.RUnlock()
	if len(cs.peers) == 0 {
		fmt.Fprintln(cs.out, "No other users found.")
		return
	}
	for i, p := range cs.peers {
		marker := " "
		if cs.tracker.Online(p.ID) {
			marker = "*"
		}
		unread := ""
		if n := cs.store.UnreadCount(p.ID); n > 0 {
			unread = fmt.Sprintf(" (%d unread)", n)
		}
		fmt.Fprintf(cs.out, "%s %d. %s <%s>%s\n", marker, i+1, p.Username, p.Email, unread)
	}
}

func (cs *chatSession) printOnline() {
	ids := cs.tracker.Snapshot()
	if len(ids) == 0 {
		fmt.Fprintln(cs.out, "Nobody else is online.")
		return
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, cs.peerName(id))
	}
	fmt.Fprintf(cs.out, "Online: %s\n", strings.Join(names, ", "))
}

func (cs *chatSession) printTimeline(peer api.Peer) {
	fmt.Fprintf(cs.out, "--- chat with %s ---\n", peer.Username)
	for _, m := range cs.store.Timeline() {
		name := cs.peerName(m.SenderID)
		if m.SenderID != peer.ID {
			name = "you"
		}
		suffix := ""
		switch m.Delivery {
		case conversation.DeliveryPending:
			suffix = " (sending)"
		case conversation.DeliveryFailed:
			suffix = " (failed)"
		}
		fmt.Fprintf(cs.out, "[%s] %s: %s%s\n", m.CreatedAt.Local().Format("15:04"), name, m.Text, suffix)
	}
}

func (cs *chatSession) printHelp() {
	fmt.Fprintln(cs.out, "/peers          list users (* marks online)")
	fmt.Fprintln(cs.out, "/select <n|id>  open a conversation")
	fmt.Fprintln(cs.out, "/who            show who is online")
	fmt.Fprintln(cs.out, "/quit           leave")
	fmt.Fprintln(cs.out, "anything else is sent to the selected peer")
}
