package messaging

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/util"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRelayWorkers is the number of senders served in parallel.
	DefaultRelayWorkers = 4
	// channelFailureText answers a customer when their turn could not be processed.
	channelFailureText = "ขออภัยค่ะ ระบบขัดข้องชั่วคราว กรุณาส่งข้อความอีกครั้งในอีกสักครู่นะคะ 🙏"
	quickReplyPrefix   = "💬 ตอบได้เลย: "
)

// TurnHandler runs one interview turn. flow.SessionManager implements it.
type TurnHandler interface {
	Handle(ctx context.Context, sessionID, userID, text string) (flow.Reply, error)
}

type typingIndicator interface {
	SendTypingIndicator(ctx context.Context, to string, typing bool) error
}

// Relay feeds inbound channel messages into the interview and sends the replies back.
// Messages of one sender are handled in arrival order.
type Relay struct {
	svc      Service
	sessions TurnHandler
	workers  int
}

// NewRelay creates a Relay between svc and sessions.
func NewRelay(svc Service, sessions TurnHandler) *Relay {
	return &Relay{svc: svc, sessions: sessions, workers: DefaultRelayWorkers}
}

// Run consumes inbound messages until ctx is done or the service closes its channel.
func (r *Relay) Run(ctx context.Context) error {
	shards := make([]chan models.Response, r.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range shards {
		shard := make(chan models.Response, DefaultChannelBufferSize)
		shards[i] = shard
		g.Go(func() error {
			for msg := range shard {
				r.handle(gctx, msg)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, shard := range shards {
				close(shard)
			}
		}()
		responses, receipts := r.svc.Responses(), r.svc.Receipts()
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-responses:
				if !ok {
					slog.Info("Relay.Run: inbound channel closed")
					return nil
				}
				select {
				case shards[shardFor(msg.From, len(shards))] <- msg:
				case <-gctx.Done():
					return nil
				}
			case receipt, ok := <-receipts:
				if !ok {
					receipts = nil
					continue
				}
				slog.Debug("Relay.Run: receipt", "to", receipt.To, "status", receipt.Status)
			}
		}
	})
	return g.Wait()
}

func shardFor(sender string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(util.DigitsOnly(sender)))
	return int(h.Sum32() % uint32(n))
}

func (r *Relay) handle(ctx context.Context, msg models.Response) {
	sessionID := util.ChannelSessionID(msg.From)
	to, err := r.svc.ValidateAndCanonicalizeRecipient(msg.From)
	if sessionID == "" || err != nil {
		slog.Warn("Relay.handle: dropping message from invalid sender", "from", msg.From, "error", err)
		return
	}
	if t, ok := r.svc.(typingIndicator); ok {
		if err := t.SendTypingIndicator(ctx, to, true); err != nil {
			slog.Debug("Relay.handle: typing indicator failed", "to", to, "error", err)
		}
	}

	reply, err := r.sessions.Handle(ctx, sessionID, msg.From, msg.Body)
	body := FormatReply(reply)
	if err != nil {
		if errors.Is(err, models.ErrEmptyMessage) {
			return
		}
		slog.Error("Relay.handle: turn failed", "session", sessionID, "error", err)
		body = channelFailureText
	}
	if err := r.svc.SendMessage(ctx, to, body); err != nil {
		slog.Error("Relay.handle: failed to send reply", "session", sessionID, "to", to, "error", err)
		return
	}
	slog.Debug("Relay.handle: replied", "session", sessionID, "step", reply.Step.String())
}

// FormatReply renders a reply for a plain-text channel, listing quick replies after the text.
func FormatReply(reply flow.Reply) string {
	if len(reply.QuickReplies) == 0 {
		return reply.Text
	}
	return reply.Text + "\n\n" + quickReplyPrefix + strings.Join(reply.QuickReplies, " / ")
}
