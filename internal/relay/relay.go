// Package relay orchestrates one chat turn: load or create the session,
// fetch the agent's system prompt, build the provider message list,
// invoke the completion provider (optionally streaming), and persist the
// transcript.
//
// Correctness contract:
//   - Fragments are forwarded in arrival order, append-only; none are
//     dropped, reordered, or coalesced beyond the provider's chunking.
//   - At most one store write happens per request. On success both the
//     user and the assistant turn land in that single write; a partial
//     assistant turn is never persisted.
//   - Client disconnect stops fragment consumption and must not leave
//     the store write stuck or duplicated.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/sago-labs/sago/internal/agent"
	"github.com/sago-labs/sago/internal/provider"
	"github.com/sago-labs/sago/internal/session"
)

// Default texts for image-only turns. The persisted content and the
// text sent to the model differ, matching the frontend's expectations.
const (
	DefaultImageContent = "Sent an image"
	imagePromptText     = "Here is the image"
	defaultImageMime    = "image/png"
)

// Request validation errors, surfaced as 400s at the transport layer.
var (
	ErrEmptyMessage      = errors.New("message text or image payload is required")
	ErrMissingSessionKey = errors.New("session key is required")
)

// saveTimeout bounds the deferred store write that runs after a stream
// ends, detached from the request context.
const saveTimeout = 10 * time.Second

// SessionStore is the transcript storage the relay depends on.
type SessionStore interface {
	Get(ctx context.Context, key string) (*session.Session, error)
	Create(ctx context.Context, key, username, agentName string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
}

// AgentDirectory resolves agent names to system prompts.
type AgentDirectory interface {
	Get(ctx context.Context, name string) (*agent.Agent, error)
}

// Completer produces a model reply for a message list, optionally
// streaming fragments through the callback first.
type Completer interface {
	Complete(ctx context.Context, msgs []*ai.Message, cb provider.StreamCallback) (string, error)
}

// Request carries one chat turn. ImageData is base64; ImageData and
// ImageMimeType travel together.
type Request struct {
	SessionKey    string
	Username      string
	AgentName     string
	Message       string
	ImageData     string
	ImageMimeType string
}

// Validate rejects requests the relay cannot act on. The transport
// layer calls it too, before committing a streaming response status.
func (req Request) Validate() error {
	if req.SessionKey == "" {
		return ErrMissingSessionKey
	}
	if req.Message == "" && req.ImageData == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Config contains the relay's dependencies.
type Config struct {
	Sessions  SessionStore
	Agents    AgentDirectory
	Completer Completer
	Logger    *slog.Logger
}

// Relay is the chat relay. It holds only process-wide handles; all
// per-request state is local, so it is safe for concurrent use.
type Relay struct {
	sessions  SessionStore
	agents    AgentDirectory
	completer Completer
	logger    *slog.Logger
}

// New creates a relay after validating required dependencies.
func New(cfg Config) (*Relay, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Agents == nil {
		return nil, errors.New("agent directory is required")
	}
	if cfg.Completer == nil {
		return nil, errors.New("completer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		sessions:  cfg.Sessions,
		agents:    cfg.Agents,
		completer: cfg.Completer,
		logger:    logger,
	}, nil
}

// Send handles the non-streaming path: one provider call, then exactly
// one user and one assistant message appended to the session in a
// single store write. On provider or store failure nothing new is
// visible as saved and no reply is fabricated.
func (r *Relay) Send(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	sess, systemPrompt, err := r.prepare(ctx, req)
	if err != nil {
		return "", err
	}

	reply, err := r.completer.Complete(ctx, r.buildMessages(sess, systemPrompt, req), nil)
	if err != nil {
		return "", err
	}

	sess.Append(r.userTurn(req), session.NewAssistantMessage(reply))
	if err := r.sessions.Save(ctx, sess); err != nil {
		return "", err
	}

	r.logger.Info("chat turn completed",
		"session", sess.Key,
		"agent", sess.AgentName,
		"reply_len", len(reply))
	return reply, nil
}

// Stream handles the streaming path. Every fragment is forwarded to cb
// in arrival order and concatenated into an accumulator. The user turn
// is staged before streaming begins but the store write is deferred and
// combined with the assistant turn after the stream ends, avoiding a
// torn state where only half the exchange survives.
//
// On provider error or client disconnect the partially accumulated
// assistant text is NOT persisted; the user turn alone is, so history
// never contains a silently truncated reply. The returned error is the
// provider's; the caller decides how to surface it (in-band for SSE).
func (r *Relay) Stream(ctx context.Context, req Request, cb provider.StreamCallback) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if cb == nil {
		return "", errors.New("stream callback is required")
	}

	sess, systemPrompt, err := r.prepare(ctx, req)
	if err != nil {
		return "", err
	}

	userMsg := r.userTurn(req)

	var acc strings.Builder
	reply, err := r.completer.Complete(ctx, r.buildMessages(sess, systemPrompt, req),
		func(ctx context.Context, delta string) error {
			// Forward first, then accumulate: a failed client write
			// aborts the stream before the fragment counts as delivered.
			if err := cb(ctx, delta); err != nil {
				return err
			}
			acc.WriteString(delta)
			return nil
		})
	if err != nil {
		// Persist the user turn alone. The request context may already
		// be canceled (client disconnect), so the write runs detached.
		sess.Append(userMsg)
		r.saveDetached(ctx, sess)
		return "", err
	}

	// The persisted assistant content is the delta concatenation, so
	// what the client assembled and what history holds are identical.
	// Fall back to the final response text for models that produced no
	// stream fragments.
	if acc.Len() > 0 {
		reply = acc.String()
	}

	sess.Append(userMsg, session.NewAssistantMessage(reply))
	if err := r.sessions.Save(ctx, sess); err != nil {
		return "", err
	}

	r.logger.Info("streamed chat turn completed",
		"session", sess.Key,
		"agent", sess.AgentName,
		"reply_len", len(reply))
	return reply, nil
}

// prepare loads or creates the session and resolves the system prompt.
// A missing agent is not fatal: the turn proceeds with no system
// context. Store errors propagate unchanged.
func (r *Relay) prepare(ctx context.Context, req Request) (*session.Session, string, error) {
	sess, err := r.sessions.Get(ctx, req.SessionKey)
	if errors.Is(err, session.ErrNotFound) {
		sess, err = r.sessions.Create(ctx, req.SessionKey, req.Username, req.AgentName)
	}
	if err != nil {
		return nil, "", err
	}

	var systemPrompt string
	ag, err := r.agents.Get(ctx, req.AgentName)
	switch {
	case err == nil:
		systemPrompt = ag.SystemPrompt
	case errors.Is(err, agent.ErrNotFound):
		r.logger.Debug("no system prompt for agent", "agent", req.AgentName)
	default:
		return nil, "", err
	}

	return sess, systemPrompt, nil
}

// buildMessages constructs the provider message list: optional system
// turn, stored history in original order (text only — image payloads
// are not replayed from history), then the new user turn.
func (r *Relay) buildMessages(sess *session.Session, systemPrompt string, req Request) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(sess.Messages)+2)

	if systemPrompt != "" {
		msgs = append(msgs, &ai.Message{
			Role:    ai.RoleSystem,
			Content: []*ai.Part{ai.NewTextPart(systemPrompt)},
		})
	}

	for _, m := range sess.Messages {
		role := ai.RoleUser
		if m.Role == session.RoleAssistant {
			role = ai.RoleModel
		}
		msgs = append(msgs, &ai.Message{
			Role:    role,
			Content: []*ai.Part{ai.NewTextPart(m.Content)},
		})
	}

	if req.ImageData != "" {
		text := req.Message
		if text == "" {
			text = imagePromptText
		}
		mime := req.ImageMimeType
		if mime == "" {
			mime = defaultImageMime
		}
		msgs = append(msgs, ai.NewUserMessage(
			ai.NewTextPart(text),
			ai.NewMediaPart(mime, "data:"+mime+";base64,"+req.ImageData),
		))
		return msgs
	}

	return append(msgs, ai.NewUserMessage(ai.NewTextPart(req.Message)))
}

// userTurn builds the persisted form of the new user message, including
// image fields when present.
func (r *Relay) userTurn(req Request) session.Message {
	if req.ImageData == "" {
		return session.NewUserMessage(req.Message)
	}

	content := req.Message
	if content == "" {
		content = DefaultImageContent
	}
	mime := req.ImageMimeType
	if mime == "" {
		mime = defaultImageMime
	}
	return session.NewUserImageMessage(content, req.ImageData, mime)
}

// saveDetached persists the session on a context that survives request
// cancellation, bounded by saveTimeout. Failures are logged, not
// returned: the caller is already reporting the stream error.
func (r *Relay) saveDetached(ctx context.Context, sess *session.Session) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := r.sessions.Save(saveCtx, sess); err != nil {
		r.logger.Error("failed to save session after aborted stream",
			"session", sess.Key,
			"error", err)
		return
	}
	r.logger.Debug("saved user turn after aborted stream", "session", sess.Key)
}

// MintSessionKey builds a new opaque session key. Uniqueness comes from
// the random suffix; the identifier prefix exists only for operator
// legibility and is not a contract.
func MintSessionKey(username, agentName, suffix string) string {
	return fmt.Sprintf("%s_%s_%s", username, agentName, suffix)
}
