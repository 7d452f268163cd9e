package dialog

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/penny/internal/brain"
	"github.com/antoniostano/penny/internal/observability"
	"github.com/antoniostano/penny/internal/session"
	"github.com/antoniostano/penny/internal/settings"
)

// Pipeline runs one dialog turn: record the caller's utterance, ask the
// brain for a reply against the full history, and record the reply.
type Pipeline struct {
	sessions *session.Manager
	brain    brain.Brain
	hub      *Hub
	metrics  *observability.Metrics
	timeout  time.Duration
}

func NewPipeline(sessions *session.Manager, b brain.Brain, hub *Hub, metrics *observability.Metrics, completionTimeout time.Duration) *Pipeline {
	if completionTimeout <= 0 {
		completionTimeout = 30 * time.Second
	}
	return &Pipeline{
		sessions: sessions,
		brain:    b,
		hub:      hub,
		metrics:  metrics,
		timeout:  completionTimeout,
	}
}

// RunTurn appends the caller's utterance, completes against the system prompt
// plus full ordered history, and appends the reply. On completion failure the
// user turn stays appended and no assistant turn is written; the caller picks
// the degraded response the caller hears.
func (p *Pipeline) RunTurn(ctx context.Context, callSID, callerUtterance string, st settings.Settings) (string, error) {
	turnID := uuid.NewString()
	started := time.Now()

	if err := p.sessions.Append(callSID, session.RoleUser, callerUtterance); err != nil {
		return "", err
	}
	p.publish(callSID, turnID, session.RoleUser, callerUtterance)

	history := p.sessions.History(callSID)

	brainCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	reply, err := p.brain.Reply(brainCtx, st.SystemPrompt, history)
	if err != nil {
		log.Printf("turn %s call %s: brain error: %v", turnID, callSID, err)
		p.metrics.CallEvents.WithLabelValues("completion_failed").Inc()
		p.metrics.ProviderErrors.WithLabelValues("brain", "completion_failed").Inc()
		return "", err
	}

	if err := p.sessions.Append(callSID, session.RoleAssistant, reply); err != nil {
		return "", err
	}
	p.publish(callSID, turnID, session.RoleAssistant, reply)

	p.metrics.CallEvents.WithLabelValues("turn").Inc()
	p.metrics.ObserveTurnLatency(time.Since(started))
	return reply, nil
}

func (p *Pipeline) publish(callSID, turnID string, role session.Role, content string) {
	if p.hub == nil {
		return
	}
	p.hub.Publish(TurnEvent{
		CallSID:   callSID,
		TurnID:    turnID,
		Role:      string(role),
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
