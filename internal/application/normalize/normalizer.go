package normalize

import (
	"context"
	"fmt"

	"github.com/buildstream-notify/internal/domain"
)

// Fallback labels used when an entity lookup fails. A missing related entity
// degrades the rendered text; it never drops the event.
const (
	FallbackSender       = "Mobile User"
	FallbackConversation = "General"
	FallbackProject      = "your project"
)

// maxBodyLen caps rendered message bodies; longer bodies are truncated with
// an ellipsis.
const maxBodyLen = 100

// Lookups resolves display names for entities referenced by an event.
// Every method is best-effort: an error means "use the fallback label".
type Lookups interface {
	UserName(ctx context.Context, userID string) (string, error)
	ProjectName(ctx context.Context, projectID string) (string, error)
	ConversationName(ctx context.Context, conversationID string) (string, error)
}

// Draft is a fully rendered notification minus its recipient. The dispatcher
// stamps one copy per recipient.
type Draft struct {
	Category  string
	Title     string
	Message   string
	Priority  string
	ProjectID string
	Metadata  map[string]string
	// Broadcast is false when the event produces no fan-out at all
	// (admin-authored messages notify nobody).
	Broadcast bool
}

// names carries the resolved (or fallen-back) labels for one event.
type names struct {
	sender         string
	project        string
	conversation   string
	projectOK      bool
	conversationOK bool
}

type renderFunc func(ev domain.DomainEvent, n names) Draft

// Normalizer renders one notification draft per domain event. One render
// function exists per event type; unknown types are rejected so intake can
// dead-letter them.
type Normalizer struct {
	lookups Lookups
	renders map[domain.EventType]renderFunc
}

func New(lookups Lookups) *Normalizer {
	n := &Normalizer{lookups: lookups}
	n.renders = map[domain.EventType]renderFunc{
		domain.EventMessageCreated:        renderMessageCreated,
		domain.EventDeliveryScheduled:     renderDeliveryScheduled,
		domain.EventDeliveryStatusChanged: renderDeliveryStatusChanged,
		domain.EventOrderCreated:          renderOrderCreated,
		domain.EventOrderStatusChanged:    renderOrderStatusChanged,
		domain.EventContractorAccepted:    renderContractorAccepted,
		domain.EventDocumentUploaded:      renderDocumentUploaded,
		domain.EventDocumentApproved:      renderDocumentApproved,
	}
	return n
}

// Normalize renders the draft for ev. It fails only on an unknown event
// type; lookup failures degrade to fallback labels.
func (nz *Normalizer) Normalize(ctx context.Context, ev domain.DomainEvent) (*Draft, error) {
	render, ok := nz.renders[ev.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q: %w", ev.Type, domain.ErrBadRequest)
	}

	draft := render(ev, nz.resolve(ctx, ev))
	if draft.Metadata == nil {
		draft.Metadata = map[string]string{}
	}
	if ev.Source != "" {
		draft.Metadata[domain.MetaSource] = ev.Source
	}
	return &draft, nil
}

// resolve gathers every label the templates may need, substituting fallbacks
// on failure. Each label resolves through its own table accessor, never a
// joined query.
func (nz *Normalizer) resolve(ctx context.Context, ev domain.DomainEvent) names {
	n := names{
		sender:       FallbackSender,
		project:      FallbackProject,
		conversation: FallbackConversation,
	}
	if name, err := nz.lookups.UserName(ctx, ev.ActorID); err == nil {
		n.sender = name
	}
	if name, err := nz.lookups.ProjectName(ctx, ev.Related(domain.RelatedProjectID)); err == nil {
		n.project = name
		n.projectOK = true
	}
	if name, err := nz.lookups.ConversationName(ctx, ev.Related(domain.RelatedConversationID)); err == nil {
		n.conversation = name
		n.conversationOK = true
	}
	return n
}

func renderMessageCreated(ev domain.DomainEvent, n names) Draft {
	// Admin-authored messages notify nobody; only non-admin messages fan out.
	broadcast := ev.ActorRole != domain.RoleAdmin

	title := "New message from " + n.sender
	if n.conversationOK && n.projectOK {
		title = fmt.Sprintf("New message in %s (%s)", n.conversation, n.project)
	}
	msg := Truncate(ev.Body, maxBodyLen)
	if msg == "" {
		msg = n.sender + " sent a message"
	}
	return Draft{
		Category:  domain.CategoryMessage,
		Title:     title,
		Message:   msg,
		Priority:  domain.PriorityNormal,
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata: map[string]string{
			domain.MetaSenderName:       n.sender,
			domain.MetaProjectName:      n.project,
			domain.MetaConversationName: n.conversation,
		},
		Broadcast: broadcast,
	}
}

func renderDeliveryScheduled(ev domain.DomainEvent, n names) Draft {
	msg := Truncate(ev.Body, maxBodyLen)
	if msg == "" {
		msg = "A delivery has been scheduled for " + n.project
	}
	return Draft{
		Category:  domain.CategoryDelivery,
		Title:     "Delivery scheduled for " + n.project,
		Message:   msg,
		Priority:  domain.PriorityNormal,
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata:  map[string]string{domain.MetaProjectName: n.project},
		Broadcast: true,
	}
}

func renderDeliveryStatusChanged(ev domain.DomainEvent, n names) Draft {
	return Draft{
		Category:  domain.CategoryDelivery,
		Title:     "Delivery " + statusLabel(ev.Status),
		Message:   fmt.Sprintf("Delivery for %s is now %s", n.project, statusLabel(ev.Status)),
		Priority:  escalate(ev.Status, domain.PriorityNormal),
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata:  map[string]string{domain.MetaProjectName: n.project},
		Broadcast: true,
	}
}

func renderOrderCreated(ev domain.DomainEvent, n names) Draft {
	msg := Truncate(ev.Body, maxBodyLen)
	if msg == "" {
		msg = "A new order was created for " + n.project
	}
	return Draft{
		Category:  domain.CategoryOrder,
		Title:     "New order for " + n.project,
		Message:   msg,
		Priority:  domain.PriorityNormal,
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata:  map[string]string{domain.MetaProjectName: n.project},
		Broadcast: true,
	}
}

func renderOrderStatusChanged(ev domain.DomainEvent, n names) Draft {
	return Draft{
		Category:  domain.CategoryOrder,
		Title:     "Order " + statusLabel(ev.Status),
		Message:   fmt.Sprintf("Order for %s is now %s", n.project, statusLabel(ev.Status)),
		Priority:  escalate(ev.Status, domain.PriorityNormal),
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata:  map[string]string{domain.MetaProjectName: n.project},
		Broadcast: true,
	}
}

func renderContractorAccepted(ev domain.DomainEvent, n names) Draft {
	return Draft{
		Category:  domain.CategoryContractor,
		Title:     n.sender + " accepted an assignment",
		Message:   fmt.Sprintf("%s accepted an assignment on %s", n.sender, n.project),
		Priority:  domain.PriorityNormal,
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata: map[string]string{
			domain.MetaSenderName:  n.sender,
			domain.MetaProjectName: n.project,
		},
		Broadcast: true,
	}
}

func renderDocumentUploaded(ev domain.DomainEvent, n names) Draft {
	msg := Truncate(ev.Body, maxBodyLen)
	if msg == "" {
		msg = n.sender + " uploaded a document"
	}
	return Draft{
		Category:  domain.CategoryDocument,
		Title:     "Document uploaded to " + n.project,
		Message:   msg,
		Priority:  domain.PriorityNormal,
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata: map[string]string{
			domain.MetaSenderName:  n.sender,
			domain.MetaProjectName: n.project,
		},
		Broadcast: true,
	}
}

func renderDocumentApproved(ev domain.DomainEvent, n names) Draft {
	msg := Truncate(ev.Body, maxBodyLen)
	if msg == "" {
		msg = fmt.Sprintf("A document on %s was approved", n.project)
	}
	return Draft{
		Category:  domain.CategoryDocument,
		Title:     "Document approved",
		Message:   msg,
		Priority:  domain.PriorityNormal,
		ProjectID: ev.Related(domain.RelatedProjectID),
		Metadata: map[string]string{
			domain.MetaSenderName:  n.sender,
			domain.MetaProjectName: n.project,
		},
		Broadcast: true,
	}
}

// escalate bumps the priority to high when a status transition lands in a
// terminal bad state.
func escalate(status, base string) string {
	switch status {
	case "failed", "cancelled":
		return domain.PriorityHigh
	}
	return base
}

func statusLabel(status string) string {
	if status == "" {
		return "updated"
	}
	return status
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
