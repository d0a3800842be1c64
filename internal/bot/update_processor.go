package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/iamwavecut/modbot/internal/infra"
	"github.com/iamwavecut/modbot/internal/observability"
)

const (
	UpdateTimeout = 5 * time.Minute
)

// UpdateProcessor runs every inbound event through the enabled handler chain on its own goroutine.
// Handlers must be registered before the first Dispatch.
type UpdateProcessor struct {
	s                  Service
	enabled            []string
	registeredHandlers map[string]Handler
	inFlight           conc.WaitGroup
	logger             *log.Entry
}

func NewUpdateProcessor(s Service, enabled []string) *UpdateProcessor {
	return &UpdateProcessor{
		s:                  s,
		enabled:            enabled,
		registeredHandlers: make(map[string]Handler),
		logger:             log.WithField("object", "update_processor"),
	}
}

func (up *UpdateProcessor) RegisterUpdateHandler(title string, handler Handler) {
	up.registeredHandlers[title] = handler
}

// Handlers returns the titles of the handler chain in the order they run and warns about enabled titles nobody registered.
func (up *UpdateProcessor) Handlers() []string {
	titles := make([]string, 0, len(up.enabled))
	for _, title := range up.enabled {
		if h, ok := up.registeredHandlers[title]; !ok || h == nil {
			up.logger.Warnf("no registered handler: %s", title)
			continue
		}
		titles = append(titles, title)
	}
	return titles
}

// Dispatch handles ev in the background. A panic inside a handler only aborts this event.
func (up *UpdateProcessor) Dispatch(ctx context.Context, ev *Event) {
	if ev == nil {
		return
	}
	up.inFlight.Go(func() {
		defer infra.LogPanic("event:" + string(ev.Kind))
		if err := up.Process(ctx, ev); err != nil {
			observability.RecordEvent(string(ev.Kind), "error")
			up.logger.WithError(err).WithField("kind", ev.Kind).Error("cant process event")
			return
		}
		observability.RecordEvent(string(ev.Kind), "ok")
	})
}

// Wait blocks until every dispatched event has been handled.
func (up *UpdateProcessor) Wait() {
	up.inFlight.Wait()
}

func (up *UpdateProcessor) Process(ctx context.Context, ev *Event) error {
	if ev == nil {
		return errors.New("event is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if up.skip(ev) {
		return nil
	}

	for _, title := range up.enabled {
		handler := up.registeredHandlers[title]
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, ev)
		if err != nil {
			return errors.WithMessagef(err, "handler %s", title)
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func (up *UpdateProcessor) skip(ev *Event) bool {
	selfID := up.s.GetPlatform().SelfID()
	switch ev.Kind {
	case EventMessage:
		if ev.Message == nil {
			return true
		}
		if ev.Message.AuthorID == selfID {
			return true
		}
		if !ev.Message.CreatedAt.IsZero() && time.Since(ev.Message.CreatedAt) > UpdateTimeout {
			up.logger.WithFields(log.Fields{
				"message_id": ev.Message.ID,
				"age":        time.Since(ev.Message.CreatedAt),
			}).Debug("Skipping outdated message")
			return true
		}
	case EventEdit:
		if ev.Edit == nil || ev.Edit.After == nil || ev.Edit.After.AuthorID == selfID {
			return true
		}
	case EventReaction:
		if ev.Reaction == nil || ev.Reaction.UserID == selfID {
			return true
		}
	default:
		return true
	}
	return false
}
