package modctl

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

var _ core.ModDispatcher = (*Service)(nil)

// Service turns one mod command line into an orchestrated sequence of
// repository and host calls, reporting every step to the reply target.
// It holds no state of its own between invocations.
type Service struct {
	repo     core.ModRepository
	host     core.ModHost
	notifier core.Notifier
	events   core.EventsRepository
}

func NewService(repo core.ModRepository, host core.ModHost, notifier core.Notifier, events core.EventsRepository) *Service {
	return &Service{
		repo:     repo,
		host:     host,
		notifier: notifier,
		events:   events,
	}
}

// Dispatch parses "<verb> [payload]" and runs the matching routine. The verb
// is matched case-insensitively. Unknown verbs are dropped without a notice,
// as is install/uninstall with a missing mod id: neither survives the grammar.
func (s *Service) Dispatch(ctx context.Context, target, input string) {
	verb, rest := splitVerb(input)

	switch strings.ToLower(verb) {
	case "search":
		s.Search(ctx, target, rest)
	case "install":
		if rest == "" {
			return
		}
		s.Install(ctx, target, rest)
	case "uninstall":
		if rest == "" {
			return
		}
		s.Uninstall(ctx, target, rest)
	default:
		log.FromCtx(ctx).Debug().Str("verb", verb).Msg("ignoring unknown mod verb")
	}
}

// splitVerb cuts the first token off the input. The remainder is passed
// through as-is apart from surrounding whitespace.
func splitVerb(input string) (verb, rest string) {
	verb, rest, _ = strings.Cut(strings.TrimSpace(input), " ")
	return verb, strings.TrimSpace(rest)
}

// fail reports a collaborator failure: the message goes to the reply target
// verbatim, once, and the routine that called fail runs no further steps.
func (s *Service) fail(ctx context.Context, target, verb, modID string, err error) {
	log.FromCtx(ctx).Warn().Err(err).Str("verb", verb).Str("mod", modID).Msg("mod command failed")
	s.notifier.Notice(ctx, target, err.Error())
	s.recordEvent(ctx, verb, modID, target, core.EventOutcomeError, err.Error())
}

// recordEvent writes the single terminal audit event of an invocation.
func (s *Service) recordEvent(ctx context.Context, verb, modID, target, outcome, detail string) {
	if s.events == nil {
		return
	}

	event := core.ModEvent{
		InvocationID: uuid.NewString(),
		Verb:         verb,
		ModID:        modID,
		Target:       target,
		Outcome:      outcome,
		Detail:       detail,
	}
	if err := s.events.AddEvent(ctx, event); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("verb", verb).Msg("failed to record mod event")
	}
}
