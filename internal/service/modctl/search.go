package modctl

import (
	"context"
	"fmt"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

// Search queries the repository and renders the result as one notice per
// mod, ids left-padded to a shared column so descriptions line up. An empty
// result still produces the header and footer.
func (s *Service) Search(ctx context.Context, target, terms string) {
	log.FromCtx(ctx).Info().Str("terms", terms).Msg("searching mods")

	s.notifier.Notice(ctx, target, fmt.Sprintf("Searching for %q...", terms))

	result, err := s.repo.Search(ctx, terms)
	if err != nil {
		s.fail(ctx, target, "search", "", err)
		return
	}

	width := 0
	for _, id := range result.ModIDs {
		if len(id) > width {
			width = len(id)
		}
	}

	s.notifier.Notice(ctx, target, fmt.Sprintf("Results for %q:", terms))
	for _, id := range result.ModIDs {
		s.notifier.Notice(ctx, target, fmt.Sprintf("%-*s  %s", width, id, result.Describe(id)))
	}
	s.notifier.Notice(ctx, target, "End of results.")

	s.recordEvent(ctx, "search", "", target, core.EventOutcomeOK,
		fmt.Sprintf("%d results for %q", len(result.ModIDs), terms))
}
