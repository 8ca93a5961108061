package modctl

import (
	"context"
	"fmt"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

// Uninstall removes a mod from disk, unloading it from the host first when
// it is currently live. The host is asked about the load state on every
// invocation rather than remembering earlier answers, so repeating the
// command after a completed uninstall skips straight to the removal step.
func (s *Service) Uninstall(ctx context.Context, target, modID string) {
	log.FromCtx(ctx).Info().Str("mod", modID).Msg("uninstalling mod")

	loaded, err := s.host.IsLoaded(ctx, modID)
	if err != nil {
		s.fail(ctx, target, "uninstall", modID, err)
		return
	}

	if loaded {
		if err := s.host.UnloadMod(ctx, modID); err != nil {
			s.fail(ctx, target, "uninstall", modID, err)
			return
		}
		s.notifier.Notice(ctx, target, fmt.Sprintf("Mod %q unloaded.", modID))
	}

	s.notifier.Notice(ctx, target, fmt.Sprintf("Uninstalling %q...", modID))

	if err := s.repo.Uninstall(ctx, modID); err != nil {
		s.fail(ctx, target, "uninstall", modID, err)
		return
	}

	s.notifier.Notice(ctx, target, fmt.Sprintf("Mod %q uninstalled.", modID))
	s.recordEvent(ctx, "uninstall", modID, target, core.EventOutcomeOK, "")
}
