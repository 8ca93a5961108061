package modctl

import (
	"context"
	"fmt"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

// Install downloads a mod from the repository and brings it online on the
// host. Each completed step is announced; the first failing step reports its
// error and ends the invocation.
func (s *Service) Install(ctx context.Context, target, modID string) {
	log.FromCtx(ctx).Info().Str("mod", modID).Msg("installing mod")

	s.notifier.Notice(ctx, target, fmt.Sprintf("Installing %q...", modID))

	if err := s.repo.Install(ctx, modID); err != nil {
		s.fail(ctx, target, "install", modID, err)
		return
	}

	s.notifier.Notice(ctx, target, fmt.Sprintf("Installed %q, loading mod...", modID))

	if err := s.host.LoadMod(ctx, modID); err != nil {
		s.fail(ctx, target, "install", modID, err)
		return
	}

	s.notifier.Notice(ctx, target, fmt.Sprintf("Mod %q loaded.", modID))
	s.recordEvent(ctx, "install", modID, target, core.EventOutcomeOK, "")
}
