package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dloez/tag-track/internal/source"
)

// createTags is the Tag Creator component (§4.5 step 5, §5): it persists
// PendingTags through src in deterministic (config) order, aborting the
// remainder on the first failure and reporting exactly which tags made it.
func createTags(ctx context.Context, src source.Source, pending []PendingTag) (created []string, err error) {
	for _, p := range pending {
		select {
		case <-ctx.Done():
			return created, fmt.Errorf("engine: tag creation canceled: %w", ctx.Err())
		default:
		}

		log.Info().Str("scope", scopeLabel(p.Scope)).Str("tag", p.Name).Str("kind", p.Kind.String()).Msg("creating tag")

		if createErr := src.CreateTag(ctx, p.CommitID, p.Name, p.Message); createErr != nil {
			return created, fmt.Errorf("engine: creating tag %q: %w", p.Name, createErr)
		}
		created = append(created, p.Name)
	}
	return created, nil
}
