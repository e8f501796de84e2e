package ports

import (
	"context"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// DraftGenerator produces a short natural-language summary of selected changes.
type DraftGenerator interface {
	// GenerateDraft returns the generated text or a *GenerationError.
	GenerateDraft(ctx context.Context, systemPrompt string, payload entities.DraftPayload) (string, error)
}
