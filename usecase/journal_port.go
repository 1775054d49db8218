package usecase

import (
	"context"

	"github.com/signalrelay/authgate/domain"
)

// WriteJournal abstracts the write-behind journal so use cases stay
// storage-agnostic. A journaled profile is persisted later, once the primary
// store is reachable again.
type WriteJournal interface {
	JournalProfile(ctx context.Context, profile *domain.Profile) error
}
