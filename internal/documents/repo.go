package documents

import "context"

// Repo persists documents. Every read and write is scoped to an owner.
type Repo interface {
	Create(ctx context.Context, doc Document) (Document, error)
	GetByID(ctx context.Context, ownerID, id string) (Document, error)
	List(ctx context.Context, ownerID string, q Query) ([]Document, error)
	// Finalize writes the extraction outcome. It fails with ErrAlreadyFinal
	// unless the document is still processing.
	Finalize(ctx context.Context, ownerID, id, text string, status Status) (Document, error)
	Rename(ctx context.Context, ownerID, id, title string) (Document, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, ownerID, id string) error
	Count(ctx context.Context, ownerID string, status Status) (int, error)
	ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (int, error)
}
