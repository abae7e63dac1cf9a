package wish

import "context"

// Repository is the document-store boundary for wishes.
//
// Implementations: store.Store (sqlite), pgstore.Store (Postgres),
// dynamostore.Store (DynamoDB) and memstore.Store (in-process).
type Repository interface {
	// CreateIfAbsent atomically writes w unless a record with w.ID exists.
	//
	// On success the repository sets w.CreatedAt to its write timestamp.
	// If the ID is taken it returns ErrAlreadyExists and writes nothing.
	CreateIfAbsent(ctx context.Context, w *Wish) error

	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Wish, error)

	// ListByInvitation returns every wish of one invitation, most recent
	// first, ties broken by ID ascending.
	ListByInvitation(ctx context.Context, invitationID string) ([]Wish, error)
}

// Notifier carries "this invitation's wishes changed" signals between writers
// and live readers.
//
// Implementations: live.Hub (in-process) and live.RedisNotifier.
type Notifier interface {
	// Notify signals that invitationID has a new wish.
	Notify(ctx context.Context, invitationID string) error

	// Subscribe returns a channel that receives a value after each Notify for
	// invitationID. Signals may be coalesced. The channel is closed when ctx
	// is done.
	Subscribe(ctx context.Context, invitationID string) (<-chan struct{}, error)
}
