package schedules

import "context"

// Repository is the persistence contract for schedules.
type Repository interface {
	// ListActive returns every active schedule with its member's phone number.
	ListActive(ctx context.Context) ([]Schedule, error)
	Get(ctx context.Context, id int64) (Schedule, error)
	Create(ctx context.Context, s Schedule) (Schedule, error)

	// Update applies fn to the stored schedule atomically and persists the result.
	Update(ctx context.Context, id int64, fn func(*Schedule) error) (Schedule, error)
}
