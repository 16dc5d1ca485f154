package domain

import "context"

// CategoryRepository defines the data-access contract for categories.
// Lookups return (nil, nil) when nothing matches.
type CategoryRepository interface {
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	GetByID(ctx context.Context, id int) (*Category, error)

	// ExistsByNameOrSlug returns true when a category already uses the name
	// (case-insensitive) or the slug.
	ExistsByNameOrSlug(ctx context.Context, name, slug string) (bool, error)

	// Create inserts a category with zero likes and returns its ID.
	// Returns an error wrapping ErrDuplicate when the name or slug is taken.
	Create(ctx context.Context, name, slug string) (int, error)

	// GetOrCreate returns the category named c.Name, inserting c when absent.
	// An existing category keeps its slug and likes.
	GetOrCreate(ctx context.Context, c Category) (*Category, error)

	// TopByLikes returns up to limit categories ordered by likes, most liked first.
	TopByLikes(ctx context.Context, limit int) ([]Category, error)

	// SearchByPrefix returns up to limit categories whose name starts with prefix.
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]Category, error)

	// IncrementLikes adds one like and returns the new count.
	// Returns (0, false, nil) when the category does not exist.
	IncrementLikes(ctx context.Context, id int) (likes int, found bool, err error)
}

// PageRepository defines the data-access contract for pages.
type PageRepository interface {
	// ListByCategory returns the pages of a category ordered by views, most viewed first.
	ListByCategory(ctx context.Context, categoryID int) ([]Page, error)

	// TopByViews returns up to limit pages ordered by views, most viewed first.
	TopByViews(ctx context.Context, limit int) ([]Page, error)

	// Create inserts a page with the given view count and returns its ID.
	Create(ctx context.Context, p Page) (int, error)

	// GetOrCreate returns the page with the given title in the category,
	// creating it when absent.
	GetOrCreate(ctx context.Context, p Page) (*Page, error)

	// IncrementViews adds one view and returns the page's URL.
	// Returns ("", false, nil) when the page does not exist.
	IncrementViews(ctx context.Context, id int) (url string, found bool, err error)
}
