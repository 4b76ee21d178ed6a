package athletes

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// Repository implements athlete data access over the document store.
type Repository struct {
	store docstore.Store
	clock clockwork.Clock
}

// NewRepository creates a new athletes repository.
func NewRepository(store docstore.Store, clock clockwork.Clock) *Repository {
	return &Repository{store: store, clock: clock}
}

// composeQuery builds the store query for a filter set: one equality
// predicate per constrained selector, always ordered by updated_at
// descending. Search is never composed; the store has no text search.
func composeQuery(f Filters) docstore.Query {
	q := docstore.Query{
		Collection: Collection,
		OrderBy:    &docstore.Order{Field: "updated_at", Direction: docstore.Descending},
	}
	eq := f.equalityFields()
	for _, field := range []string{"sport", "level", "county", "scouting_status", "position"} {
		if v, ok := eq[field]; ok {
			q.Predicates = append(q.Predicates, docstore.Predicate{Field: field, Value: v})
		}
	}
	return q
}

// unfilteredQuery is the degraded-path fetch: the whole collection, still
// sorted by updated_at descending so both paths return the same order.
func unfilteredQuery() docstore.Query {
	return docstore.Query{
		Collection: Collection,
		OrderBy:    &docstore.Order{Field: "updated_at", Direction: docstore.Descending},
	}
}

// Create inserts a new athlete and stamps created_at/updated_at.
func (r *Repository) Create(ctx context.Context, req CreateAthleteRequest) (*models.Athlete, error) {
	now := r.clock.Now().UTC()
	id, err := r.store.Create(ctx, Collection, createRequestToFields(req, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create athlete: %w", err)
	}

	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back athlete: %w", err)
	}
	a := docToAthlete(doc)
	return &a, nil
}

// Get retrieves an athlete by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*models.Athlete, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	a := docToAthlete(doc)
	return &a, nil
}

// Update merges a partial update; unspecified fields are left untouched.
// updated_at is refreshed as part of the same write.
func (r *Repository) Update(ctx context.Context, id string, req UpdateAthleteRequest) error {
	err := r.store.Update(ctx, Collection, id, updateRequestToFields(req, r.clock.Now().UTC()))
	if errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update athlete: %w", err)
	}
	return nil
}

// SetMedia replaces the athlete's media array and refreshes updated_at.
func (r *Repository) SetMedia(ctx context.Context, id string, items []models.MediaItem) error {
	fields := map[string]any{
		"media":      mediaToFields(items),
		"updated_at": r.clock.Now().UTC(),
	}
	if err := r.store.Update(ctx, Collection, id, fields); err != nil {
		return fmt.Errorf("failed to update athlete media: %w", err)
	}
	return nil
}

// Delete removes the athlete document. Media cleanup is orchestrated by the
// app layer before this is called.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete athlete: %w", err)
	}
	return nil
}

// List executes the composed query, degrading to fetch-everything plus
// in-memory filtering when the store reports a missing composite index. The
// returned set is the same on both paths, sorted by updated_at descending.
// The second return reports whether the degraded path ran.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.Athlete, bool, error) {
	docs, err := r.store.RunQuery(ctx, composeQuery(f))
	if err == nil {
		return docsToAthletes(docs), false, nil
	}
	if !errors.Is(err, docstore.ErrIndexRequired) {
		return nil, false, fmt.Errorf("failed to query athletes: %w", err)
	}

	log.Warn().Str("collection", Collection).Interface("filters", f.equalityFields()).
		Msg("store rejected filtered query for missing index, falling back to client-side filtering")

	all, err := r.store.RunQuery(ctx, unfilteredQuery())
	if err != nil {
		return nil, true, fmt.Errorf("failed to fetch collection for fallback filtering: %w", err)
	}

	filtered := filterAthletes(docsToAthletes(all), f)
	sortByUpdatedAtDesc(filtered)
	return filtered, true, nil
}

// ListPage returns one page. On the primary path the store is asked for
// pageSize+1 documents after the cursor; the extra document only proves a
// next page exists. On the degraded path the cursor is meaningless (the
// store never executed the query), so paging becomes a positional slice
// over the fully filtered result.
func (r *Repository) ListPage(ctx context.Context, f Filters, req PageRequest) (Page, error) {
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	q := composeQuery(f)
	q.Limit = req.PageSize + 1
	q.StartAfter = req.Cursor

	docs, err := r.store.RunQuery(ctx, q)
	if err == nil {
		page := Page{Athletes: docsToAthletes(docs)}
		if len(page.Athletes) > req.PageSize {
			page.Athletes = page.Athletes[:req.PageSize]
			page.HasMore = true
		}
		if n := len(page.Athletes); n > 0 {
			page.Cursor = page.Athletes[n-1].ID
		}
		return page, nil
	}
	if !errors.Is(err, docstore.ErrIndexRequired) {
		return Page{}, fmt.Errorf("failed to page athletes: %w", err)
	}

	log.Warn().Str("collection", Collection).Int("page", req.Page).
		Msg("store rejected paged query for missing index, falling back to positional paging")

	filtered, _, err := r.List(ctx, f)
	if err != nil {
		return Page{}, err
	}

	offset := (req.Page - 1) * req.PageSize
	if offset >= len(filtered) {
		return Page{UsedFallback: true}, nil
	}
	end := offset + req.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return Page{
		Athletes:     filtered[offset:end],
		HasMore:      end < len(filtered),
		UsedFallback: true,
	}, nil
}

// Count executes the filtered query solely for its cardinality, with the
// same degraded path as List so counts and pages can never disagree.
func (r *Repository) Count(ctx context.Context, f Filters) (int, error) {
	n, err := r.store.Count(ctx, composeQuery(f))
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, docstore.ErrIndexRequired) {
		return 0, fmt.Errorf("failed to count athletes: %w", err)
	}

	log.Warn().Str("collection", Collection).
		Msg("store rejected count query for missing index, counting client-side")

	filtered, _, err := r.List(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(filtered), nil
}

// BulkApply builds one atomic batch covering every id. Mutations refresh
// updated_at inside the same batch. The batch fully commits or the caller
// gets a single BulkOperationError for the whole set.
func (r *Repository) BulkApply(ctx context.Context, action BulkAction) error {
	now := r.clock.Now().UTC()
	batch := r.store.Batch()

	for _, id := range action.IDs {
		switch action.Type {
		case BulkUpdateStatus:
			batch.Update(Collection, id, map[string]any{
				"status":     string(action.Status),
				"updated_at": now,
			})
		case BulkUpdateLevel:
			batch.Update(Collection, id, map[string]any{
				"level":      string(action.Level),
				"updated_at": now,
			})
		case BulkAssignProgram:
			batch.Update(Collection, id, map[string]any{
				"training_program": action.Program,
				"updated_at":       now,
			})
		case BulkDelete:
			batch.Delete(Collection, id)
		default:
			return fmt.Errorf("unsupported bulk action: %s", action.Type)
		}
	}

	if err := batch.Commit(ctx); err != nil {
		return &BulkOperationError{Action: action.Type, IDs: len(action.IDs), Err: err}
	}
	return nil
}

func filterAthletes(list []models.Athlete, f Filters) []models.Athlete {
	var out []models.Athlete
	for _, a := range list {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

func applySearch(list []models.Athlete, f Filters) []models.Athlete {
	if f.Search == "" {
		return list
	}
	var out []models.Athlete
	for _, a := range list {
		if f.MatchesSearch(a) {
			out = append(out, a)
		}
	}
	return out
}

func sortByUpdatedAtDesc(list []models.Athlete) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
