package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/repository"
)

// CollectionRepository implements collection.Repository for SQLite
type CollectionRepository struct {
	db *DB
}

// NewCollectionRepository creates a new CollectionRepository
func NewCollectionRepository(db *DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

type collectionColumns struct {
	datasets, users, scope, terms, comments, watchers, approvals, keywords, categories string
}

func encodeCollection(c *collection.Collection) (collectionColumns, error) {
	var cols collectionColumns
	fields := []struct {
		dst *string
		src any
	}{
		{&cols.datasets, nonNil(c.Datasets)},
		{&cols.users, nonNil(c.Users)},
		{&cols.scope, c.Scope},
		{&cols.terms, c.Terms},
		{&cols.comments, nonNil(c.Comments)},
		{&cols.watchers, nonNil(c.Watchers)},
		{&cols.approvals, nonNil(c.Approvals)},
		{&cols.keywords, nonNil(c.Keywords)},
		{&cols.categories, nonNil(c.Categories)},
	}
	for _, f := range fields {
		encoded, err := encodeJSON(f.src)
		if err != nil {
			return cols, err
		}
		*f.dst = encoded
	}
	return cols, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

const insertCollection = `
	INSERT INTO collections (
		id, name, description, state, is_public, owner,
		created_at, updated_at, state_entered_at,
		datasets, users, scope, terms, comments, watchers, approvals, keywords, categories
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const upsertCollection = insertCollection + `
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		state = excluded.state,
		is_public = excluded.is_public,
		owner = excluded.owner,
		updated_at = excluded.updated_at,
		state_entered_at = excluded.state_entered_at,
		datasets = excluded.datasets,
		users = excluded.users,
		scope = excluded.scope,
		terms = excluded.terms,
		comments = excluded.comments,
		watchers = excluded.watchers,
		approvals = excluded.approvals,
		keywords = excluded.keywords,
		categories = excluded.categories
`

// Create inserts a new collection together with its timeline. An existing id
// yields repository.ErrConflict.
func (r *CollectionRepository) Create(ctx context.Context, c *collection.Collection) error {
	return r.write(ctx, c, insertCollection)
}

// Save inserts or replaces a collection together with its timeline
func (r *CollectionRepository) Save(ctx context.Context, c *collection.Collection) error {
	return r.write(ctx, c, upsertCollection)
}

func (r *CollectionRepository) write(ctx context.Context, c *collection.Collection, query string) error {
	cols, err := encodeCollection(c)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.State,
		c.IsPublic,
		c.Owner,
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
		c.StateEnteredAt.UTC(),
		cols.datasets,
		cols.users,
		cols.scope,
		cols.terms,
		cols.comments,
		cols.watchers,
		cols.approvals,
		cols.keywords,
		cols.categories,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: collection %s", repository.ErrConflict, c.ID)
		}
		return fmt.Errorf("failed to save collection: %w", err)
	}

	if err := replaceTimeline(ctx, tx, c.ID, c.Timeline); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}
	return nil
}

// Get retrieves a collection by ID, including its timeline
func (r *CollectionRepository) Get(ctx context.Context, id string) (*collection.Collection, error) {
	query := `
		SELECT ` + collectionSelectColumns + `
		FROM collections
		WHERE id = ?
	`

	c, err := scanCollection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	timeline, err := r.ListTimeline(ctx, id, collection.TimelineOptions{})
	if err != nil {
		return nil, err
	}
	// ListTimeline is newest first; the aggregate keeps append order.
	for i, j := 0, len(timeline)-1; i < j; i, j = i+1, j-1 {
		timeline[i], timeline[j] = timeline[j], timeline[i]
	}
	c.Timeline = timeline

	return c, nil
}

// List returns collections matching the given filters. Timelines are not loaded.
func (r *CollectionRepository) List(ctx context.Context, opts collection.ListOptions) ([]collection.Collection, error) {
	query := `
		SELECT ` + collectionSelectColumns + `
		FROM collections
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.Owner != "" {
		conditions = append(conditions, "owner = ?")
		args = append(args, opts.Owner)
	}
	if len(opts.States) > 0 {
		conditions = append(conditions, "state IN ("+placeholders(len(opts.States))+")")
		for _, s := range opts.States {
			args = append(args, s)
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + joinConditions(conditions)
	}

	query += " ORDER BY updated_at DESC, id ASC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var list []collection.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection rows: %w", err)
	}

	return list, nil
}

const collectionSelectColumns = `
	id, name, description, state, is_public, owner,
	created_at, updated_at, state_entered_at,
	datasets, users, scope, terms, comments, watchers, approvals, keywords, categories
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*collection.Collection, error) {
	var c collection.Collection
	var cols collectionColumns

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.State,
		&c.IsPublic,
		&c.Owner,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.StateEnteredAt,
		&cols.datasets,
		&cols.users,
		&cols.scope,
		&cols.terms,
		&cols.comments,
		&cols.watchers,
		&cols.approvals,
		&cols.keywords,
		&cols.categories,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}

	fields := []struct {
		raw string
		dst any
	}{
		{cols.datasets, &c.Datasets},
		{cols.users, &c.Users},
		{cols.scope, &c.Scope},
		{cols.terms, &c.Terms},
		{cols.comments, &c.Comments},
		{cols.watchers, &c.Watchers},
		{cols.approvals, &c.Approvals},
		{cols.keywords, &c.Keywords},
		{cols.categories, &c.Categories},
	}
	for _, f := range fields {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("%w: collection %s: %w", repository.ErrInvalidInput, c.ID, err)
		}
	}

	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.StateEnteredAt = c.StateEnteredAt.UTC()
	return &c, nil
}
