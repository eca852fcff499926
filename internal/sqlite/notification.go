package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/repository"
)

// NotificationRepository implements notification.Repository for SQLite
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return writeNotification(ctx, r.db, n)
}

// CreateAll inserts the notifications in one transaction. Either every row is
// stored or none is.
func (r *NotificationRepository) CreateAll(ctx context.Context, list []notification.Notification) error {
	if len(list) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range list {
		if err := writeNotification(ctx, tx, &list[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notifications: %w", err)
	}
	return nil
}

func writeNotification(ctx context.Context, exec execer, n *notification.Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	actors, err := encodeJSON(nonNil(n.Actors))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (
			id, type, priority, recipient_id, collection_id, collection_name,
			actors, title, message, timestamp, is_read, is_archived, action_url, dedup_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = exec.ExecContext(ctx, query,
		n.ID,
		n.Type,
		n.Priority,
		n.RecipientID,
		n.CollectionID,
		n.CollectionName,
		actors,
		n.Title,
		n.Message,
		n.Timestamp.UTC(),
		n.IsRead,
		n.IsArchived,
		n.ActionURL,
		n.DedupKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: notification %s", repository.ErrConflict, n.ID)
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// Get retrieves a notification by ID
func (r *NotificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	query := `
		SELECT ` + notificationSelectColumns + `
		FROM notifications
		WHERE id = ?
	`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

// List returns notifications matching the given filters, newest first
func (r *NotificationRepository) List(ctx context.Context, opts notification.ListOptions) ([]notification.Notification, error) {
	query := `
		SELECT ` + notificationSelectColumns + `
		FROM notifications
		WHERE recipient_id = ?
	`

	args := []interface{}{opts.RecipientID}
	conditions := []string{}

	if opts.CollectionID != "" {
		conditions = append(conditions, "collection_id = ?")
		args = append(args, opts.CollectionID)
	}
	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, opts.Type)
	}
	if opts.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, opts.Priority)
	}
	if opts.UnreadOnly {
		conditions = append(conditions, "is_read = 0")
	}
	if !opts.IncludeArchived {
		conditions = append(conditions, "is_archived = 0")
	}

	if len(conditions) > 0 {
		query += " AND " + joinConditions(conditions)
	}

	query += " ORDER BY timestamp DESC, id ASC"

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
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := []notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return list, nil
}

// SetRead updates the read flag
func (r *NotificationRepository) SetRead(ctx context.Context, id string, read bool) error {
	return r.setFlag(ctx, "is_read", id, read)
}

// SetArchived updates the archived flag
func (r *NotificationRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	return r.setFlag(ctx, "is_archived", id, archived)
}

// MarkAllRead marks all unread notifications of a recipient as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

// HasOpen reports whether the recipient holds an unarchived notification with dedupKey
func (r *NotificationRepository) HasOpen(ctx context.Context, recipientID, dedupKey string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE recipient_id = ? AND dedup_key = ? AND is_archived = 0
		)
	`, recipientID, dedupKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return exists == 1, nil
}

func (r *NotificationRepository) setFlag(ctx context.Context, column, id string, value bool) error {
	// column is one of two fixed names, never user input.
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const notificationSelectColumns = `
	id, type, priority, recipient_id, collection_id, collection_name,
	actors, title, message, timestamp, is_read, is_archived, action_url, dedup_key
`

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var n notification.Notification
	var actors string

	err := row.Scan(
		&n.ID,
		&n.Type,
		&n.Priority,
		&n.RecipientID,
		&n.CollectionID,
		&n.CollectionName,
		&actors,
		&n.Title,
		&n.Message,
		&n.Timestamp,
		&n.IsRead,
		&n.IsArchived,
		&n.ActionURL,
		&n.DedupKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	if err := decodeJSON(actors, &n.Actors); err != nil {
		return nil, fmt.Errorf("%w: notification %s: %w", repository.ErrInvalidInput, n.ID, err)
	}
	n.Timestamp = n.Timestamp.UTC()
	return &n, nil
}
