package database

import (
	"strings"
	"time"

	"focusmon/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for focus transitions
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateTransition inserts a new focus transition into the database
func (r *Repository) CreateTransition(t *models.FocusTransition) error {
	t.Target = strings.ToUpper(strings.TrimSpace(t.Target))
	// SQLite compares timestamps as text, so everything is stored in UTC.
	t.Timestamp = t.Timestamp.UTC()
	result := r.db.Create(t)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert focus transition")
	}
	return nil
}

// GetTransitionsBetween returns transitions in [start, end), oldest first
func (r *Repository) GetTransitionsBetween(start, end time.Time) ([]*models.FocusTransition, error) {
	var transitions []*models.FocusTransition
	result := r.db.Where("timestamp >= ? AND timestamp < ?", start.UTC(), end.UTC()).
		Order("timestamp ASC, id ASC").
		Find(&transitions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query focus transitions")
	}

	return transitions, nil
}

// GetTransitionsSince returns transitions at or after since, oldest first
func (r *Repository) GetTransitionsSince(since time.Time) ([]*models.FocusTransition, error) {
	var transitions []*models.FocusTransition
	result := r.db.Where("timestamp >= ?", since.UTC()).Order("timestamp ASC, id ASC").Find(&transitions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query focus transitions")
	}

	return transitions, nil
}

// GetLastTransitionBefore returns the newest transition strictly before t,
// or nil if there is none
func (r *Repository) GetLastTransitionBefore(t time.Time) (*models.FocusTransition, error) {
	var transition models.FocusTransition
	result := r.db.Where("timestamp < ?", t.UTC()).Order("timestamp DESC, id DESC").First(&transition)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get previous transition")
	}
	return &transition, nil
}

// GetLatestTransition retrieves the most recent transition, or nil
func (r *Repository) GetLatestTransition() (*models.FocusTransition, error) {
	var transition models.FocusTransition
	result := r.db.Order("timestamp DESC, id DESC").First(&transition)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest transition")
	}
	return &transition, nil
}

// ListRecentTransitions returns up to limit transitions, newest first
func (r *Repository) ListRecentTransitions(limit int) ([]*models.FocusTransition, error) {
	var transitions []*models.FocusTransition
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&transitions)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list focus transitions")
	}
	return transitions, nil
}

// CountTransitions returns the number of stored transitions
func (r *Repository) CountTransitions() (int64, error) {
	var count int64
	if err := r.db.Model(&models.FocusTransition{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count focus transitions")
	}
	return count, nil
}

// DeleteTransitionsBefore removes transitions older than before for good,
// so pruning shrinks the journal
func (r *Repository) DeleteTransitionsBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before.UTC()).Delete(&models.FocusTransition{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old transitions")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// ListRecentErrors returns up to limit error logs, newest first
func (r *Repository) ListRecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list error logs")
	}
	return logs, nil
}

// Clear removes all transitions and error logs from the database
func (r *Repository) Clear() error {
	for _, table := range []string{"focus_transitions", "error_logs"} {
		if result := r.db.Exec("DELETE FROM " + table); result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}
