package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const queryTimeout = 5 * time.Second

func openDB(cfg config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "postgres":
		sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DB.Driver == "sqlite" {
		// One long-lived connection: SQLite serialises writers anyway and an
		// in-memory database lives only as long as its connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConnections)
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConnections)
		sqlDB.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = sqlDB.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.DB.Driver == "sqlite" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}

	return db, nil
}

type storage struct {
	db *gorm.DB
}

func newStorage(db *gorm.DB) *storage {
	return &storage{
		db: db,
	}
}

// conn returns a session bound to ctx with the per-query timeout applied.
func (s *storage) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	return s.db.WithContext(ctx), cancel
}

func (s *storage) migrate(ctx context.Context) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.AutoMigrate(&user{}, &task{}, &apiToken{})
}

func (s *storage) close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *storage) getUserByEmail(ctx context.Context, email string) (*user, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var u user
	err := db.Where("email = ?", email).Take(&u).Error
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *storage) getUserByID(ctx context.Context, id int) (*user, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var u user
	err := db.Where("id = ?", id).Take(&u).Error
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *storage) insertUser(ctx context.Context, u *user) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	err := db.Omit("Tasks", "Tokens").Create(u).Error
	if isUniqueViolation(err) {
		return errDuplicateEmail
	}
	return err
}

// deleteUser removes the user together with its tasks and tokens.
func (s *storage) deleteUser(ctx context.Context, u *user) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", u.ID).Delete(&apiToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user{}, u.ID).Error
	})
}

func (s *storage) insertToken(ctx context.Context, t *apiToken) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Create(t).Error
}

func (s *storage) getTokenByHash(ctx context.Context, hash string) (*apiToken, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var t apiToken
	err := db.Where("token_hash = ?", hash).Take(&t).Error
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}

func (s *storage) touchToken(ctx context.Context, t *apiToken, at time.Time) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	t.LastUsedAt = &at
	return db.Model(&apiToken{}).Where("id = ?", t.ID).Update("last_used_at", at).Error
}

func (s *storage) deleteToken(ctx context.Context, t *apiToken) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Delete(&apiToken{}, t.ID).Error
}

func (s *storage) insertTask(ctx context.Context, t *task) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Create(t).Error
}

func (s *storage) getTask(ctx context.Context, id int) (*task, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var t task
	err := db.Where("id = ?", id).Take(&t).Error
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, errNotFound
		default:
			return nil, err
		}
	}
	return &t, nil
}

// updateTask writes every mutable column of t. Last write wins.
func (s *storage) updateTask(ctx context.Context, t *task) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	now := time.Now()
	result := db.Model(&task{}).Where("id = ?", t.ID).Updates(map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"due_date":    t.DueDate,
		"completed":   t.Completed,
		"updated_at":  now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	t.UpdatedAt = now
	return nil
}

func (s *storage) deleteTask(ctx context.Context, t *task) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Delete(&task{}, t.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	return nil
}

// findTasks returns the caller's tasks matching f in display order, plus the
// total number of matches. A non-positive limit returns every match.
func (s *storage) findTasks(ctx context.Context, userID int, f taskFilter, limit, offset int) ([]*task, int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Model(&task{}).Where("user_id = ?", userID)
	switch f.Status {
	case statusCompleted:
		q = q.Where("completed IS NOT NULL")
	case statusPending:
		q = q.Where("completed IS NULL")
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	find := q.Order("CASE WHEN due_date IS NULL THEN 0 ELSE 1 END").
		Order("due_date ASC").
		Order("id ASC")
	if limit > 0 {
		find = find.Limit(limit).Offset(offset)
	}
	tasks := []*task{}
	if err := find.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
