package crudboot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repositoryConfig struct {
	logger    *zap.Logger
	isolation sql.IsolationLevel
}

type RepositoryOption func(*repositoryConfig)

func WithLogger(logger *zap.Logger) RepositoryOption {
	return func(c *repositoryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIsolation sets the isolation level of the per-call write transactions.
func WithIsolation(level sql.IsolationLevel) RepositoryOption {
	return func(c *repositoryConfig) {
		c.isolation = level
	}
}

type writeConfig struct {
	transaction bool
}

type WriteOption func(*writeConfig)

// WithoutTransaction runs a write directly on the repository handle.
func WithoutTransaction() WriteOption {
	return func(c *writeConfig) {
		c.transaction = false
	}
}

// SQLRepository gives CRUD access to the table of T. PK is the primary key
// type and FK the type of the foreign key used by list filters.
type SQLRepository[T Entity, PK comparable, FK any] struct {
	db        *gorm.DB
	shaper    *QueryShaper[T, FK]
	logger    *zap.Logger
	isolation sql.IsolationLevel
	tableName string
}

func NewSQLRepository[T Entity, PK comparable, FK any](db *gorm.DB, shaper *QueryShaper[T, FK], opts ...RepositoryOption) *SQLRepository[T, PK, FK] {
	cfg := repositoryConfig{
		logger:    zap.NewNop(),
		isolation: sql.LevelReadUncommitted,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if shaper == nil {
		shaper = &QueryShaper[T, FK]{}
	}
	var entity T
	return &SQLRepository[T, PK, FK]{
		db:        db,
		shaper:    shaper,
		logger:    cfg.logger,
		isolation: cfg.isolation,
		tableName: entity.TableName(),
	}
}

// WithTx returns a copy of the repository bound to tx, typically the handle of
// a UnitOfWork.
func (r *SQLRepository[T, PK, FK]) WithTx(tx *gorm.DB) *SQLRepository[T, PK, FK] {
	clone := *r
	clone.db = tx
	return &clone
}

func (r *SQLRepository[T, PK, FK]) DB() *gorm.DB {
	return r.db
}

func (r *SQLRepository[T, PK, FK]) TableName() string {
	return r.tableName
}

// Get returns the row with the given primary key, or nil when there is none.
func (r *SQLRepository[T, PK, FK]) Get(ctx context.Context, id PK) (*T, error) {
	byID, err := r.byPrimaryKey(id)
	if err != nil {
		return nil, err
	}

	var rows []T
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(byID).Limit(2).Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, fmt.Errorf("%s %v: %w", r.tableName, id, ErrNotUnique)
	}
}

func (r *SQLRepository[T, PK, FK]) GetAsync(ctx context.Context, id PK) <-chan Result[*T] {
	return runAsync(func() (*T, error) {
		return r.Get(ctx, id)
	})
}

// Find returns a query on the table narrowed by scopes.
func (r *SQLRepository[T, PK, FK]) Find(ctx context.Context, scopes ...Scope) *gorm.DB {
	query := r.db.WithContext(ctx).Model(new(T))
	for _, scope := range scopes {
		if scope != nil {
			query = query.Scopes(scope)
		}
	}
	return query
}

func (r *SQLRepository[T, PK, FK]) Count(ctx context.Context, filter Scope) (int64, error) {
	var total int64
	err := r.Find(ctx, filter).Count(&total).Error
	return total, err
}

func (r *SQLRepository[T, PK, FK]) CountAsync(ctx context.Context, filter Scope) <-chan Result[int64] {
	return runAsync(func() (int64, error) {
		return r.Count(ctx, filter)
	})
}

// List returns the filtered and sorted rows; q.Size caps the number of rows
// and q.Page is ignored.
func (r *SQLRepository[T, PK, FK]) List(ctx context.Context, q ListQuery[FK]) ([]T, error) {
	query, err := r.shaper.List(r.db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SQLRepository[T, PK, FK]) ListAsync(ctx context.Context, q ListQuery[FK]) <-chan Result[[]T] {
	return runAsync(func() ([]T, error) {
		return r.List(ctx, q)
	})
}

func (r *SQLRepository[T, PK, FK]) Paginate(ctx context.Context, q ListQuery[FK]) (Page[T], error) {
	query, total, err := r.shaper.Paginate(r.db.WithContext(ctx), q)
	if err != nil {
		return Page[T]{}, err
	}
	items := make([]T, 0)
	if err := query.Find(&items).Error; err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Total: total, Items: items}, nil
}

func (r *SQLRepository[T, PK, FK]) PaginateAsync(ctx context.Context, q ListQuery[FK]) <-chan Result[Page[T]] {
	return runAsync(func() (Page[T], error) {
		return r.Paginate(ctx, q)
	})
}

// Insert creates entity and returns its generated primary key.
func (r *SQLRepository[T, PK, FK]) Insert(ctx context.Context, entity *T, opts ...WriteOption) (PK, error) {
	var id PK
	err := r.write(ctx, "insert", opts, func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		key, err := r.primaryKeyOf(tx, entity)
		if err != nil {
			return err
		}
		id = key
		return nil
	})
	return id, err
}

// Update writes every column of entity to the row with the same primary key.
// It reports false when no row was touched.
func (r *SQLRepository[T, PK, FK]) Update(ctx context.Context, entity *T, opts ...WriteOption) (bool, error) {
	var updated bool
	err := r.write(ctx, "update", opts, func(tx *gorm.DB) error {
		result := tx.Model(entity).Select("*").Updates(entity)
		if result.Error != nil {
			return result.Error
		}
		updated = result.RowsAffected > 0
		return nil
	})
	return updated, err
}

func (r *SQLRepository[T, PK, FK]) InsertOrUpdate(ctx context.Context, entity *T, opts ...WriteOption) (bool, error) {
	err := r.write(ctx, "upsert", opts, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(entity).Error
	})
	return err == nil, err
}

// Delete removes the row with the given primary key and reports whether one
// was removed.
func (r *SQLRepository[T, PK, FK]) Delete(ctx context.Context, id PK, opts ...WriteOption) (bool, error) {
	var deleted bool
	err := r.write(ctx, "delete", opts, func(tx *gorm.DB) error {
		byID, err := r.byPrimaryKey(id)
		if err != nil {
			return err
		}
		result := tx.Scopes(byID).Delete(new(T))
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (r *SQLRepository[T, PK, FK]) write(ctx context.Context, op string, opts []WriteOption, fn func(tx *gorm.DB) error) error {
	cfg := writeConfig{transaction: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := r.db.WithContext(ctx)
	var err error
	if cfg.transaction && !inTransaction(db) {
		err = db.Transaction(fn, &sql.TxOptions{Isolation: r.isolation})
	} else {
		err = fn(db)
	}
	if err != nil {
		r.logger.Error("unable to "+op+" row",
			zap.String("table", r.tableName),
			zap.Error(err))
		return &PersistenceError{Op: op, Table: r.tableName, Err: err}
	}
	return nil
}

func (r *SQLRepository[T, PK, FK]) byPrimaryKey(id PK) (Scope, error) {
	sch, err := parseSchema[T](r.db)
	if err != nil {
		return nil, err
	}
	if sch.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("%s has no primary key", r.tableName)
	}
	column := sch.PrioritizedPrimaryField.DBName
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: column},
			Value:  id,
		})
	}, nil
}

func (r *SQLRepository[T, PK, FK]) primaryKeyOf(db *gorm.DB, entity *T) (PK, error) {
	var id PK
	sch, err := parseSchema[T](db)
	if err != nil {
		return id, err
	}
	if sch.PrioritizedPrimaryField == nil {
		return id, fmt.Errorf("%s has no primary key", r.tableName)
	}
	value, _ := sch.PrioritizedPrimaryField.ValueOf(db.Statement.Context, reflect.Indirect(reflect.ValueOf(entity)))
	if key, ok := value.(PK); ok {
		return key, nil
	}
	return ParseKey[PK](keyString(value))
}

func inTransaction(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

// IsNotFound reports whether err means that a lookup matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrMapping)
}
