package crudboot

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWork groups several repository calls in one transaction. Bind
// repositories to it with WithTx(uow.DB()) after Begin.
type UnitOfWork struct {
	mu        sync.Mutex
	db        *gorm.DB
	tx        *gorm.DB
	logger    *zap.Logger
	isolation sql.IsolationLevel
}

func NewUnitOfWork(db *gorm.DB, opts ...RepositoryOption) *UnitOfWork {
	cfg := repositoryConfig{
		logger:    zap.NewNop(),
		isolation: sql.LevelReadUncommitted,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &UnitOfWork{
		db:        db,
		logger:    cfg.logger,
		isolation: cfg.isolation,
	}
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx != nil {
		return ErrTransactionInProgress
	}
	tx := u.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: u.isolation})
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

// DB returns the open transaction, or the plain handle when none is open.
func (u *UnitOfWork) DB() *gorm.DB {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWork) InTransaction() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx != nil
}

func (u *UnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx == nil {
		return ErrNoTransaction
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx == nil {
		return ErrNoTransaction
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Run executes fn inside a new transaction, committing when fn succeeds and
// rolling back when it fails or panics.
func (u *UnitOfWork) Run(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	if err := u.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			u.rollback()
			panic(p)
		}
	}()

	if err = fn(u.DB()); err != nil {
		u.rollback()
		return err
	}
	return u.Commit()
}

// Close rolls back a transaction left open.
func (u *UnitOfWork) Close() error {
	if !u.InTransaction() {
		return nil
	}
	u.logger.Warn("rolling back unfinished unit of work")
	return u.Rollback()
}

func (u *UnitOfWork) rollback() {
	if err := u.Rollback(); err != nil {
		u.logger.Error("rollback failed", zap.Error(err))
	}
}
