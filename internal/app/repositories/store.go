package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxStore binds every reconciliation repository to one transaction.
type TxStore struct {
	*FacultyRepository
	*ProgramRepository
	*AlumniRepository
	*RespondentRepository
	*StatusRepository
	*CounterRepository

	tx pgx.Tx
}

// NewTxStore creates a TxStore over tx
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{
		FacultyRepository:    NewFacultyRepository(tx),
		ProgramRepository:    NewProgramRepository(tx),
		AlumniRepository:     NewAlumniRepository(tx),
		RespondentRepository: NewRespondentRepository(tx),
		StatusRepository:     NewStatusRepository(tx),
		CounterRepository:    NewCounterRepository(tx),
		tx:                   tx,
	}
}

// Savepoint runs fn inside a nested transaction. pgx implements it with
// SAVEPOINT, so a failing fn undoes only its own statements.
func (s *TxStore) Savepoint(ctx context.Context, fn func() error) error {
	sp, err := s.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("failed to roll back savepoint: %w (row error: %v)", rbErr, err)
		}
		return err
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
