package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidState      = errors.New("invalid state")
	ErrNotFound          = errors.New("not found")
	ErrTransaction       = errors.New("transaction failed")
	ErrConsistency       = errors.New("consistency violation")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOddsChanged       = errors.New("odds changed")

	// ErrAlreadyResolved sinaliza que a aposta saiu de pending entre a listagem e o lock
	ErrAlreadyResolved = errors.New("bet already resolved")
)

// StateError: operação num estado de ciclo de vida errado. Nada é alterado.
type StateError struct {
	Entity  string
	ID      string
	Current string
	Want    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s is %s, want %s", e.Entity, e.ID, e.Current, e.Want)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransactionError envolve a falha do store no meio de uma escrita; a unidade já sofreu rollback
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }

type ConsistencyError struct {
	BetID  uuid.UUID
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation on bet %s: %s", e.BetID, e.Detail)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// ParseID valida o formato de um id recebido de fora
func ParseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %s id %q", ErrInvalidArgument, kind, raw)
	}
	return id, nil
}
