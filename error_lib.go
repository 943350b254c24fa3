package crudboot

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrMapping                 = errors.New("mapping failed")
	ErrPersistence             = errors.New("persistence failed")
	ErrForeignKeyFilterMissing = errors.New("foreign key supplied but no foreign key filter is configured")
	ErrUnknownSortField        = errors.New("unknown sort field")
	ErrNotUnique               = errors.New("more than one row matches the primary key")
	ErrMissingConnectionString = errors.New("connection string is missing")
	ErrUnsupportedProvider     = errors.New("unsupported database provider")
	ErrNoTransaction           = errors.New("no transaction in progress")
	ErrTransactionInProgress   = errors.New("transaction already in progress")
	ErrMissingSecret           = errors.New("token secret is not configured")
)

// MappingError is returned when a record cannot be turned into a domain
// object, most commonly because no record was found.
type MappingError struct {
	Type   string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map %s: %s", e.Type, e.Reason)
}

func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// PersistenceError wraps a failed insert, update or delete.
type PersistenceError struct {
	Op    string
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("unable to %s row in %s: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

type ApiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e ApiError) New(messages ...string) ApiError {
	args := make([]any, len(messages))
	for i, msg := range messages {
		args[i] = msg
	}

	message := fmt.Sprintf(e.Message, args...)
	return ApiError{
		ErrorCode: e.ErrorCode,
		Message:   message,
	}
}

func (e ApiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

var (
	ErrNotFound      = ApiError{ErrorCode: "NOT_FOUND", Message: "%s"}
	ErrBadRequest    = ApiError{ErrorCode: "BAD_REQUEST", Message: "%s"}
	ErrUnauthorized  = ApiError{ErrorCode: "UNAUTHORIZED", Message: "%s"}
	ErrConflict      = ApiError{ErrorCode: "CONFLICT", Message: "%s"}
	ErrInternalError = ApiError{ErrorCode: "INTERNAL_SERVER_ERROR", Message: "An unknown error occurred"}
)

// SendError writes err as an ApiError body. Mapping errors become 404,
// ApiErrors 400 (404 for NOT_FOUND, 401 for UNAUTHORIZED, 409 for CONFLICT),
// duplicated unique keys 409 and everything else 500.
func SendError(c *gin.Context, err error) {
	var mappingErr *MappingError
	if errors.As(err, &mappingErr) {
		c.JSON(http.StatusNotFound, ErrNotFound.New(mappingErr.Error()))
		return
	}
	var customErr ApiError
	if errors.As(err, &customErr) {
		status := http.StatusBadRequest
		switch customErr.ErrorCode {
		case ErrNotFound.ErrorCode:
			status = http.StatusNotFound
		case ErrUnauthorized.ErrorCode:
			status = http.StatusUnauthorized
		case ErrConflict.ErrorCode:
			status = http.StatusConflict
		}
		c.JSON(status, customErr)
		return
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		c.JSON(http.StatusConflict, ErrConflict.New(err.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, ErrInternalError)
}
