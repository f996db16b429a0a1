package domain

import (
	"errors"
	"fmt"
)

// Виды ошибок. Проверять через errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	ErrAuth       = errors.New("authentication error")
	ErrStore      = errors.New("store error")
)

// Error - классифицированная ошибка, сообщение отдается клиенту как есть.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: ErrNotFound, Message: msg} }
func Duplicate(msg string) error  { return &Error{Kind: ErrDuplicate, Message: msg} }
func Auth(msg string) error       { return &Error{Kind: ErrAuth, Message: msg} }

// StoreFailure оборачивает ошибку драйвера БД или кеша.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: ErrStore, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}
