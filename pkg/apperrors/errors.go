package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrInjectionDetected = errors.New("potential SQL injection detected")
	ErrNoDatasource      = errors.New("no datasource configured")
	ErrUnsupportedType   = errors.New("unsupported datasource type")
)
