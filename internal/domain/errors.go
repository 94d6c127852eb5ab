package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                = errors.New("recurso no encontrado")
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrInsufficientStock       = errors.New("stock insuficiente")
	ErrQuantityOverflow        = errors.New("cantidad fuera de rango")
	ErrUnsupportedMovementType = errors.New("tipo de movimiento no soportado")
	ErrUnauthorized            = errors.New("no autorizado")
)
