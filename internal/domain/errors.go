package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Errores del subsistema DTE.
	ErrSinItems              = errors.New("la factura no tiene líneas")
	ErrSinIdentificadores    = errors.New("la factura no tiene numero de control ni codigo de generacion asignados")
	ErrSinSello              = errors.New("el DTE original no tiene sello recibido de Hacienda")
	ErrEstadoInvalido        = errors.New("estado DTE de la factura no permite la operación")
	ErrTipoDocumentoInvalido = errors.New("tipo de documento desconocido")
)
