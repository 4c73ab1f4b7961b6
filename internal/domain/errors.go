package domain

import (
	"errors"

	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	ErrInvalidIdentityFields    = sifen.ErrInvalidIdentityFields
	ErrMissingMasterData        = errors.New("faltan datos maestros obligatorios")
	ErrInvalidReference         = errors.New("documento referenciado inexistente o no aprobado")
	ErrSigningKeyUnavailable    = errors.New("llave privada de firma no disponible")
	ErrReferenceElementNotFound = errors.New("elemento referenciado por la firma no encontrado")
	ErrInvalidTransition        = errors.New("transición de estado no permitida")
	ErrCancellationWindow       = errors.New("fuera del plazo de 48 horas para cancelar")
	ErrInvalidReason            = errors.New("el motivo debe tener entre 5 y 500 caracteres")
)

// ErrorKind clasificación persistida junto al documento.
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindIdentity     ErrorKind = "identity"
	KindMasterData   ErrorKind = "master_data"
	KindReference    ErrorKind = "reference"
	KindSigning      ErrorKind = "signing"
	KindConnectivity ErrorKind = "connectivity"
	KindProtocol     ErrorKind = "protocol"
	KindRejected     ErrorKind = "rejected"
)

// KindOf clasifica errores de dominio. Los errores de transporte se clasifican en la capa de aplicación.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidIdentityFields):
		return KindIdentity
	case errors.Is(err, ErrMissingMasterData):
		return KindMasterData
	case errors.Is(err, ErrInvalidReference):
		return KindReference
	case errors.Is(err, ErrSigningKeyUnavailable), errors.Is(err, ErrReferenceElementNotFound):
		return KindSigning
	default:
		return KindProtocol
	}
}
