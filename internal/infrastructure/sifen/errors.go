package sifen

import (
	"fmt"
)

// ConnectivityError fallo de transporte: timeout, DNS, conexión rechazada, handshake TLS o contexto vencido.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("sifen %s: sin conectividad: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ProtocolError respuesta que no se pudo interpretar: status no 2xx sin sobre, XML inválido,
// sin dCodRes o SOAP Fault.
type ProtocolError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sifen %s: respuesta inválida (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("sifen %s: respuesta inválida (HTTP %d)", e.Op, e.Status)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthorityRejected rechazo bien formado de SIFEN.
type AuthorityRejected struct {
	Op      string
	Code    ResponseCode
	Message string
	Raw     []byte
}

func (e *AuthorityRejected) Error() string {
	return fmt.Sprintf("sifen %s: rechazado [%s] %s", e.Op, e.Code.Value, e.Message)
}
