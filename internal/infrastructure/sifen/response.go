package sifen

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// CodeKind clasificación cerrada de dCodRes.
type CodeKind int

const (
	CodeUnknown CodeKind = iota
	CodeBatchReceived
	CodeAccepted
	CodeBatchProcessed
	CodeBatchInProcess
	CodeEventRegistered
	CodeRUCFound
	CodeMalformed
	CodeBatchNotQueued
	CodeBusinessRejection
)

var codeKindNames = map[CodeKind]string{
	CodeUnknown:           "unknown",
	CodeBatchReceived:     "batch_received",
	CodeAccepted:          "accepted",
	CodeBatchProcessed:    "batch_processed",
	CodeBatchInProcess:    "batch_in_process",
	CodeEventRegistered:   "event_registered",
	CodeRUCFound:          "ruc_found",
	CodeMalformed:         "malformed",
	CodeBatchNotQueued:    "batch_not_queued",
	CodeBusinessRejection: "business_rejection",
}

func (k CodeKind) String() string {
	if s, ok := codeKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ResponseCode código de respuesta de SIFEN con su clasificación.
type ResponseCode struct {
	Kind  CodeKind
	Value string
}

// ParseResponseCode clasifica un dCodRes. Códigos que no son de 4 dígitos quedan como CodeUnknown.
func ParseResponseCode(s string) ResponseCode {
	s = strings.TrimSpace(s)
	rc := ResponseCode{Value: s}
	switch s {
	case "0300":
		rc.Kind = CodeBatchReceived
	case "0260", "0302", "0422":
		rc.Kind = CodeAccepted
	case "0362":
		rc.Kind = CodeBatchProcessed
	case "0361":
		rc.Kind = CodeBatchInProcess
	case "0600":
		rc.Kind = CodeEventRegistered
	case "0502":
		rc.Kind = CodeRUCFound
	case "0160":
		rc.Kind = CodeMalformed
	case "0301":
		rc.Kind = CodeBatchNotQueued
	default:
		if len(s) == 4 && strings.Trim(s, "0123456789") == "" {
			rc.Kind = CodeBusinessRejection
		}
	}
	return rc
}

func (c ResponseCode) String() string { return c.Value }

// IsSuccess códigos que no representan un rechazo.
func (c ResponseCode) IsSuccess() bool {
	switch c.Kind {
	case CodeBatchReceived, CodeAccepted, CodeBatchProcessed, CodeBatchInProcess, CodeEventRegistered, CodeRUCFound:
		return true
	}
	return false
}

// DocumentResult resultado por documento dentro de un lote (gResProcLote).
type DocumentResult struct {
	CDC     string
	Status  string // dEstRes: Aprobado, Aprobado con observación, Rechazado
	Code    ResponseCode
	Message string
}

// Approved dEstRes "Aprobado" o "Aprobado con observación".
func (d DocumentResult) Approved() bool {
	return strings.HasPrefix(strings.ToLower(d.Status), "aprobado")
}

// Rejected dEstRes "Rechazado".
func (d DocumentResult) Rejected() bool {
	return strings.HasPrefix(strings.ToLower(d.Status), "rechazado")
}

// RUCInfo datos de xContRUC de consulta-ruc.
type RUCInfo struct {
	RUC              string
	Name             string
	Status           string
	ElectronicIssuer bool
}

// Result respuesta de una operación SIFEN.
type Result struct {
	Code      ResponseCode
	Message   string
	BatchID   string // dProtConsLote
	CDC       string
	Status    string // dEstRes del documento consultado
	Protocol  string // dProtAut
	Documents []DocumentResult
	RUC       *RUCInfo
	Raw       []byte
	Request   []byte
}

// ParseResponse interpreta el sobre SOAP de respuesta. Los prefijos de espacio de nombres se ignoran.
func ParseResponse(op string, status int, raw []byte) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil || doc.Root() == nil {
		return nil, &ProtocolError{Op: op, Status: status, Body: truncateBody(raw), Err: err}
	}
	root := doc.Root()

	if fault := findLocal(root, "Fault"); fault != nil {
		msg := firstText(fault, "Text", "faultstring", "Reason")
		return nil, &ProtocolError{Op: op, Status: status, Body: truncateBody(raw), Err: fmt.Errorf("SOAP Fault: %s", msg)}
	}

	res := &Result{Raw: raw}
	for _, g := range findAllLocal(root, "gResProcLote") {
		res.Documents = append(res.Documents, parseDocumentResult(g))
	}

	code := firstText(root, "dCodResLot", "dCodRes")
	if code == "" && len(res.Documents) == 0 {
		return nil, &ProtocolError{Op: op, Status: status, Body: truncateBody(raw), Err: fmt.Errorf("respuesta sin dCodRes")}
	}
	res.Code = ParseResponseCode(code)
	res.Message = firstText(root, "dMsgResLot", "dMsgRes")
	res.BatchID = firstText(root, "dProtConsLote")
	res.Status = firstText(root, "dEstRes")
	res.Protocol = firstText(root, "dProtAut")
	res.CDC = firstText(root, "Id", "id", "dCDC")

	if ruc := findLocal(root, "xContRUC"); ruc != nil {
		res.RUC = &RUCInfo{
			RUC:              firstText(ruc, "dRUCCons", "dRUC"),
			Name:             firstText(ruc, "dRazCons", "dRazSoc"),
			Status:           firstText(ruc, "dDesEstCons", "dDesEstCont"),
			ElectronicIssuer: strings.EqualFold(firstText(ruc, "dRUCFactElec"), "S"),
		}
	}
	return res, nil
}

func parseDocumentResult(g *etree.Element) DocumentResult {
	d := DocumentResult{
		CDC:    firstText(g, "id", "Id"),
		Status: firstText(g, "dEstRes"),
	}
	if proc := findLocal(g, "gResProc"); proc != nil {
		d.Code = ParseResponseCode(firstText(proc, "dCodRes"))
		d.Message = firstText(proc, "dMsgRes")
	}
	return d
}

// findLocal primer descendiente (o el propio elemento) con el nombre local dado.
func findLocal(el *etree.Element, local string) *etree.Element {
	if el.Tag == local {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findLocal(c, local); found != nil {
			return found
		}
	}
	return nil
}

func findAllLocal(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			out = append(out, c)
			continue
		}
		out = append(out, findAllLocal(c, local)...)
	}
	return out
}

// firstText texto del primer elemento encontrado entre los nombres dados, en orden.
func firstText(el *etree.Element, names ...string) string {
	for _, n := range names {
		if found := findLocal(el, n); found != nil {
			if t := strings.TrimSpace(found.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

func truncateBody(b []byte) string {
	const limit = 2048
	if len(b) > limit {
		return string(b[:limit]) + "…"
	}
	return string(b)
}
