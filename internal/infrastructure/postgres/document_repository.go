package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, kind, emitter_id, emission_mode, establishment, expedition_point, number,
	receiver, issued_at, lines, currency, exchange_rate, transaction_type, payment, totals,
	reference_cdc, reference_reason, cdc, security_code, status, attempts,
	last_error, last_error_kind, signed_xml, last_response, response_code, batch_id,
	submitted_at, accepted_at, created_at, updated_at`

// Create persiste el documento completo. Las líneas, el receptor y los totales van en JSONB.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	receiver, lines, payment, totals, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}
	var refCDC, refReason *string
	if doc.Reference != nil {
		refCDC, refReason = nullIfEmpty(doc.Reference.CDC), nullIfEmpty(doc.Reference.Reason)
	}

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`
	_, err = r.q.Exec(ctx, query,
		doc.ID, doc.Kind, doc.EmitterID, doc.EmissionMode, doc.Establishment, doc.ExpeditionPoint, doc.Number,
		receiver, doc.IssuedAt, lines, doc.Currency, doc.ExchangeRate, doc.TransactionType, payment, totals,
		refCDC, refReason, nullIfEmpty(doc.CDC), nullIfEmpty(doc.SecurityCode), doc.Status, doc.Attempts,
		nullIfEmpty(doc.LastError), nullIfEmpty(doc.LastErrorKind), nullIfEmpty(doc.SignedXML),
		nullIfEmpty(doc.LastResponse), nullIfEmpty(doc.ResponseCode), nullIfEmpty(doc.BatchID),
		doc.SubmittedAt, doc.AcceptedAt, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número o CDC ya registrado: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Update persiste los campos del pipeline y de identidad (un reenvío puede regenerar el CDC).
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	receiver, lines, payment, totals, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}
	query := `
		UPDATE documents
		SET receiver        = $2,
		    lines           = $3,
		    payment         = $4,
		    totals          = $5,
		    cdc             = $6,
		    security_code   = $7,
		    status          = $8,
		    attempts        = $9,
		    last_error      = $10,
		    last_error_kind = $11,
		    signed_xml      = $12,
		    last_response   = $13,
		    response_code   = $14,
		    batch_id        = $15,
		    submitted_at    = $16,
		    accepted_at     = $17,
		    updated_at      = $18
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		doc.ID, receiver, lines, payment, totals,
		nullIfEmpty(doc.CDC), nullIfEmpty(doc.SecurityCode), doc.Status, doc.Attempts,
		nullIfEmpty(doc.LastError), nullIfEmpty(doc.LastErrorKind), nullIfEmpty(doc.SignedXML),
		nullIfEmpty(doc.LastResponse), nullIfEmpty(doc.ResponseCode), nullIfEmpty(doc.BatchID),
		doc.SubmittedAt, doc.AcceptedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: CDC ya registrado: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: documento %s", domain.ErrNotFound, doc.ID)
	}
	return nil
}

// GetByID obtiene un documento por ID. Devuelve nil, nil si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

// GetByCDC obtiene un documento por CDC. Devuelve nil, nil si no existe.
func (r *DocumentRepo) GetByCDC(ctx context.Context, cdc string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE cdc = $1`, cdc)
}

// LockByID obtiene el documento y bloquea la fila (SELECT FOR UPDATE).
func (r *DocumentRepo) LockByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

// ListDispatchable documentos listos para transmitir, el más antiguo primero.
// Las notas de crédito solo se incluyen cuando el documento referenciado está aprobado.
func (r *DocumentRepo) ListDispatchable(ctx context.Context, maxAttempts, limit int) ([]*entity.FiscalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents d
		WHERE d.emission_mode = 'electronic'
		  AND d.attempts < $1
		  AND (d.status = 'PENDING'
		       OR (d.status = 'SUBMITTED' AND d.last_error_kind = 'connectivity' AND d.batch_id IS NULL))
		  AND (d.kind <> 'credit_note'
		       OR EXISTS (SELECT 1 FROM documents ref WHERE ref.cdc = d.reference_cdc AND ref.status = 'ACCEPTED'))
		ORDER BY d.issued_at, d.created_at
		LIMIT $2`
	return r.list(ctx, query, maxAttempts, limit)
}

// ListAwaitingResult documentos con lote recibido cuyo resultado aún no se conoce.
// Los que agotaron los intentos quedan estacionados con su último error.
func (r *DocumentRepo) ListAwaitingResult(ctx context.Context, maxAttempts, limit int) ([]*entity.FiscalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = 'SUBMITTED' AND batch_id IS NOT NULL AND attempts < $1
		ORDER BY submitted_at NULLS FIRST, issued_at
		LIMIT $2`
	return r.list(ctx, query, maxAttempts, limit)
}

// NextNumber incrementa la secuencia por emisor, tipo, establecimiento y punto de expedición.
func (r *DocumentRepo) NextNumber(ctx context.Context, emitterID, establishment, expeditionPoint string, kind entity.DocumentKind) (int64, error) {
	query := `
		INSERT INTO document_sequences (emitter_id, kind, establishment, expedition_point, last_number)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (emitter_id, kind, establishment, expedition_point)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`
	var n int64
	if err := r.q.QueryRow(ctx, query, emitterID, string(kind), establishment, expeditionPoint).Scan(&n); err != nil {
		return 0, fmt.Errorf("next number: %w", err)
	}
	if n > 9999999 {
		return 0, fmt.Errorf("%w: numeración agotada para %s-%s", sifen.ErrInvalidIdentityFields, establishment, expeditionPoint)
	}
	return n, nil
}

// AppendLog agrega una entrada a la bitácora de transmisión.
func (r *DocumentRepo) AppendLog(ctx context.Context, l *entity.TransmissionLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO transmission_logs (id, document_id, operation, from_status, to_status, request, response,
		                               response_code, message, error_kind, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.DocumentID, l.Operation, nullIfEmpty(string(l.FromStatus)), nullIfEmpty(string(l.ToStatus)),
		nullIfEmpty(l.Request), nullIfEmpty(l.Response), nullIfEmpty(l.ResponseCode), nullIfEmpty(l.Message),
		nullIfEmpty(l.ErrorKind), nullIfEmpty(l.Fingerprint), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transmission log: %w", err)
	}
	return nil
}

// ListLogs bitácora del documento en orden cronológico.
func (r *DocumentRepo) ListLogs(ctx context.Context, documentID string) ([]*entity.TransmissionLog, error) {
	query := `
		SELECT id, document_id, operation, COALESCE(from_status, ''), COALESCE(to_status, ''),
		       COALESCE(request, ''), COALESCE(response, ''), COALESCE(response_code, ''),
		       COALESCE(message, ''), COALESCE(error_kind, ''), COALESCE(fingerprint, ''), created_at
		FROM transmission_logs WHERE document_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list transmission logs: %w", err)
	}
	defer rows.Close()

	var out []*entity.TransmissionLog
	for rows.Next() {
		var l entity.TransmissionLog
		var from, to string
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Operation, &from, &to, &l.Request, &l.Response,
			&l.ResponseCode, &l.Message, &l.ErrorKind, &l.Fingerprint, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transmission log: %w", err)
		}
		l.FromStatus, l.ToStatus = entity.DocumentStatus(from), entity.DocumentStatus(to)
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ── helpers ──

func (r *DocumentRepo) getOne(ctx context.Context, query string, args ...any) (*entity.FiscalDocument, error) {
	doc, err := scanDocument(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepo) list(ctx context.Context, query string, args ...any) ([]*entity.FiscalDocument, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var d entity.FiscalDocument
	var receiver, lines, payment, totals []byte
	var refCDC, refReason, cdc, secCode, lastErr, lastKind, signed, lastResp, code, batch *string
	err := row.Scan(
		&d.ID, &d.Kind, &d.EmitterID, &d.EmissionMode, &d.Establishment, &d.ExpeditionPoint, &d.Number,
		&receiver, &d.IssuedAt, &lines, &d.Currency, &d.ExchangeRate, &d.TransactionType, &payment, &totals,
		&refCDC, &refReason, &cdc, &secCode, &d.Status, &d.Attempts,
		&lastErr, &lastKind, &signed, &lastResp, &code, &batch,
		&d.SubmittedAt, &d.AcceptedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalDocumentJSON(&d, receiver, lines, payment, totals); err != nil {
		return nil, err
	}
	if refCDC != nil {
		d.Reference = &entity.CreditNoteReference{CDC: *refCDC, Reason: deref(refReason)}
	}
	d.CDC, d.SecurityCode = deref(cdc), deref(secCode)
	d.LastError, d.LastErrorKind = deref(lastErr), deref(lastKind)
	d.SignedXML, d.LastResponse = deref(signed), deref(lastResp)
	d.ResponseCode, d.BatchID = deref(code), deref(batch)
	return &d, nil
}

func marshalDocumentJSON(doc *entity.FiscalDocument) (receiver, lines, payment, totals []byte, err error) {
	if receiver, err = json.Marshal(doc.Receiver); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("serializar receptor: %w", err)
	}
	if lines, err = json.Marshal(doc.Lines); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("serializar líneas: %w", err)
	}
	if payment, err = json.Marshal(doc.Payment); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("serializar condición: %w", err)
	}
	if totals, err = json.Marshal(doc.Totals); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("serializar totales: %w", err)
	}
	return receiver, lines, payment, totals, nil
}

func unmarshalDocumentJSON(d *entity.FiscalDocument, receiver, lines, payment, totals []byte) error {
	pairs := []struct {
		name string
		data []byte
		dst  any
	}{
		{"receptor", receiver, &d.Receiver},
		{"líneas", lines, &d.Lines},
		{"condición", payment, &d.Payment},
		{"totales", totals, &d.Totals},
	}
	for _, p := range pairs {
		if len(p.data) == 0 {
			continue
		}
		if err := json.Unmarshal(p.data, p.dst); err != nil {
			return fmt.Errorf("leer %s: %w", p.name, err)
		}
	}
	return nil
}
