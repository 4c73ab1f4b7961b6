package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sifen-dte/internal/application/dto"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/logger"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// QueryUseCase consultas en línea contra SIFEN: estado de un DE por CDC y padrón de RUC.
type QueryUseCase struct {
	docs     repository.DocumentRepository
	tx       TxRunner
	pipeline *Pipeline
	certs    CertificateSource
	clock    Clock
	log      zerolog.Logger
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(
	docs repository.DocumentRepository,
	tx TxRunner,
	pipeline *Pipeline,
	certs CertificateSource,
	clock Clock,
	log zerolog.Logger,
) *QueryUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &QueryUseCase{
		docs: docs, tx: tx, pipeline: pipeline, certs: certs, clock: clock,
		log: log.With().Str("component", "query").Logger(),
	}
}

// Consult consulta el DE por CDC. Un documento Submitted que SIFEN ya aprobó pasa a Accepted;
// cualquier otro estado solo se informa.
func (uc *QueryUseCase) Consult(ctx context.Context, id string) (*dto.ConsultResponse, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, id)
	}
	if doc.CDC == "" {
		return nil, fmt.Errorf("%w: el documento %s no tiene CDC", domain.ErrConflict, id)
	}
	cert, err := uc.certs.Certificate()
	if err != nil {
		return nil, err
	}

	out := &dto.ConsultResponse{DocumentID: doc.ID, CDC: doc.CDC}
	res, err := uc.pipeline.Consult(ctx, cert, doc.CDC)
	if err != nil {
		var rejected *sifenxml.AuthorityRejected
		if !errors.As(err, &rejected) {
			return nil, err
		}
		out.ResponseCode, out.Message, out.Status = rejected.Code.Value, rejected.Message, string(doc.Status)
		return out, nil
	}
	out.ResponseCode, out.Message, out.Protocol = res.Code.Value, res.Message, res.Protocol

	from := doc.Status
	if from == entity.StatusSubmitted {
		applyPollResult(doc, res, uc.clock.Now())
	}
	out.Status = string(doc.Status)
	if doc.Status == from {
		return out, nil
	}

	l := newLog(doc, OpConsult, from, uc.clock.Now())
	fillLog(l, res)
	if err := persistGuarded(ctx, uc.tx, doc, from, l); err != nil {
		return nil, err
	}
	out.Updated = true
	log := logger.Document(uc.log, doc.ID, doc.CDC, res.Code.Value)
	log.Info().Str("status", string(doc.Status)).Msg("estado actualizado por consulta")
	return out, nil
}

// CheckRUC consulta el padrón. Acepta el RUC con o sin DV; con guion el DV se valida localmente.
func (uc *QueryUseCase) CheckRUC(ctx context.Context, ruc string) (*dto.RUCResponse, error) {
	base, dv := sifen.OnlyDigits(ruc), ""
	if strings.Contains(ruc, "-") {
		base, dv = sifen.SplitRUC(ruc)
	}
	if base == "" {
		return nil, fmt.Errorf("%w: RUC vacío", domain.ErrInvalidInput)
	}
	if dv != "" {
		if err := sifen.ValidateRUC(base, dv); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	cert, err := uc.certs.Certificate()
	if err != nil {
		return nil, err
	}

	out := &dto.RUCResponse{RUC: base}
	res, err := uc.pipeline.CheckRUC(ctx, cert, base)
	if err != nil {
		var rejected *sifenxml.AuthorityRejected
		if !errors.As(err, &rejected) {
			return nil, err
		}
		out.ResponseCode, out.Message = rejected.Code.Value, rejected.Message
		return out, nil
	}
	out.ResponseCode, out.Message = res.Code.Value, res.Message
	if res.RUC != nil {
		out.Found = true
		out.Name = res.RUC.Name
		out.Status = res.RUC.Status
		out.ElectronicIssuer = res.RUC.ElectronicIssuer
	}
	return out, nil
}
