package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
)

var _ repository.EmitterRepository = (*EmitterRepo)(nil)

// EmitterRepo implementación de EmitterRepository.
type EmitterRepo struct {
	q Querier
}

// NewEmitterRepository construye el adaptador.
func NewEmitterRepository(q Querier) *EmitterRepo {
	return &EmitterRepo{q: q}
}

// GetByID obtiene el emisor con sus nombres geográficos y actividades. nil, nil si no existe.
func (r *EmitterRepo) GetByID(ctx context.Context, id string) (*entity.Emitter, error) {
	query := `
		SELECT e.id, e.ruc, e.dv, e.name, COALESCE(e.trade_name, ''), e.address, COALESCE(e.house_number, ''),
		       e.taxpayer_type, e.department_code, COALESCE(c.department_name, ''), e.district_code,
		       COALESCE(c.district_name, ''), e.city_code, COALESCE(c.city_name, ''),
		       COALESCE(e.phone, ''), COALESCE(e.email, ''),
		       e.timbrado_number, COALESCE(e.timbrado_serie, ''), e.timbrado_start, e.created_at, e.updated_at
		FROM emitters e
		LEFT JOIN geo_cities c ON c.city_code = e.city_code
		WHERE e.id = $1`
	var e entity.Emitter
	err := r.q.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.RUC, &e.DV, &e.Name, &e.TradeName, &e.Address, &e.HouseNumber,
		&e.TaxpayerType, &e.DepartmentCode, &e.DepartmentName, &e.DistrictCode,
		&e.DistrictName, &e.CityCode, &e.CityName, &e.Phone, &e.Email,
		&e.Timbrado.Number, &e.Timbrado.Serie, &e.Timbrado.StartDate, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emitter: %w", err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT code, description FROM emitter_activities WHERE emitter_id = $1 ORDER BY position, code`, id)
	if err != nil {
		return nil, fmt.Errorf("list emitter activities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a entity.EconomicActivity
		if err := rows.Scan(&a.Code, &a.Description); err != nil {
			return nil, fmt.Errorf("scan emitter activity: %w", err)
		}
		e.Activities = append(e.Activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}
