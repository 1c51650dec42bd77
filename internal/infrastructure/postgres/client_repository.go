package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/internal/domain/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo acceso de lectura a receptores. Pasar pool o tx (Querier).
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador.
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

// GetByID devuelve el cliente o nil si no existe.
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	client := &entity.Client{}
	var dui, nit, nrc, phone, email, direccion, dep, mun, act, actDesc, company *string
	err := r.q.QueryRow(ctx, `
		SELECT id, full_name, company_name, client_type, dui, nit, nrc, phone, email,
		       direccion, department_code, municipality_code, activity_code, activity_description
		FROM clients
		WHERE id = $1`, id).Scan(
		&client.ID, &client.FullName, &company, &client.ClientType,
		&dui, &nit, &nrc, &phone, &email,
		&direccion, &dep, &mun, &act, &actDesc,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select client: %w", err)
	}
	client.CompanyName = orEmpty(company)
	client.DUI = orEmpty(dui)
	client.NIT = orEmpty(nit)
	client.NRC = orEmpty(nrc)
	client.Phone = orEmpty(phone)
	client.Email = orEmpty(email)
	client.Direccion = orEmpty(direccion)
	client.DepartmentCode = orEmpty(dep)
	client.MunicipalityCode = orEmpty(mun)
	client.ActivityCode = orEmpty(act)
	client.ActivityDescription = orEmpty(actDesc)
	return client, nil
}
