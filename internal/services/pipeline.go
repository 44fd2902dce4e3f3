package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypernova-labs/portal-capacitaciones/internal/models"
	"github.com/hypernova-labs/portal-capacitaciones/internal/schema"
	"github.com/hypernova-labs/portal-capacitaciones/internal/upstream"
	"github.com/sirupsen/logrus"
)

// Backend es la API del backend que consumen los servicios
type Backend interface {
	GetDirector(ctx context.Context, dni string) (any, error)
	UpdateDirector(ctx context.Context, dni string, payload any) (any, error)
	ListInstituteSupports(ctx context.Context, cuit string) ([]any, error)
	ListSupportTypes(ctx context.Context) (any, error)
	CreateSupport(ctx context.Context, payload any) (map[string]any, error)
}

// step es un paso de una operación encadenada. Modifica el estado compartido
// de la operación o devuelve el error que la corta.
type step[S any] func(ctx context.Context, state *S) error

// runSteps ejecuta los pasos en orden y se detiene en el primer error
func runSteps[S any](ctx context.Context, state *S, steps ...step[S]) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return models.NewBadRequestError("Operación cancelada", err)
		}
		if err := s(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// requireIdentity corta la operación si no hay identidad resuelta
func requireIdentity(dni string) error {
	if dni == "" {
		return models.NewUnauthorizedError("Sesión requerida")
	}
	return nil
}

// lookupDirector resuelve el director dueño de la sesión. Es el primer paso de
// todas las operaciones que necesitan el CUIT o los datos del instituto.
func lookupDirector(ctx context.Context, backend Backend, logger *logrus.Logger, dni string) (*models.Director, error) {
	if err := requireIdentity(dni); err != nil {
		return nil, err
	}

	raw, err := backend.GetDirector(ctx, dni)
	if errors.Is(err, upstream.ErrInvalidPayload) {
		return nil, models.NewBadRequestError("Respuesta inválida del backend para el director", err)
	}
	var he *upstream.HTTPError
	if errors.As(err, &he) {
		return nil, upstreamFailure(err, models.ErrorCodeNotFound, "Director no encontrado")
	}
	if err != nil {
		logger.WithError(err).WithField("dni", dni).Error("Error fetching director")
		return nil, models.NewBadRequestError("Backend no disponible", err)
	}

	director, err := schema.Decode[models.Director]("director", raw)
	if err != nil {
		return nil, invalidPayload("Respuesta inválida del backend para el director", err)
	}

	if director.DNI != dni {
		return nil, models.NewNotFoundError("Director no encontrado", fmt.Errorf("backend returned dni %q for %q", director.DNI, dni))
	}
	return &director, nil
}

// upstreamFailure traduce un error del cliente del backend al error tipado
func upstreamFailure(err error, code models.ErrorCode, message string) *models.APIError {
	apiErr := models.NewAPIError(code, message, err)
	var he *upstream.HTTPError
	if errors.As(err, &he) {
		apiErr.UpstreamStatus = he.Status
	}
	return apiErr
}

// invalidPayload construye el error de una respuesta que no pasó el schema
func invalidPayload(message string, err error) *models.APIError {
	apiErr := models.NewBadRequestError(message, err)
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			apiErr.Details = append(apiErr.Details, models.ErrorDetail{Field: v.Field, Issue: v.Message})
		}
	}
	return apiErr
}
