package services

import (
	"context"

	"github.com/hypernova-labs/portal-capacitaciones/internal/models"
	"github.com/hypernova-labs/portal-capacitaciones/internal/schema"
	"github.com/sirupsen/logrus"
)

// DirectorService maneja el perfil del director que inició sesión
type DirectorService struct {
	backend Backend
	logger  *logrus.Logger
}

// NewDirectorService crea una nueva instancia del servicio
func NewDirectorService(backend Backend, logger *logrus.Logger) *DirectorService {
	return &DirectorService{
		backend: backend,
		logger:  logger,
	}
}

// GetDirector obtiene el perfil del director identificado por la sesión
func (s *DirectorService) GetDirector(ctx context.Context, dni string) (*models.Director, error) {
	director, err := lookupDirector(ctx, s.backend, s.logger, dni)
	if err != nil {
		return nil, err
	}
	return director, nil
}

type updateDirectorState struct {
	dni     string
	current *models.Director
	updated models.Director
	result  *models.Director
}

// UpdateDirector actualiza los datos editables del perfil. El DNI siempre es
// el de la sesión.
func (s *DirectorService) UpdateDirector(ctx context.Context, dni string, req *models.UpdateDirectorRequest) (*models.Director, error) {
	state := &updateDirectorState{dni: dni}

	err := runSteps(ctx, state,
		func(ctx context.Context, st *updateDirectorState) error {
			current, err := lookupDirector(ctx, s.backend, s.logger, st.dni)
			if err != nil {
				return err
			}
			st.current = current
			st.updated = req.Apply(*current)
			return schema.Struct("director", st.updated)
		},
		func(ctx context.Context, st *updateDirectorState) error {
			raw, err := s.backend.UpdateDirector(ctx, st.dni, st.updated)
			if err != nil {
				return upstreamFailure(err, models.ErrorCodeBadRequest, "Error al actualizar los datos de perfil")
			}
			if raw == nil {
				st.result = &st.updated
				return nil
			}
			director, err := schema.Decode[models.Director]("director", raw)
			if err != nil {
				return invalidPayload("Respuesta inválida del backend al actualizar el perfil", err)
			}
			st.result = &director
			return nil
		},
	)
	if err != nil {
		if verr := asValidation(err); verr != nil {
			return nil, verr
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"dni":  dni,
		"cuit": state.result.Institute.CUIT,
	}).Info("Director profile updated")

	return state.result, nil
}

// asValidation convierte errores de schema sobre datos del formulario en INVALID_REQUEST
func asValidation(err error) *models.APIError {
	verr, ok := err.(*schema.ValidationError)
	if !ok {
		return nil
	}
	details := make([]models.ErrorDetail, 0, len(verr.Violations))
	for _, v := range verr.Violations {
		details = append(details, models.ErrorDetail{Field: v.Field, Issue: v.Message})
	}
	return models.NewValidationError("Datos de perfil inválidos", details)
}
