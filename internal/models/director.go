package models

// Director representa al director de un instituto. Es el usuario del portal:
// su DNI es la identidad de la sesión.
type Director struct {
	DNI       string    `json:"dni" validate:"min=8"`
	Institute Institute `json:"institute"`
	Name      string    `json:"name" validate:"min=1"`
	Lastname  string    `json:"lastname" validate:"min=1"`
	Phone     string    `json:"phone"`
	Mail      string    `json:"mail" validate:"required,email"`
	Enabled   bool      `json:"enabled"`
}

// Technician representa al técnico embebido en una solicitud. El backend lo
// devuelve parcialmente desnormalizado, por eso solo el mail y el instituto
// tienen restricciones.
type Technician struct {
	DNI       string    `json:"dni"`
	Institute Institute `json:"institute"`
	Name      string    `json:"name"`
	Lastname  string    `json:"lastname"`
	Phone     string    `json:"phone"`
	Mail      string    `json:"mail" validate:"required,email"`
	Enabled   bool      `json:"enabled"`
}

// UpdateDirectorRequest representa los datos de perfil que el director puede modificar
type UpdateDirectorRequest struct {
	Name     string  `json:"name" binding:"required,max=120"`
	Lastname string  `json:"lastname" binding:"required,max=120"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,max=40"`
	Mail     string  `json:"mail" binding:"required,email"`
}

// Apply vuelca los cambios editables sobre una copia del director
func (r *UpdateDirectorRequest) Apply(current Director) Director {
	updated := current
	updated.Name = r.Name
	updated.Lastname = r.Lastname
	updated.Mail = r.Mail
	if r.Phone != nil {
		updated.Phone = *r.Phone
	}
	return updated
}
