package models

// Institute representa un instituto tal como lo devuelve el backend
type Institute struct {
	ID      int    `json:"id" validate:"gt=0"`
	CUIT    string `json:"cuit"`
	Domain  string `json:"domain"`
	Enabled bool   `json:"enabled"`
	Mail    string `json:"mail" validate:"required,email"`
	Phone   string `json:"phone"`
}
