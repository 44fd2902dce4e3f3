// Package normalizer repara respuestas del backend antes de validarlas.
//
// El backend no siempre respeta la forma de las entidades: devuelve null donde
// se espera un objeto, el nombre de un tipo en lugar de {id, name}, ids
// ausentes o mails inválidos. Las funciones de este paquete nunca fallan:
// producen siempre un candidato con la forma esperada por el paquete schema y
// reportan cada campo que tuvieron que completar o reemplazar.
package normalizer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hypernova-labs/portal-capacitaciones/internal/models"
	"github.com/hypernova-labs/portal-capacitaciones/internal/schema"
)

// PlaceholderMail reemplaza cualquier mail ausente o inválido
const PlaceholderMail = "user@example.com"

// Candidate es un registro reparado, todavía sin validar
type Candidate = map[string]any

// Repair describe un valor que el normalizador completó o reemplazó
type Repair struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Normalizer no guarda estado entre llamadas; solo lleva el mail de reemplazo
// y el reloj usado cuando falta la fecha.
type Normalizer struct {
	placeholder string
	now         func() time.Time
}

// Option configura un Normalizer
type Option func(*Normalizer)

// WithPlaceholderMail cambia el mail de reemplazo. Un valor inválido se ignora.
func WithPlaceholderMail(mail string) Option {
	return func(n *Normalizer) {
		if schema.IsEmail(mail) {
			n.placeholder = mail
		}
	}
}

// WithClock fija el reloj usado para las fechas ausentes
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// New crea un Normalizer
func New(opts ...Option) *Normalizer {
	n := &Normalizer{placeholder: PlaceholderMail, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Supports normaliza un lote de solicitudes. Los ids ausentes se reemplazan
// por la posición del registro en el lote, empezando en 1.
func (n *Normalizer) Supports(raw []any) ([]Candidate, []Repair) {
	out := make([]Candidate, 0, len(raw))
	var repairs []Repair
	for i, item := range raw {
		c, r := n.support(item, i, fmt.Sprintf("[%d].", i))
		out = append(out, c)
		repairs = append(repairs, r...)
	}
	return out, repairs
}

// Support normaliza una solicitud que ocupa la posición index del lote
func (n *Normalizer) Support(raw any, index int) (Candidate, []Repair) {
	return n.support(raw, index, "")
}

func (n *Normalizer) support(raw any, index int, prefix string) (Candidate, []Repair) {
	t := &tracker{prefix: prefix}
	s, ok := asObject(raw)
	if !ok {
		t.note("", "registro no es un objeto")
		s = map[string]any{}
	}

	out := make(Candidate, len(s)+8)
	for k, v := range s {
		out[k] = v
	}

	// Sin id, un code numérico hace de id
	rawID := s["id"]
	if isAbsent(rawID) {
		rawID = s["code"]
	}
	id, ok := numericID(rawID)
	if !ok {
		id = index + 1
		t.note("id", "id ausente o inválido, se usa la posición en el lote")
	}
	out["id"] = id

	if code, ok := scalarText(s["code"]); ok {
		out["code"] = code
	} else if code, ok := scalarText(s["id"]); ok {
		out["code"] = code
		t.note("code", "code ausente, se usa el id recibido")
	} else {
		out["code"] = strconv.Itoa(id)
		t.note("code", "code ausente, se usa el id resuelto")
	}

	// Una fecha presente pero ilegible pasa tal cual y la rechaza el schema
	switch date := s["date"]; {
	case isAbsent(date) || date == "":
		// TODO: confirmar con el equipo del backend si una solicitud sin fecha
		// es un dato válido; hoy se asume la fecha actual.
		out["date"] = n.now()
		t.note("date", "fecha ausente, se usa la fecha actual")
	default:
		if parsed, ok := parseDate(date); ok {
			out["date"] = parsed
		} else {
			out["date"] = date
		}
	}

	switch d := s["description"].(type) {
	case nil:
		delete(out, "description")
	case string:
		out["description"] = d
	default:
		out["description"] = toString(d)
	}

	instituteRaw := s["institute"]
	out["institute"] = n.institute(instituteRaw, t.at("institute"))
	out["technician"] = n.person(s["technician"], instituteRaw, t.at("technician"))
	out["supportType"] = n.reference(s["supportType"], models.SupportTypeVisit, t.at("supportType"))
	out["supportState"] = n.reference(s["supportState"], models.SupportStateSent, t.at("supportState"))

	return out, t.repairs
}

// Institute normaliza un instituto suelto
func (n *Normalizer) Institute(raw any) (Candidate, []Repair) {
	t := &tracker{}
	return n.institute(raw, t), t.repairs
}

// Person normaliza un director o técnico. Sobre un registro que ya cumple el
// schema de Director no cambia ningún valor.
func (n *Normalizer) Person(raw any) (Candidate, []Repair) {
	t := &tracker{}
	return n.person(raw, nil, t), t.repairs
}

func (n *Normalizer) institute(raw any, t *tracker) Candidate {
	base, ok := asObject(raw)
	if !ok {
		t.note("", "instituto ausente, se completa con valores por defecto")
		base = map[string]any{}
	}

	id, ok := positiveInt(base["id"])
	if !ok {
		id = 1
		if len(base) > 0 {
			t.note("id", "id ausente o inválido, se usa 1")
		}
	}

	return Candidate{
		"id":      id,
		"cuit":    n.text(base, "cuit", t),
		"domain":  toString(base["domain"]),
		"enabled": truthy(base["enabled"]),
		"mail":    n.mail(base["mail"], t.at("mail")),
		"phone":   toString(base["phone"]),
	}
}

// person usa el instituto propio del registro; si no lo trae, el instituto
// del registro contenedor.
func (n *Normalizer) person(raw any, fallbackInstitute any, t *tracker) Candidate {
	p, ok := asObject(raw)
	if !ok {
		t.note("", "persona ausente, se completa con valores por defecto")
		p = map[string]any{}
	}

	instituteRaw := p["institute"]
	if _, ok := asObject(instituteRaw); !ok {
		instituteRaw = fallbackInstitute
	}

	return Candidate{
		"dni":       n.text(p, "dni", t),
		"institute": n.institute(instituteRaw, t.at("institute")),
		"name":      n.text(p, "name", t),
		"lastname":  n.text(p, "lastname", t),
		"phone":     toString(p["phone"]),
		"mail":      n.mail(p["mail"], t.at("mail")),
		"enabled":   truthy(p["enabled"]),
	}
}

// reference normaliza entidades {id, name}. Un escalar se toma como nombre.
func (n *Normalizer) reference(raw any, defaultName string, t *tracker) Candidate {
	if obj, ok := asObject(raw); ok {
		id, ok := positiveInt(obj["id"])
		if !ok {
			id = 1
			t.note("id", "id ausente o inválido, se usa 1")
		}
		name := defaultName
		if !isAbsent(obj["name"]) {
			name = toString(obj["name"])
		} else {
			t.note("name", "nombre ausente, se usa "+defaultName)
		}
		return Candidate{"id": id, "name": name}
	}

	if isAbsent(raw) {
		t.note("", "referencia ausente, se usa "+defaultName)
		return Candidate{"id": 1, "name": defaultName}
	}

	t.note("", "referencia recibida como texto")
	return Candidate{"id": 1, "name": toString(raw)}
}

func (n *Normalizer) text(obj map[string]any, key string, t *tracker) string {
	v, ok := obj[key]
	if !ok || isAbsent(v) {
		if len(obj) > 0 {
			t.note(key, "campo ausente, se usa texto vacío")
		}
		return ""
	}
	return toString(v)
}

func (n *Normalizer) mail(raw any, t *tracker) string {
	if s, ok := raw.(string); ok && schema.IsEmail(s) {
		return s
	}
	t.note("", "mail ausente o inválido, se usa "+n.placeholder)
	return n.placeholder
}

type tracker struct {
	prefix  string
	repairs []Repair
	parent  *tracker
}

func (t *tracker) at(field string) *tracker {
	return &tracker{prefix: t.path(field) + ".", parent: t.root()}
}

func (t *tracker) root() *tracker {
	if t.parent != nil {
		return t.parent
	}
	return t
}

func (t *tracker) path(field string) string {
	p := t.prefix + field
	if field == "" && len(p) > 0 && p[len(p)-1] == '.' {
		p = p[:len(p)-1]
	}
	return p
}

func (t *tracker) note(field, reason string) {
	r := t.root()
	r.repairs = append(r.repairs, Repair{Field: t.path(field), Reason: reason})
}
