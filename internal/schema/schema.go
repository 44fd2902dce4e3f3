// Package schema valida entidades del backend contra sus restricciones.
//
// La validación tiene dos etapas: primero el valor crudo (mapas y slices tal
// como salen de encoding/json o del normalizador) se decodifica al tipo de
// destino con mapstructure, después las etiquetas `validate` del tipo se
// verifican con go-playground/validator. Los errores de ambas etapas se
// reportan juntos, uno por campo, con un mensaje legible en castellano.
// Los campos desconocidos se ignoran.
package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	"github.com/mitchellh/mapstructure"
)

var (
	validate = validator.New()
	trans    ut.Translator
)

// Formatos de fecha aceptados al decodificar strings en campos time.Time
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func init() {
	var err error
	if trans, err = NewTranslator(validate); err != nil {
		panic(fmt.Sprintf("schema: registering translations: %v", err))
	}
}

// NewTranslator hace que v reporte los nombres de campo del JSON y registra
// sus mensajes en castellano.
func NewTranslator(v *validator.Validate) (ut.Translator, error) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := es.New()
	uni := ut.New(locale, locale)
	t, _ := uni.GetTranslator("es")
	if err := es_translations.RegisterDefaultTranslations(v, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Message traduce fe. Las etiquetas sin traducción usan un mensaje genérico.
func Message(fe validator.FieldError, t ut.Translator) string {
	msg := fe.Translate(t)
	if msg == fe.Error() {
		return fmt.Sprintf("%s no es válido", fe.Field())
	}
	return msg
}

// Violation describe un campo inválido
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError enumera todas las violaciones encontradas en una entidad
type ValidationError struct {
	Entity     string
	Violations []Violation
}

// Error implementa la interfaz error
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("%s inválido: %s", e.Entity, strings.Join(parts, "; "))
}

// Fields devuelve los nombres de los campos con violaciones, en orden
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// Decode convierte input en un T validado. entity solo se usa en los mensajes.
func Decode[T any](entity string, input any) (T, error) {
	var out T
	violations := decodeInto(input, &out)
	violations = merge(violations, structViolations(out))
	if len(violations) > 0 {
		var zero T
		return zero, &ValidationError{Entity: entity, Violations: violations}
	}
	return out, nil
}

// DecodeList valida un arreglo de entidades. Las violaciones llevan el
// índice del elemento como prefijo, por ejemplo "[2].institute.mail".
func DecodeList[T any](entity string, input any) ([]T, error) {
	items, ok := asSlice(input)
	if !ok {
		return nil, &ValidationError{
			Entity:     entity,
			Violations: []Violation{{Message: fmt.Sprintf("se esperaba un arreglo, se recibió %T", input)}},
		}
	}

	out := make([]T, 0, len(items))
	var violations []Violation
	for i, item := range items {
		v, err := Decode[T](entity, item)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				for _, violation := range verr.Violations {
					violation.Field = indexed(i, violation.Field)
					violations = append(violations, violation)
				}
			}
			continue
		}
		out = append(out, v)
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Entity: entity, Violations: violations}
	}
	return out, nil
}

// Struct valida un valor ya tipado
func Struct(entity string, v any) error {
	if violations := structViolations(v); len(violations) > 0 {
		return &ValidationError{Entity: entity, Violations: violations}
	}
	return nil
}

// IsEmail informa si s tiene sintaxis de correo electrónico
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func decodeInto(input any, out any) []Violation {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(integralHook, timeHook),
	})
	if err != nil {
		return []Violation{{Message: err.Error()}}
	}
	if err := decoder.Decode(input); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			violations := make([]Violation, 0, len(merr.Errors))
			for _, msg := range merr.Errors {
				violations = append(violations, decodeViolation(msg))
			}
			return violations
		}
		return []Violation{decodeViolation(err.Error())}
	}
	return nil
}

func structViolations(v any) []Violation {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Message: err.Error()}}
	}
	violations := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, Violation{
			Field:   trimRoot(fe.Namespace()),
			Message: Message(fe, trans),
		})
	}
	return violations
}

// merge agrega extra a base omitiendo campos ya reportados
func merge(base, extra []Violation) []Violation {
	seen := make(map[string]struct{}, len(base))
	for _, v := range base {
		seen[v.Field] = struct{}{}
	}
	for _, v := range extra {
		if _, ok := seen[v.Field]; ok {
			continue
		}
		seen[v.Field] = struct{}{}
		base = append(base, v)
	}
	return base
}

// integralHook rechaza números con parte decimal en campos enteros
func integralHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int || (from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32) {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("se esperaba un número entero, se recibió %v", data)
	}
	return int(f), nil
}

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) || from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("fecha inválida %q", s)
}

// decodeViolation extrae el campo de los mensajes de mapstructure, que lo
// citan entre comillas simples.
func decodeViolation(msg string) Violation {
	field := ""
	if start := strings.Index(msg, "'"); start >= 0 {
		if end := strings.Index(msg[start+1:], "'"); end >= 0 {
			field = msg[start+1 : start+1+end]
		}
	}
	return Violation{Field: field, Message: msg}
}

func trimRoot(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func indexed(i int, field string) string {
	if field == "" {
		return fmt.Sprintf("[%d]", i)
	}
	return fmt.Sprintf("[%d].%s", i, field)
}

func asSlice(input any) ([]any, bool) {
	if input == nil {
		return nil, false
	}
	if items, ok := input.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(input)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
