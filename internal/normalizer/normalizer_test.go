package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hypernova-labs/portal-capacitaciones/internal/models"
	"github.com/hypernova-labs/portal-capacitaciones/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func rawJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func fields(repairs []Repair) []string {
	out := make([]string, 0, len(repairs))
	for _, r := range repairs {
		out = append(out, r.Field)
	}
	return out
}

func TestSupportsIncompleteRecord(t *testing.T) {
	n := newTestNormalizer()
	raw := rawJSON(t, `[{
		"code": "A1",
		"institute": null,
		"date": "2024-01-01",
		"technician": {"dni": "1"},
		"supportType": "Visita",
		"supportState": "Enviado"
	}]`)

	candidates, repairs := n.Supports(raw.([]any))
	require.Len(t, candidates, 1)
	assert.NotEmpty(t, repairs)

	records, err := schema.DecodeList[models.SupportRecord]("supports", candidates)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, "A1", r.Code)
	assert.Equal(t, 1, r.Institute.ID)
	assert.Equal(t, PlaceholderMail, r.Institute.Mail)
	assert.Equal(t, PlaceholderMail, r.Technician.Mail)
	assert.Equal(t, "1", r.Technician.DNI)
	assert.Equal(t, models.SupportType{ID: 1, Name: "Visita"}, r.SupportType)
	assert.Equal(t, models.SupportState{ID: 1, Name: "Enviado"}, r.SupportState)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(r.Date))
	assert.Nil(t, r.Description)

	assert.Contains(t, fields(repairs), "[0].id")
	assert.Contains(t, fields(repairs), "[0].institute")
	assert.Contains(t, fields(repairs), "[0].technician.mail")
	assert.Contains(t, fields(repairs), "[0].supportType")
}

func TestSupportsBatchIDsFollowPosition(t *testing.T) {
	n := newTestNormalizer()
	raw := []any{
		map[string]any{"code": "X"},
		map[string]any{"id": 40.0, "code": "Y"},
		map[string]any{"code": "Z"},
	}

	candidates, _ := n.Supports(raw)
	require.Len(t, candidates, 3)
	assert.Equal(t, 1, candidates[0]["id"])
	assert.Equal(t, 40, candidates[1]["id"])
	assert.Equal(t, 3, candidates[2]["id"])
}

func TestSupportDefaults(t *testing.T) {
	n := newTestNormalizer()

	c, repairs := n.Support(map[string]any{"id": 7.0}, 0)
	assert.Equal(t, 7, c["id"])
	assert.Equal(t, "7", c["code"])
	assert.Equal(t, fixedNow, c["date"])
	assert.Equal(t, Candidate{"id": 1, "name": models.SupportTypeVisit}, c["supportType"])
	assert.Equal(t, Candidate{"id": 1, "name": models.SupportStateSent}, c["supportState"])
	assert.Contains(t, fields(repairs), "date")
	assert.Contains(t, fields(repairs), "code")

	_, err := schema.Decode[models.SupportRecord]("support", c)
	assert.NoError(t, err)
}

func TestSupportNonObject(t *testing.T) {
	n := newTestNormalizer()

	c, repairs := n.Support("basura", 4)
	assert.Equal(t, 5, c["id"])
	assert.Contains(t, fields(repairs), "")

	_, err := schema.Decode[models.SupportRecord]("support", c)
	assert.NoError(t, err)
}

func TestSupportKeepsExtraFields(t *testing.T) {
	n := newTestNormalizer()

	c, _ := n.Support(map[string]any{"id": 1.0, "code": "C", "observations": "llamar antes"}, 0)
	assert.Equal(t, "llamar antes", c["observations"])
}

func TestSupportDescription(t *testing.T) {
	n := newTestNormalizer()

	c, _ := n.Support(map[string]any{"description": nil}, 0)
	_, ok := c["description"]
	assert.False(t, ok)

	c, _ = n.Support(map[string]any{"description": "Revisar red"}, 0)
	assert.Equal(t, "Revisar red", c["description"])
}

func TestSupportDateFormats(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		date any
		want time.Time
	}{
		{"fecha", "2024-02-03", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"fecha y hora", "2024-02-03T08:00:00", time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)},
		{"con espacio", "2024-02-03 08:00:00", time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)},
		{"epoch ms", float64(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC).UnixMilli()), time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"vacía", "", fixedNow},
		{"ausente", nil, fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := n.Support(map[string]any{"date": tt.date}, 0)
			got, ok := c["date"].(time.Time)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSupportUnparseableDateIsNotReplaced(t *testing.T) {
	n := newTestNormalizer()

	c, repairs := n.Support(map[string]any{"id": 3.0, "code": "X", "date": "not-a-date"}, 0)
	assert.Equal(t, "not-a-date", c["date"])
	assert.NotContains(t, fields(repairs), "date")

	_, err := schema.Decode[models.SupportRecord]("support", c)
	require.Error(t, err)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "date")
}

func TestSupportNumericCodeAsID(t *testing.T) {
	n := newTestNormalizer()

	c, repairs := n.Support(map[string]any{"code": 42.0}, 0)
	assert.Equal(t, 42, c["id"])
	assert.Equal(t, "42", c["code"])
	assert.NotContains(t, fields(repairs), "id")

	c, _ = n.Support(map[string]any{"code": "REQ-1"}, 2)
	assert.Equal(t, 3, c["id"])
	assert.Equal(t, "REQ-1", c["code"])
}

func TestSupportObjectIDNotUsedAsCode(t *testing.T) {
	n := newTestNormalizer()

	c, _ := n.Support(map[string]any{"id": map[string]any{"value": 5.0}}, 1)
	assert.Equal(t, 2, c["id"])
	assert.Equal(t, "2", c["code"])

	c, _ = n.Support(map[string]any{"id": 5.0, "code": []any{"x"}}, 0)
	assert.Equal(t, "5", c["code"])
}

func TestSupportTechnicianInheritsInstitute(t *testing.T) {
	n := newTestNormalizer()
	institute := map[string]any{"id": 9.0, "cuit": "30-9", "mail": "info@escuela.edu.ar"}

	c, _ := n.Support(map[string]any{
		"institute":  institute,
		"technician": map[string]any{"dni": "20111222", "mail": "tec@escuela.edu.ar"},
	}, 0)

	tech := c["technician"].(Candidate)
	inst := tech["institute"].(Candidate)
	assert.Equal(t, 9, inst["id"])
	assert.Equal(t, "30-9", inst["cuit"])
	assert.Equal(t, "tec@escuela.edu.ar", tech["mail"])
}

func TestReferenceShapes(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		raw  any
		want Candidate
	}{
		{"texto", "Capacitación", Candidate{"id": 1, "name": "Capacitación"}},
		{"objeto", map[string]any{"id": 3.0, "name": "Aceptado"}, Candidate{"id": 3, "name": "Aceptado"}},
		{"id como texto", map[string]any{"id": "4", "name": "Rechazado"}, Candidate{"id": 4, "name": "Rechazado"}},
		{"sin id", map[string]any{"name": "Finalizado"}, Candidate{"id": 1, "name": "Finalizado"}},
		{"ausente", nil, Candidate{"id": 1, "name": models.SupportStateSent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := n.Support(map[string]any{"supportState": tt.raw}, 0)
			if diff := cmp.Diff(tt.want, c["supportState"]); diff != "" {
				t.Errorf("supportState mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInstituteNullUsesDefaults(t *testing.T) {
	n := newTestNormalizer()

	c, repairs := n.Institute(nil)
	assert.Equal(t, 1, c["id"])
	assert.Equal(t, PlaceholderMail, c["mail"])
	assert.Equal(t, false, c["enabled"])
	assert.NotEmpty(t, repairs)

	_, err := schema.Decode[models.Institute]("institute", c)
	assert.NoError(t, err)
}

func TestInstituteInvalidMail(t *testing.T) {
	n := New(WithPlaceholderMail("sin-mail@portal.edu.ar"))

	c, repairs := n.Institute(map[string]any{"id": 2.0, "cuit": "30-2", "mail": "roto"})
	assert.Equal(t, "sin-mail@portal.edu.ar", c["mail"])
	assert.Equal(t, []string{"mail"}, fields(repairs))
}

func TestWithPlaceholderMailIgnoresInvalid(t *testing.T) {
	n := New(WithPlaceholderMail("no es un mail"))

	c, _ := n.Institute(nil)
	assert.Equal(t, PlaceholderMail, c["mail"])
}

func TestPersonRoundTrip(t *testing.T) {
	n := newTestNormalizer()
	director := models.Director{
		DNI:      "30123456",
		Name:     "Ana",
		Lastname: "Pérez",
		Phone:    "351-555-0101",
		Mail:     "ana@escuela.edu.ar",
		Enabled:  true,
		Institute: models.Institute{
			ID: 4, CUIT: "30-71234567-1", Domain: "escuela.edu.ar", Enabled: true, Mail: "info@escuela.edu.ar",
		},
	}
	require.NoError(t, schema.Struct("director", director))

	b, err := json.Marshal(director)
	require.NoError(t, err)
	var raw any
	require.NoError(t, json.Unmarshal(b, &raw))

	c, repairs := n.Person(raw)
	assert.Empty(t, repairs)

	got, err := schema.Decode[models.Director]("director", c)
	require.NoError(t, err)
	if diff := cmp.Diff(director, got); diff != "" {
		t.Errorf("director mismatch (-want +got):\n%s", diff)
	}
}

func TestSupportsIdempotent(t *testing.T) {
	n := newTestNormalizer()
	raw := rawJSON(t, `[
		{"code": "A1", "institute": null, "technician": {"dni": "1"}, "supportType": "Visita"},
		{"id": 12, "code": "B2", "date": "2024-05-05", "description": "Taller",
		 "institute": {"id": 3, "cuit": "30-3", "mail": "info@escuela.edu.ar", "enabled": 1},
		 "technician": {"dni": "20111222", "name": "Luis", "lastname": "Gómez", "mail": "bad"},
		 "supportType": {"id": 2, "name": "Capacitación"},
		 "supportState": {"id": 3.0, "name": "Aceptado"}}
	]`)

	first, _ := n.Supports(raw.([]any))

	again := make([]any, len(first))
	for i, c := range first {
		again[i] = c
	}
	second, repairs := n.Supports(again)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass changed records (-first +second):\n%s", diff)
	}
	assert.Empty(t, repairs)
}

func TestSupportsWellFormedHasNoRepairs(t *testing.T) {
	n := newTestNormalizer()
	raw := rawJSON(t, `[{
		"id": 5, "code": "REQ-5", "date": "2024-05-05T00:00:00", "description": null,
		"institute": {"id": 3, "cuit": "30-3", "domain": "e.edu.ar", "enabled": true, "mail": "info@escuela.edu.ar", "phone": ""},
		"technician": {"dni": "20111222", "name": "Luis", "lastname": "Gómez", "phone": "", "mail": "luis@escuela.edu.ar", "enabled": true,
			"institute": {"id": 3, "cuit": "30-3", "domain": "e.edu.ar", "enabled": true, "mail": "info@escuela.edu.ar", "phone": ""}},
		"supportType": {"id": 2, "name": "Capacitación"},
		"supportState": {"id": 1, "name": "Enviado"}
	}]`)

	candidates, repairs := n.Supports(raw.([]any))
	assert.Empty(t, repairs)

	records, err := schema.DecodeList[models.SupportRecord]("supports", candidates)
	require.NoError(t, err)
	assert.Equal(t, 5, records[0].ID)
	assert.Equal(t, "Capacitación", records[0].SupportType.Name)
}
