package smv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestNormalizeDNIPadding(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *string
	}{
		{"short value is left padded", "123", strptr("00000000123")},
		{"eight digit document", "45678912", strptr("00045678912")},
		{"already eleven wide is unchanged", "00000000123", strptr("00000000123")},
		{"longer than eleven keeps the first eleven", "123456789012", strptr("12345678901")},
		{"separators are stripped before padding", "4 5.678-912", strptr("00045678912")},
		{"numeric payload value", float64(123), strptr("00000000123")},
		{"no digits at all", "N/A", nil},
		{"empty string", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(map[string]any{"dni": tt.in})
			assert.Equal(t, tt.want, r.DNI)
		})
	}
}

func TestNormalizeDNIPaddingIsIdempotent(t *testing.T) {
	first := Normalize(map[string]any{"dni": "123"})
	require.NotNil(t, first.DNI)
	second := Normalize(map[string]any{"dni": *first.DNI})
	require.NotNil(t, second.DNI)
	assert.Equal(t, *first.DNI, *second.DNI)
	assert.Len(t, *second.DNI, DNIWidth)
}

func TestNormalizeLM(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"padded to ten", "4455", strptr("0000004455")},
		{"ten wide unchanged", "1234567890", strptr("1234567890")},
		{"over ten keeps first ten", "123456789012", strptr("1234567890")},
		{"letters removed", "LM-4455", strptr("0000004455")},
		{"no digits", "ilegible", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(map[string]any{"lm": tt.in})
			assert.Equal(t, tt.want, r.LM)
		})
	}
}

func TestNormalizeLMAliases(t *testing.T) {
	t.Run("dni_o_lm maps to lm", func(t *testing.T) {
		r := Normalize(map[string]any{"dni_o_lm": "4455"})
		assert.Equal(t, strptr("0000004455"), r.LM)
	})
	t.Run("libreta_militar maps to lm", func(t *testing.T) {
		r := Normalize(map[string]any{"libreta_militar": "4455"})
		assert.Equal(t, strptr("0000004455"), r.LM)
	})
	t.Run("alias does not overwrite a populated canonical key", func(t *testing.T) {
		r := Normalize(map[string]any{"lm": "1111", "dni_o_lm": "2222"})
		assert.Equal(t, strptr("0000001111"), r.LM)
	})
	t.Run("alias fills an empty canonical key", func(t *testing.T) {
		r := Normalize(map[string]any{"lm": "", "libreta_militar": "2222"})
		assert.Equal(t, strptr("0000002222"), r.LM)
	})
}

func TestNormalizeOR(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"valid code passes through", "055A", strptr("055A")},
		{"lowercase is raised", "055a", strptr("055A")},
		{"trailing four becomes A", "0554", strptr("055A")},
		{"leading six becomes zero", "655A", strptr("055A")},
		{"both repairs chain", "6554", strptr("055A")},
		{"internal spaces removed", "0 5 5 A", strptr("055A")},
		{"punctuation stripped", "055-A.", strptr("055A")},
		{"reconstruction from scattered parts", "12B3X", strptr("123X")},
		{"reconstruction keeps last letter", "1A2B3C", strptr("123C")},
		{"too few digits", "12", nil},
		{"no letter", "0123", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(map[string]any{"or": tt.in})
			assert.Equal(t, tt.want, r.OR)
		})
	}
}

func TestNormalizeClase(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"four digits unchanged", "1998", strptr("1998")},
		{"keeps the last four", "AB1998", strptr("1998")},
		{"eight digits keeps trailing", "00199877", strptr("9877")},
		{"fewer than four digits is null", "98", nil},
		{"empty is null", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(map[string]any{"clase": tt.in})
			assert.Equal(t, tt.want, r.Clase)
		})
	}
}

func TestClaseNeverInferredFromBirthDate(t *testing.T) {
	r := Normalize(map[string]any{
		"clase":            "",
		"fecha_nacimiento": "05/01/1978",
	})
	assert.Nil(t, r.Clase)
}

func TestNormalizeLibroFolio(t *testing.T) {
	r := Normalize(map[string]any{"libro": " 0 012 ", "folio": "00 45"})
	assert.Equal(t, strptr("0012"), r.Libro)
	assert.Equal(t, strptr("0045"), r.Folio)

	empty := Normalize(map[string]any{"libro": "   ", "folio": nil})
	assert.Nil(t, empty.Libro)
	assert.Nil(t, empty.Folio)
}

func TestNormalizeFechaNacimiento(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"slash date passes", "05/01/1998", strptr("05/01/1998")},
		{"single digit components padded", "5/1/1998", strptr("05/01/1998")},
		{"dots become slashes", "05.01.1998", strptr("05/01/1998")},
		{"dashes become slashes", "05-01-1998", strptr("05/01/1998")},
		{"month abbreviation", "5 ENE 1998", strptr("05/01/1998")},
		{"set maps to september", "12 SET 1975", strptr("12/09/1975")},
		{"sept maps to september", "12 SEPT 1975", strptr("12/09/1975")},
		{"dec maps to december", "3 DEC 1980", strptr("03/12/1980")},
		{"two digit year expands to 1900s", "1/1/98", strptr("01/01/1998")},
		{"spaces as separators", "5 1 1998", strptr("05/01/1998")},
		{"month out of range", "31/13/1998", nil},
		{"day out of range", "32/01/1998", nil},
		{"unknown month name", "5 XYZ 1998", nil},
		{"free text", "no legible", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(map[string]any{"fecha_nacimiento": tt.in})
			assert.Equal(t, tt.want, r.FechaNacimiento)
		})
	}
}

func TestNormalizeNames(t *testing.T) {
	r := Normalize(map[string]any{
		"apellidos": "  garcia   torres ",
		"nombres":   "juan\tcarlos",
	})
	assert.Equal(t, strptr("GARCIA TORRES"), r.Apellidos)
	assert.Equal(t, strptr("JUAN CARLOS"), r.Nombres)
}

func TestNormalizePrestoServicio(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"lowercase si", map[string]any{"presto_servicio": "si"}, "SI"},
		{"padded si", map[string]any{"presto_servicio": " SI "}, "SI"},
		{"accented is not strict si", map[string]any{"presto_servicio": "SÍ"}, "NO"},
		{"no stays no", map[string]any{"presto_servicio": "NO"}, "NO"},
		{"missing key defaults to no", map[string]any{}, "NO"},
		{"null value defaults to no", map[string]any{"presto_servicio": nil}, "NO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(tt.in)
			assert.Equal(t, tt.want, r.PrestoServicio)
		})
	}
}

func TestParseBooleanSiNoLenient(t *testing.T) {
	for _, yes := range []string{"SI", "si", "SÍ", "sí", "S", "SI.", " si "} {
		assert.True(t, ParseBooleanSiNoLenient(yes), yes)
	}
	for _, no := range []string{"NO", "", "X", "SIP", "N"} {
		assert.False(t, ParseBooleanSiNoLenient(no), no)
	}
}

func TestNormalizePassthroughFields(t *testing.T) {
	r := Normalize(map[string]any{
		"gran_unidad": "  1RA BRIGADA  ",
		"unidad_alta": "BIM 33",
		"grado":       "",
	})
	assert.Equal(t, strptr("1RA BRIGADA"), r.GranUnidad)
	assert.Equal(t, strptr("BIM 33"), r.UnidadAlta)
	assert.Nil(t, r.Grado)
	assert.Nil(t, r.MotivoBaja)
}

func TestNormalizeSchemaIsComplete(t *testing.T) {
	r := Normalize(map[string]any{"campo_desconocido": "x"})

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(r.JSON(), &m))
	assert.Len(t, m, len(FieldKeys))
	for _, k := range FieldKeys {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "campo_desconocido")
}

func TestNormalizeIsTotalOnGarbage(t *testing.T) {
	r := Normalize(map[string]any{
		"dni":              []any{"1", "2"},
		"or":               map[string]any{"x": 1},
		"fecha_nacimiento": true,
	})
	require.NotNil(t, r)
	assert.Equal(t, "NO", r.PrestoServicio)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	r := Normalize(map[string]any{
		"dni":             "45678912",
		"apellidos":       "garcia torres",
		"presto_servicio": "SI",
		"gran_unidad":     "1RA BRIGADA",
	})
	back, err := FromJSON(r.JSON())
	require.NoError(t, err)
	assert.Equal(t, r, back)
	assert.True(t, back.ServedService())
}
