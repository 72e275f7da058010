package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unfenced passes through", `{"a":1}`, `{"a":1}`},
		{"fenced json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated fence left alone", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
		{"surrounding whitespace trimmed", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestCoerceToObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		m, err := CoerceToObject(`{"dni":"123","lm":null}`)
		require.NoError(t, err)
		assert.Equal(t, "123", m["dni"])
	})

	t.Run("fenced object", func(t *testing.T) {
		m, err := CoerceToObject("```json\n{\"dni\":\"123\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "123", m["dni"])
	})

	t.Run("list picks the fullest object", func(t *testing.T) {
		m, err := CoerceToObject(`[{"dni":null,"lm":""},{"dni":"123","lm":"456"}]`)
		require.NoError(t, err)
		assert.Equal(t, "123", m["dni"])
	})

	t.Run("list tie keeps the first object", func(t *testing.T) {
		m, err := CoerceToObject(`[{"dni":"111"},{"dni":"222"}]`)
		require.NoError(t, err)
		assert.Equal(t, "111", m["dni"])
	})

	t.Run("empty list yields empty object", func(t *testing.T) {
		m, err := CoerceToObject(`[]`)
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("list without objects is rejected", func(t *testing.T) {
		_, err := CoerceToObject(`["no pude procesar", 42]`)
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("single non-object element is rejected", func(t *testing.T) {
		_, err := CoerceToObject(`["a"]`)
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("quoted object is reparsed", func(t *testing.T) {
		m, err := CoerceToObject(`"{\"dni\":\"123\"}"`)
		require.NoError(t, err)
		assert.Equal(t, "123", m["dni"])
	})

	t.Run("quoted fenced object is reparsed", func(t *testing.T) {
		m, err := CoerceToObject("\"```json\\n{\\\"dni\\\":\\\"123\\\"}\\n```\"")
		require.NoError(t, err)
		assert.Equal(t, "123", m["dni"])
	})

	t.Run("doubly quoted string is rejected", func(t *testing.T) {
		_, err := CoerceToObject(`"\"{}\""`)
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("scalar is rejected", func(t *testing.T) {
		_, err := CoerceToObject(`42`)
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("free text is rejected", func(t *testing.T) {
		_, err := CoerceToObject("no pude procesar la imagen")
		assert.ErrorIs(t, err, ErrNotObject)
	})
}
