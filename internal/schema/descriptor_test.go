package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unit string

func (unit) JSONSchema() *JSONSchema { return StringEnum("celsius", "fahrenheit") }

type weatherParams struct {
	Location string `json:"location" jsonschema_description:"City name"`
	Country  string `json:"country"`
	Unit     unit   `json:"unit,omitempty"`
}

type inner struct {
	Street string `json:"street"`
	Zip    string `json:"zip,omitempty"`
}

type nestedParams struct {
	Name    string   `json:"name"`
	Tags    []string `json:"tags,omitempty"`
	Address inner    `json:"address"`
	Ignored string   `json:"-"`
	hidden  string
}

type documentedParams struct {
	Query string `json:"query"`
}

func (documentedParams) ToolName() string        { return "search" }
func (documentedParams) ToolDescription() string { return "Search the index" }

func TestDescribe_RequiredMirrorsOptionality(t *testing.T) {
	d, err := Describe("get_weather", "Determine weather in my location", weatherParams{})
	require.NoError(t, err)

	assert.Equal(t, "get_weather", d.Name)
	assert.Equal(t, "Determine weather in my location", d.Description)
	assert.Equal(t, "object", d.Parameters["type"])
	assert.NotContains(t, d.Parameters, "$schema")
	assert.NotContains(t, d.Parameters, "additionalProperties")

	props, ok := d.Parameters["properties"].(map[string]any)
	require.True(t, ok, "properties missing: %#v", d.Parameters)
	assert.Len(t, props, 3)

	loc := props["location"].(map[string]any)
	assert.Equal(t, "string", loc["type"])
	assert.Equal(t, "City name", loc["description"])

	u := props["unit"].(map[string]any)
	assert.Equal(t, "string", u["type"])
	assert.ElementsMatch(t, []any{"celsius", "fahrenheit"}, u["enum"])

	assert.ElementsMatch(t, []any{"location", "country"}, d.Parameters["required"])
}

func TestDescribe_NestedStructIsInlined(t *testing.T) {
	d, err := Describe("profile", "", &nestedParams{})
	require.NoError(t, err)

	props := d.Parameters["properties"].(map[string]any)
	assert.NotContains(t, props, "Ignored")
	assert.NotContains(t, props, "hidden")

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])

	addr := props["address"].(map[string]any)
	assert.Equal(t, "object", addr["type"])
	assert.NotContains(t, addr, "$ref")
	assert.ElementsMatch(t, []any{"street"}, addr["required"])

	assert.ElementsMatch(t, []any{"name", "address"}, d.Parameters["required"])
}

func TestDescribeType_UsesDocumentedNames(t *testing.T) {
	d, err := DescribeType[documentedParams]("", "")
	require.NoError(t, err)
	assert.Equal(t, "search", d.Name)
	assert.Equal(t, "Search the index", d.Description)

	d, err = DescribeType[documentedParams]("find", "")
	require.NoError(t, err)
	assert.Equal(t, "find", d.Name)
	assert.Equal(t, "Search the index", d.Description)
}

func TestDescribe_EmptyStructHasNoRequired(t *testing.T) {
	d, err := Describe("ping", "Ping", struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "object", d.Parameters["type"])
	req, _ := d.Parameters["required"].([]any)
	assert.Empty(t, req)
}

func TestDescribe_RejectsUnrepresentableTypes(t *testing.T) {
	cases := []struct {
		name  string
		value any
		field string
	}{
		{name: "func field", value: struct {
			Callback func() `json:"callback"`
		}{}, field: "callback"},
		{name: "chan in slice", value: struct {
			Pipes []chan int `json:"pipes"`
		}{}, field: "pipes[]"},
		{name: "complex nested", value: struct {
			Inner struct {
				Z complex128 `json:"z"`
			} `json:"inner"`
		}{}, field: "inner.z"},
		{name: "top level string", value: "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Describe("bad", "", tc.value)
			var se *SchemaError
			require.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
			if tc.field != "" {
				assert.Equal(t, tc.field, se.Field)
			}
		})
	}
}

func TestDescribe_RejectsEmptyName(t *testing.T) {
	_, err := Describe("  ", "x", weatherParams{})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = Describe("x", "", nil)
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestMarshal_IsDeterministic(t *testing.T) {
	a, err := Marshal(reflect.TypeFor[weatherParams]())
	require.NoError(t, err)
	b, err := Marshal(reflect.TypeFor[weatherParams]())
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, string(a), string(b))
}
