package handlers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbridge/internal/tools"
)

func newDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	_, _, err := tools.SetupToolsLog(filepath.Join(t.TempDir(), "tools.log"))
	require.NoError(t, err)
	reg, err := tools.NewRegistry(Default()...)
	require.NoError(t, err)
	return tools.NewDispatcher(reg, tools.Options{})
}

func TestDefault_DescriptorsInOrder(t *testing.T) {
	reg, err := tools.NewRegistry(Default()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_weather", "read_file", "list_files"}, reg.Names())

	weather := reg.Descriptors()[0]
	assert.Equal(t, "get the weather for a city", weather.Description)
	assert.ElementsMatch(t, []any{"location", "country", "unit"}, weather.Parameters["required"])
	unit := weather.Parameters["properties"].(map[string]any)["unit"].(map[string]any)
	assert.ElementsMatch(t, []any{"celsius", "fahrenheit"}, unit["enum"])
	assert.Equal(t, "The temperature unit (e.g., 'celsius' or 'fahrenheit')", unit["description"])
}

func TestGetWeather_ReferenceScenario(t *testing.T) {
	d := newDispatcher(t)
	results := d.Dispatch(context.Background(), &tools.Env{}, []tools.ToolCall{
		{ID: "1", Name: "get_weather", Payload: json.RawMessage(`{"location":"Paris","country":"France","unit":"celsius"}`)},
		{ID: "2", Name: "nonexistent", Payload: json.RawMessage(`{}`)},
	})
	require.Len(t, results, 2)
	require.True(t, results[0].OK(), results[0].Error)
	assert.JSONEq(t, `{"temperature":30.0,"unit":"celsius","humidity_rh":0.3}`, string(results[0].Output))
	assert.Equal(t, "unknown tool: nonexistent", results[1].Error)
}

func TestGetWeather_UnitIsRequired(t *testing.T) {
	d := newDispatcher(t)
	results := d.Dispatch(context.Background(), nil, []tools.ToolCall{
		{ID: "a", Name: "get_weather", Payload: json.RawMessage(`{"location":"Oslo","country":"Norway"}`)},
		{ID: "b", Name: "get_weather", Payload: json.RawMessage(`{"location":"Oslo","country":"Norway","unit":"kelvin"}`)},
		{ID: "c", Name: "get_weather", Payload: json.RawMessage(`{"location":"Oslo","country":"Norway","unit":"fahrenheit"}`)},
	})
	require.Len(t, results, 3)
	assert.Equal(t, tools.KindInvalidArgument, results[0].Kind)
	assert.Contains(t, results[0].Error, "unit")
	assert.Equal(t, tools.KindInvalidArgument, results[1].Kind)
	require.True(t, results[2].OK(), results[2].Error)
	assert.JSONEq(t, `{"temperature":30,"unit":"fahrenheit","humidity_rh":0.3}`, string(results[2].Output))
}

func TestTempUnit_UnmarshalText(t *testing.T) {
	var u TempUnit
	require.NoError(t, u.UnmarshalText([]byte(" Fahrenheit ")))
	assert.Equal(t, Fahrenheit, u)
	assert.Error(t, u.UnmarshalText([]byte("kelvin")))
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello world"), 0o644))
	env := &tools.Env{Workdir: root}
	ctx := context.Background()

	res, err := ReadFile(ctx, env, ReadFileParams{Path: "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Content)
	assert.False(t, res.Truncated)

	res, err = ReadFile(ctx, env, ReadFileParams{Path: "notes.txt", MaxBytes: 5})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Content)
	assert.True(t, res.Truncated)

	_, err = ReadFile(ctx, env, ReadFileParams{Path: "../outside.txt"})
	var he *tools.HandlerError
	require.ErrorAs(t, err, &he)
	assert.Contains(t, err.Error(), "outside the working directory")

	_, err = ReadFile(ctx, env, ReadFileParams{Path: "missing.txt"})
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "file not found: missing.txt", err.Error())
}

func TestReadFile_ThroughDispatcherReportsHandlerError(t *testing.T) {
	d := newDispatcher(t)
	env := &tools.Env{Workdir: t.TempDir()}
	res := d.DispatchOne(context.Background(), env, tools.ToolCall{
		ID: "r1", Name: "read_file", Payload: json.RawMessage(`{"path":"nope.txt"}`),
	})
	assert.Equal(t, tools.KindHandlerError, res.Kind)
	assert.Equal(t, "file not found: nope.txt", res.Error)
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"alpha.go", "beta.go", "gamma.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}
	env := &tools.Env{Workdir: root}

	res, err := ListFiles(context.Background(), env, ListFilesParams{})
	require.NoError(t, err)
	assert.Len(t, res.Files, 3)

	res, err = ListFiles(context.Background(), env, ListFilesParams{Query: ".md"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Files)
	assert.True(t, strings.HasSuffix(res.Files[0], ".md"))

	empty := &tools.Env{Workdir: t.TempDir()}
	res, err = ListFiles(context.Background(), empty, ListFilesParams{})
	require.NoError(t, err)
	assert.NotNil(t, res.Files)
	assert.Empty(t, res.Files)
}
