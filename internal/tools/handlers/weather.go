package handlers

import (
	"context"
	"fmt"
	"strings"

	"toolbridge/internal/schema"
	"toolbridge/internal/tools"
)

// TempUnit is the temperature scale requested by the model.
type TempUnit string

const (
	Celsius    TempUnit = "celsius"
	Fahrenheit TempUnit = "fahrenheit"
)

func (TempUnit) JSONSchema() *schema.JSONSchema {
	return schema.StringEnum(string(Celsius), string(Fahrenheit))
}

func (u *TempUnit) UnmarshalText(text []byte) error {
	switch v := TempUnit(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case Celsius, Fahrenheit:
		*u = v
		return nil
	default:
		return fmt.Errorf("unknown unit %q", text)
	}
}

// GetWeatherParams 是 get_weather 的参数。
type GetWeatherParams struct {
	Location string   `json:"location" jsonschema_description:"The city and state, e.g. San Francisco, CA"`
	Country  string   `json:"country" jsonschema_description:"The full country name of the city"`
	Unit     TempUnit `json:"unit" jsonschema_description:"The temperature unit (e.g., 'celsius' or 'fahrenheit')"`
}

func (GetWeatherParams) ToolName() string { return "get_weather" }
func (GetWeatherParams) ToolDescription() string {
	return "get the weather for a city"
}

type Weather struct {
	Temperature float64  `json:"temperature"`
	Unit        TempUnit `json:"unit"`
	HumidityRH  float64  `json:"humidity_rh"`
}

// GetWeather is a canned weather lookup; it always reports 30 degrees.
func GetWeather(_ context.Context, _ *tools.Env, p GetWeatherParams) (Weather, error) {
	return Weather{Temperature: 30.0, Unit: p.Unit, HumidityRH: 0.3}, nil
}
