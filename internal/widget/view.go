package widget

import (
	"fmt"
	"strings"
)

const DefaultIconBaseURL = "https://openweathermap.org/img/wn"

// View kinds.
const (
	ViewWelcome = "welcome"
	ViewLoading = "loading"
	ViewWeather = "weather"
	ViewError   = "error"
)

// View is the render description of a State: everything a renderer needs and
// nothing it has to compute.
type View struct {
	Kind          string         `json:"kind"`
	City          string         `json:"city,omitempty"`
	Temperature   string         `json:"temperature,omitempty"`
	Description   string         `json:"description,omitempty"`
	IconURL       string         `json:"icon_url,omitempty"`
	Forecast      []ForecastCard `json:"forecast,omitempty"`
	Message       string         `json:"message,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	Recent        []string       `json:"recent"`
	SubmitEnabled bool           `json:"submit_enabled"`
}

type ForecastCard struct {
	Day         string `json:"day"`
	Temperature string `json:"temperature"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
}

// Renderer draws a View onto the widget's single render target.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

type nopRenderer struct{}

func (nopRenderer) Render(View) {}

// Describe maps a State to its View. It is pure.
func Describe(s State, iconBaseURL string) View {
	if iconBaseURL == "" {
		iconBaseURL = DefaultIconBaseURL
	}

	v := View{
		Recent:        append([]string{}, s.Recent...),
		SubmitEnabled: s.Phase != PhaseLoading,
	}

	switch s.Phase {
	case PhaseLoading:
		v.Kind = ViewLoading
		v.City = s.City
		v.Message = "Loading weather..."
	case PhaseSuccess:
		v.Kind = ViewWeather
		if s.Current != nil {
			v.City = s.Current.CityName
			v.Temperature = FormatCelsius(s.Current.TemperatureCelsius)
			v.Description = s.Current.Description
			v.IconURL = IconURL(iconBaseURL, s.Current.IconCode)
		}
		for _, day := range s.Forecast {
			v.Forecast = append(v.Forecast, ForecastCard{
				Day:         day.DayLabel,
				Temperature: FormatCelsius(day.TemperatureCelsius),
				Description: day.Description,
				IconURL:     IconURL(iconBaseURL, day.IconCode),
			})
		}
	case PhaseError:
		v.Kind = ViewError
		v.City = s.City
		if s.Err != nil {
			v.Message = s.Err.Message
			v.ErrorKind = s.Err.Kind.String()
		}
	default:
		v.Kind = ViewWelcome
		v.Message = "Welcome to Weather Aboard. Enter a city name to get started!"
	}

	return v
}

func FormatCelsius(temp int) string {
	return fmt.Sprintf("%d°C", temp)
}

func IconURL(base, icon string) string {
	if icon == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s@2x.png", strings.TrimRight(base, "/"), icon)
}
