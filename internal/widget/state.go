package widget

import (
	"github.com/vzahanych/weather-widget/internal/gateway"
)

// Phase is the position of the widget in its search lifecycle.
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseWelcome:
		return "welcome"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind separates the failures the user sees differently.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnknown:
		return "unknown"
	default:
		return ""
	}
}

const (
	MsgEmptyCity    = "Please enter a city name"
	MsgCityTooShort = "City name too short"
	MsgNotFound     = "City not found. Please check the spelling and try again."
	MsgUnknown      = "Something went wrong. Please try again later."
)

// SearchError is the error shown in PhaseError.
type SearchError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SearchError) Error() string {
	return e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

// State is a snapshot of the widget. Current and Forecast are only set in
// PhaseSuccess, Err only in PhaseError.
type State struct {
	Phase    Phase
	City     string
	Current  *gateway.CurrentConditions
	Forecast []gateway.ForecastDay
	Err      *SearchError
	Recent   []string
}

func (s State) clone() State {
	out := s
	if s.Current != nil {
		current := *s.Current
		out.Current = &current
	}
	out.Forecast = append([]gateway.ForecastDay(nil), s.Forecast...)
	out.Recent = append([]string(nil), s.Recent...)
	return out
}
