package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// middaySlot marks the 12:00 UTC sample of each day in dt_txt.
	middaySlot  = "12:00:00"
	dtTxtLayout = "2006-01-02 15:04:05"
)

// NormalizeCurrent maps a /weather body to CurrentConditions.
func NormalizeCurrent(body []byte) (CurrentConditions, error) {
	var raw currentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return CurrentConditions{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw.Main == nil || len(raw.Weather) == 0 {
		return CurrentConditions{}, fmt.Errorf("%w: missing main or weather", ErrMalformedPayload)
	}

	return CurrentConditions{
		CityName:           raw.Name,
		TemperatureCelsius: RoundCelsius(raw.Main.Temp),
		Description:        raw.Weather[0].Description,
		IconCode:           raw.Weather[0].Icon,
	}, nil
}

// NormalizeForecast maps a /forecast body to at most maxDays ForecastDay
// entries: one midday sample per day, in the order the API sent them.
func NormalizeForecast(body []byte, maxDays int) ([]ForecastDay, error) {
	var raw forecastResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	days := make([]ForecastDay, 0, maxDays)
	for _, sample := range raw.List {
		if len(days) == maxDays {
			break
		}
		if !strings.Contains(sample.DtTxt, middaySlot) {
			continue
		}
		if len(sample.Weather) == 0 {
			return nil, fmt.Errorf("%w: sample %q has no weather", ErrMalformedPayload, sample.DtTxt)
		}

		days = append(days, ForecastDay{
			DayLabel:           dayLabel(sample),
			TemperatureCelsius: RoundCelsius(sample.Main.Temp),
			Description:        sample.Weather[0].Description,
			IconCode:           sample.Weather[0].Icon,
		})
	}

	return days, nil
}

// RoundCelsius rounds to the nearest degree, halves away from zero.
func RoundCelsius(temp float64) int {
	return int(math.Round(temp))
}

func dayLabel(sample forecastSample) string {
	if sample.Dt != 0 {
		return time.Unix(sample.Dt, 0).UTC().Format("Mon")
	}
	if t, err := time.Parse(dtTxtLayout, sample.DtTxt); err == nil {
		return t.Format("Mon")
	}
	return ""
}
