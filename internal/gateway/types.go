package gateway

// CurrentConditions is the normalized current weather for one city.
type CurrentConditions struct {
	CityName           string `json:"city_name"`
	TemperatureCelsius int    `json:"temperature_celsius"`
	Description        string `json:"description"`
	IconCode           string `json:"icon_code"`
}

// ForecastDay is the midday sample chosen to represent one forecast day.
type ForecastDay struct {
	DayLabel           string `json:"day_label"`
	TemperatureCelsius int    `json:"temperature_celsius"`
	Description        string `json:"description"`
	IconCode           string `json:"icon_code"`
}

type weatherCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// currentResponse is the subset of /weather the widget reads.
type currentResponse struct {
	Name string `json:"name"`
	Main *struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []weatherCondition `json:"weather"`
}

// forecastResponse is the subset of /forecast the widget reads: 3-hourly
// samples in chronological order.
type forecastResponse struct {
	List []forecastSample `json:"list"`
}

type forecastSample struct {
	Dt    int64  `json:"dt"`
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []weatherCondition `json:"weather"`
}
