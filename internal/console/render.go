package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/vzahanych/weather-widget/internal/widget"
)

// Print writes v once, for one-shot commands that have no session.
func Print(out io.Writer, v widget.View) {
	writeView(out, v)
}

// PrintRecent writes a numbered list of recent searches.
func PrintRecent(out io.Writer, items []string) {
	writeRecent(out, items, true)
}

func writeView(out io.Writer, v widget.View) {
	switch v.Kind {
	case widget.ViewLoading:
		fmt.Fprintf(out, "Loading weather for %s...\n", v.City)
		return
	case widget.ViewWelcome:
		fmt.Fprintln(out, v.Message)
	case widget.ViewError:
		fmt.Fprintf(out, "Error: %s\n", v.Message)
	case widget.ViewWeather:
		fmt.Fprintf(out, "\n%s  %s  %s\n", v.City, v.Temperature, v.Description)
		if v.IconURL != "" {
			fmt.Fprintf(out, "  icon: %s\n", v.IconURL)
		}
		if len(v.Forecast) > 0 {
			fmt.Fprintln(out, "Forecast:")
			for _, day := range v.Forecast {
				fmt.Fprintf(out, "  %-3s %6s  %s\n", day.Day, day.Temperature, day.Description)
			}
		}
	}

	writeRecent(out, v.Recent, false)
}

func writeRecent(out io.Writer, items []string, numbered bool) {
	if len(items) == 0 {
		if numbered {
			fmt.Fprintln(out, "No recent searches.")
		}
		return
	}
	if !numbered {
		fmt.Fprintf(out, "Recent: %s\n", strings.Join(items, ", "))
		return
	}
	for i, city := range items {
		fmt.Fprintf(out, "%d. %s\n", i+1, city)
	}
}
