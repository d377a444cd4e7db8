package extraction

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"desmoines-weekly-events/internal/models"
)

var tipLine = regexp.MustCompile(`^(?:[*\-+•]|\d+\.)[ \t]+(.+)$`)

// ParsePlanningTips collects the bullet lines of a planning section, in
// order, with bold markers removed.
func ParsePlanningTips(body string) []string {
	var tips []string
	for _, line := range strings.Split(body, "\n") {
		m := tipLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if tip := strings.TrimSpace(strings.ReplaceAll(m[1], "**", "")); tip != "" {
			tips = append(tips, tip)
		}
	}
	return tips
}

// Weather thresholds
const (
	HeatAdvisoryTemp = 85 // °F
	RainAlertChance  = 50 // percent
)

// WeatherTips derives planning tips from a forecast
func WeatherTips(forecast []models.WeatherDay) []string {
	if len(forecast) == 0 {
		return []string{"**Weather**: Weather forecast unavailable. Check local weather services before heading out."}
	}

	var tips []string
	if hot := daysWhere(forecast, func(d models.WeatherDay) bool { return d.Temp.Max > HeatAdvisoryTemp }); len(hot) > 0 {
		tips = append(tips, fmt.Sprintf("**Heat Advisory**: Temperatures will reach above %d°F on %s. Stay hydrated and wear sunscreen for outdoor events.",
			HeatAdvisoryTemp, strings.Join(hot, ", ")))
	}
	if wet := daysWhere(forecast, func(d models.WeatherDay) bool { return d.Precipitation > RainAlertChance }); len(wet) > 0 {
		tips = append(tips, fmt.Sprintf("**Rain Alert**: High chance of precipitation on %s. Consider bringing an umbrella or rain jacket for outdoor activities.",
			strings.Join(wet, ", ")))
	}

	var lowSum, highSum float64
	for _, d := range forecast {
		lowSum += float64(d.Temp.Min)
		highSum += float64(d.Temp.Max)
	}
	n := float64(len(forecast))
	tips = append(tips, fmt.Sprintf("**Weekly Weather**: Expect temperatures ranging from %d°F to %d°F this week. %s conditions expected for most of the week.",
		roundHalfUp(lowSum/n), roundHalfUp(highSum/n), forecast[0].Weather))
	return tips
}

func daysWhere(forecast []models.WeatherDay, pred func(models.WeatherDay) bool) []string {
	var days []string
	for _, d := range forecast {
		if pred(d) {
			days = append(days, strings.TrimSpace(strings.SplitN(d.Date, ",", 2)[0]))
		}
	}
	return days
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
