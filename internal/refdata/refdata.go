// Package refdata serves the static country and timezone tables used by
// user profiles.
package refdata

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Country struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Timezones []string `json:"timezones"`
}

type Timezone struct {
	Name   string `json:"name"`
	Offset string `json:"offset"` // e.g. UTC+05:30, at the time of the request
}

var (
	loadOnce  sync.Once
	countries []Country
	byCode    map[string]Country
	zones     map[string]bool
)

func load() {
	namer := display.English.Regions()
	byCode = make(map[string]Country, len(countryZones))
	zones = make(map[string]bool)

	for code, tzs := range countryZones {
		region, err := language.ParseRegion(code)
		if err != nil {
			continue
		}
		name := namer.Name(region)
		if name == "" {
			name = code
		}
		c := Country{Code: code, Name: name, Timezones: tzs}
		byCode[code] = c
		countries = append(countries, c)
		for _, tz := range tzs {
			zones[tz] = true
		}
	}
	zones["UTC"] = true

	sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })
}

// Countries returns every known country sorted by English name.
func Countries() []Country {
	loadOnce.Do(load)
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

func LookupCountry(code string) (Country, bool) {
	loadOnce.Do(load)
	c, ok := byCode[strings.ToUpper(code)]
	return c, ok
}

func IsCountry(code string) bool {
	_, ok := LookupCountry(code)
	return ok
}

// IsTimezone reports whether name is one of the tabled IANA zones.
func IsTimezone(name string) bool {
	loadOnce.Do(load)
	return zones[name]
}

// Timezones lists the zones of country, or every zone when country is
// empty, with their current UTC offsets.
func Timezones(country string, now time.Time) ([]Timezone, error) {
	loadOnce.Do(load)

	var names []string
	if country != "" {
		c, ok := LookupCountry(country)
		if !ok {
			return nil, fmt.Errorf("unknown country %q", country)
		}
		names = c.Timezones
	} else {
		for name := range zones {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	out := make([]Timezone, 0, len(names))
	for _, name := range names {
		loc, err := time.LoadLocation(name)
		if err != nil {
			continue
		}
		out = append(out, Timezone{Name: name, Offset: formatOffset(now.In(loc))})
	}
	return out, nil
}

func formatOffset(t time.Time) string {
	_, secs := t.Zone()
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}
