package nfe

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// dateLayouts se prueban en orden; el primero que parsea gana
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"20060102150405",
	"20060102",
	"2006-01-02",
}

var (
	// offset al final de un componente de hora: Z, -03:00, +0000
	timezoneSuffix = regexp.MustCompile(`(\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?)(?:Z|[+-]\d{2}:?\d{2})$`)
	yearOnly       = regexp.MustCompile(`^\d{4}$`)
	yearMonth      = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

// DateParser normaliza las variantes de fecha encontradas en las NFe
type DateParser struct {
	now    func() time.Time
	logger *logrus.Logger
}

// NewDateParser crea un parser que usa el reloj del sistema
func NewDateParser(logger *logrus.Logger) *DateParser {
	return &DateParser{now: time.Now, logger: logger}
}

// WithClock retorna una copia del parser con otro reloj
func (p *DateParser) WithClock(now func() time.Time) *DateParser {
	return &DateParser{now: now, logger: p.logger}
}

// Parse retorna (zero, false) si raw está vacío. Un valor no vacío que no
// coincide con ningún formato produce un warning y la hora actual: una fecha
// ilegible no bloquea la importación, pero en los reportes se confunde con hoy.
func (p *DateParser) Parse(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	value = timezoneSuffix.ReplaceAllString(value, "$1")

	if yearOnly.MatchString(value) {
		year, _ := strconv.Atoi(value)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	if m := yearMonth.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	now := p.now().UTC()
	p.logger.WithFields(logrus.Fields{
		"value":    raw,
		"fallback": now,
	}).Warn("Unparseable NFe date, using current time")
	return now, true
}

// ParseOrNow es Parse con la política de la fecha de emisión: ausente usa la hora actual
func (p *DateParser) ParseOrNow(raw string) time.Time {
	if t, ok := p.Parse(raw); ok {
		return t
	}
	return p.now().UTC()
}

// ParseOptional es Parse con la política de campos opcionales: ausente retorna nil
func (p *DateParser) ParseOptional(raw string) *time.Time {
	if t, ok := p.Parse(raw); ok {
		return &t
	}
	return nil
}
