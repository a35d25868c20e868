package utils

import (
	"fmt"
	"time"
)

// FormatoPeriodo es el formato canónico de un periodo mensual.
const FormatoPeriodo = "2006-01"

// Periodo devuelve el periodo "YYYY-MM" de una fecha.
func Periodo(t time.Time) string {
	return t.Format(FormatoPeriodo)
}

// UltimoDiaDelMes devuelve cuántos días tiene el mes de t.
func UltimoDiaDelMes(t time.Time) int {
	primero := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return primero.AddDate(0, 1, -1).Day()
}

// ProximoDiaDeMes devuelve la próxima ocurrencia del día de mes indicado,
// estrictamente posterior a hoy, con ajuste por meses cortos.
func ProximoDiaDeMes(hoy time.Time, dia int) time.Time {
	candidato := time.Date(hoy.Year(), hoy.Month(), 1, 0, 0, 0, 0, hoy.Location())
	d := dia
	if ultimo := UltimoDiaDelMes(candidato); d > ultimo {
		d = ultimo
	}
	candidato = time.Date(candidato.Year(), candidato.Month(), d, 0, 0, 0, 0, hoy.Location())
	if candidato.After(hoy) {
		return candidato
	}
	siguiente := time.Date(hoy.Year(), hoy.Month()+1, 1, 0, 0, 0, 0, hoy.Location())
	d = dia
	if ultimo := UltimoDiaDelMes(siguiente); d > ultimo {
		d = ultimo
	}
	return time.Date(siguiente.Year(), siguiente.Month(), d, 0, 0, 0, 0, hoy.Location())
}

// FinDePeriodo devuelve el último instante del mes de un periodo "YYYY-MM".
func FinDePeriodo(periodo string) (time.Time, error) {
	inicio, err := time.Parse(FormatoPeriodo, periodo)
	if err != nil {
		return time.Time{}, fmt.Errorf("periodo inválido %q: %w", periodo, err)
	}
	return inicio.AddDate(0, 1, 0).Add(-time.Second), nil
}

// PeriodosEntre genera los periodos mensuales desde el mes de "desde" hasta el
// mes de "hasta", inclusive. Devuelve vacío si hasta es anterior a desde.
func PeriodosEntre(desde, hasta time.Time) []string {
	var periodos []string
	p := time.Date(desde.Year(), desde.Month(), 1, 0, 0, 0, 0, time.UTC)
	fin := time.Date(hasta.Year(), hasta.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !p.After(fin) {
		periodos = append(periodos, p.Format(FormatoPeriodo))
		p = p.AddDate(0, 1, 0)
	}
	return periodos
}
