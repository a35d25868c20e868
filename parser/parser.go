// Package parser extrae hechos estructurados de las notificaciones de correo
// que envían los bancos. No toca almacenamiento: la deduplicación por id de
// mensaje externo ocurre en la frontera de ingesta.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HechoBancario es el resultado uniforme de todos los extractores.
type HechoBancario struct {
	Banco           string
	Canal           string
	TipoOperacion   string
	Monto           decimal.Decimal
	Moneda          string
	FechaOperacion  *time.Time
	CodigoOperacion *string
	Remitente       *string
	Extracto        string
}

// ErrNoParseado indica que el mensaje no pudo convertirse en un hecho.
// El llamador lo pone en cuarentena; nunca debe tumbar un lote.
type ErrNoParseado struct {
	Remitente string
	Razon     string
}

func (e *ErrNoParseado) Error() string {
	return fmt.Sprintf("notificación no parseada (remitente %s): %s", e.Remitente, e.Razon)
}

// Parsear despacha por la identidad del remitente a la rutina del banco
// correspondiente. Un remitente desconocido devuelve *ErrNoParseado, nunca
// entra en pánico.
func Parsear(remitente, asunto, cuerpo string) (*HechoBancario, error) {
	dominio := strings.ToLower(strings.TrimSpace(remitente))
	texto := limpiarTexto(cuerpo)

	switch {
	case strings.Contains(dominio, "interbank.pe"):
		return parsearInterbank(remitente, asunto, texto)
	case strings.Contains(dominio, "bcp.com.pe"), strings.Contains(dominio, "viabcp.com"):
		return parsearBCP(remitente, asunto, texto)
	case strings.Contains(dominio, "bbva.pe"), strings.Contains(dominio, "bbva.com"):
		return parsearBBVA(remitente, asunto, texto)
	case strings.Contains(dominio, "scotiabank.com.pe"):
		return parsearScotiabank(remitente, asunto, texto)
	default:
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "remitente no reconocido"}
	}
}

var (
	reEtiquetasHTML = regexp.MustCompile(`<[^>]*>`)
	reEspacios      = regexp.MustCompile(`\s+`)
)

// limpiarTexto quita marcado HTML y colapsa espacios en blanco.
func limpiarTexto(cuerpo string) string {
	s := reEtiquetasHTML.ReplaceAllString(cuerpo, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = reEspacios.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

const maxExtracto = 300

// extracto devuelve un recorte acotado del cuerpo limpio, para auditoría.
func extracto(texto string) string {
	if len(texto) > maxExtracto {
		return texto[:maxExtracto]
	}
	return texto
}

// extraer aplica una expresión anclada y devuelve el primer grupo capturado.
func extraer(re *regexp.Regexp, texto string) (string, bool) {
	m := re.FindStringSubmatch(texto)
	if len(m) < 2 {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// parsearMonto convierte "1,234.56" en decimal exacto.
func parsearMonto(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

// monedaDesdeSimbolo mapea el símbolo monetario del correo al código ISO.
func monedaDesdeSimbolo(simbolo string) string {
	switch strings.TrimSpace(simbolo) {
	case "US$", "$", "USD":
		return "USD"
	default:
		return "PEN"
	}
}

var meses = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "set": time.September,
	"sep": time.September, "oct": time.October, "nov": time.November,
	"dic": time.December,
	// inglés, por si el banco envía la plantilla en inglés
	"jan": time.January, "apr": time.April, "aug": time.August,
	"dec": time.December,
}

// parsearFechaCorta interpreta "DD/MM/YYYY HH:MM:SS" (hora opcional).
func parsearFechaCorta(s string) (time.Time, error) {
	for _, layout := range []string{"02/01/2006 15:04:05", "02/01/2006 15:04", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha no reconocida: %q", s)
}

var reFechaLarga = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,4})\.?\s+(\d{4})\s+(\d{1,2}):(\d{2})\s*(AM|PM|am|pm)?$`)

// parsearFechaLarga interpreta "DD Mon YYYY HH:MM AM/PM" con meses en
// español o inglés.
func parsearFechaLarga(s string) (time.Time, error) {
	m := reFechaLarga.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("fecha no reconocida: %q", s)
	}
	mes, ok := meses[strings.ToLower(m[2])[:3]]
	if !ok {
		return time.Time{}, fmt.Errorf("mes no reconocido: %q", m[2])
	}
	dia := atoi(m[1])
	anio := atoi(m[3])
	hora := atoi(m[4])
	minuto := atoi(m[5])
	switch strings.ToUpper(m[6]) {
	case "PM":
		if hora < 12 {
			hora += 12
		}
	case "AM":
		if hora == 12 {
			hora = 0
		}
	}
	return time.Date(anio, mes, dia, hora, minuto, 0, 0, time.UTC), nil
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
