package parser

import "regexp"

// Plantilla BBVA para transferencias recibidas:
//
//	"Importe: S/ 120.50"
//	"Fecha de operación: 02/05/2025 09:15"
//	"Número de operación: T0012345"
var (
	reBBVAImporte   = regexp.MustCompile(`Importe:\s*(S/|US\$)\s*([\d,]+\.\d{2})`)
	reBBVAFecha     = regexp.MustCompile(`Fecha de operación:\s*(\d{2}/\d{2}/\d{4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?)`)
	reBBVAOperacion = regexp.MustCompile(`Número de operación:\s*(\w+)`)
	reBBVAOrdenante = regexp.MustCompile(`Ordenante:\s*([^:]+?)(?:\s+(?:Número|Fecha|Importe)|$)`)
)

func parsearBBVA(remitente, asunto, texto string) (*HechoBancario, error) {
	m := reBBVAImporte.FindStringSubmatch(texto)
	if m == nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "BBVA: no se encontró el importe"}
	}
	monto, err := parsearMonto(m[2])
	if err != nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "BBVA: importe ilegible: " + m[2]}
	}

	hecho := &HechoBancario{
		Banco:         "bbva",
		Canal:         "bbva/transferencia",
		TipoOperacion: "transferencia_recibida",
		Monto:         monto,
		Moneda:        monedaDesdeSimbolo(m[1]),
		Extracto:      extracto(texto),
	}
	if s, ok := extraer(reBBVAFecha, texto); ok {
		f, err := parsearFechaCorta(s)
		if err != nil {
			return nil, &ErrNoParseado{Remitente: remitente, Razon: "BBVA: " + err.Error()}
		}
		hecho.FechaOperacion = &f
	}
	if s, ok := extraer(reBBVAOperacion, texto); ok {
		hecho.CodigoOperacion = &s
	}
	if s, ok := extraer(reBBVAOrdenante, texto); ok {
		hecho.Remitente = &s
	}
	return hecho, nil
}
