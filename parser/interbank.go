package parser

import "regexp"

// Plantilla de Interbank para abonos Plin:
//
//	"Monto recibido: S/ 15.00"
//	"Fecha y hora: 02/05/2025 14:33:21"
//	"De: JUAN PEREZ"
//	"Código de operación: 00123456"
var (
	reInterbankMonto  = regexp.MustCompile(`Monto recibido:\s*(S/|US\$)\s*([\d,]+\.\d{2})`)
	reInterbankFecha  = regexp.MustCompile(`Fecha y hora:\s*(\d{2}/\d{2}/\d{4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?)`)
	reInterbankDe     = regexp.MustCompile(`De:\s*([^:]+?)(?:\s+(?:Código|Fecha|Monto)|$)`)
	reInterbankCodigo = regexp.MustCompile(`Código de operación:\s*(\w+)`)
)

func parsearInterbank(remitente, asunto, texto string) (*HechoBancario, error) {
	m := reInterbankMonto.FindStringSubmatch(texto)
	if m == nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "Interbank: no se encontró el monto recibido"}
	}
	monto, err := parsearMonto(m[2])
	if err != nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "Interbank: monto ilegible: " + m[2]}
	}

	hecho := &HechoBancario{
		Banco:         "interbank",
		Canal:         "interbank/plin",
		TipoOperacion: "plin_recibido",
		Monto:         monto,
		Moneda:        monedaDesdeSimbolo(m[1]),
		Extracto:      extracto(texto),
	}

	if s, ok := extraer(reInterbankFecha, texto); ok {
		f, err := parsearFechaCorta(s)
		if err != nil {
			return nil, &ErrNoParseado{Remitente: remitente, Razon: "Interbank: " + err.Error()}
		}
		hecho.FechaOperacion = &f
	}
	if s, ok := extraer(reInterbankCodigo, texto); ok {
		hecho.CodigoOperacion = &s
	}
	if s, ok := extraer(reInterbankDe, texto); ok {
		hecho.Remitente = &s
	}
	return hecho, nil
}
