package parser

import "regexp"

// Plantilla Scotiabank para abonos en cuenta:
//
//	"Monto abonado: S/ 80.00"
//	"Fecha: 02/05/2025 18:40:10"
//	"Operación N°: 987654"
var (
	reScotiaMonto     = regexp.MustCompile(`Monto abonado:\s*(S/|US\$)\s*([\d,]+\.\d{2})`)
	reScotiaFecha     = regexp.MustCompile(`Fecha:\s*(\d{2}/\d{2}/\d{4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?)`)
	reScotiaOperacion = regexp.MustCompile(`Operación N°:\s*(\w+)`)
)

func parsearScotiabank(remitente, asunto, texto string) (*HechoBancario, error) {
	m := reScotiaMonto.FindStringSubmatch(texto)
	if m == nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "Scotiabank: no se encontró el monto abonado"}
	}
	monto, err := parsearMonto(m[2])
	if err != nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "Scotiabank: monto ilegible: " + m[2]}
	}

	hecho := &HechoBancario{
		Banco:         "scotiabank",
		Canal:         "scotiabank/transferencia",
		TipoOperacion: "transferencia_recibida",
		Monto:         monto,
		Moneda:        monedaDesdeSimbolo(m[1]),
		Extracto:      extracto(texto),
	}
	if s, ok := extraer(reScotiaFecha, texto); ok {
		f, err := parsearFechaCorta(s)
		if err != nil {
			return nil, &ErrNoParseado{Remitente: remitente, Razon: "Scotiabank: " + err.Error()}
		}
		hecho.FechaOperacion = &f
	}
	if s, ok := extraer(reScotiaOperacion, texto); ok {
		hecho.CodigoOperacion = &s
	}
	return hecho, nil
}
