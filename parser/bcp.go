package parser

import (
	"regexp"
	"strings"
)

// Plantillas del BCP. Los yapeos llegan con fecha larga
// ("02 May 2025 03:10 PM"); las transferencias con fecha corta.
//
//	"¡Te yapearon! Monto: S/ 27.00"
//	"Fecha: 02 may 2025 03:10 PM"
//	"Nro. de operación: 12345678"
var (
	reBCPMonto     = regexp.MustCompile(`Monto:\s*(S/|US\$)\s*([\d,]+\.\d{2})`)
	reBCPFecha     = regexp.MustCompile(`Fecha:\s*(\d{1,2}\s+[A-Za-z]{3,4}\.?\s+\d{4}\s+\d{1,2}:\d{2}\s*(?:AM|PM|am|pm)?|\d{2}/\d{2}/\d{4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?)`)
	reBCPOperacion = regexp.MustCompile(`Nro\. de operación:\s*(\w+)`)
	reBCPDe        = regexp.MustCompile(`De:\s*([^:]+?)(?:\s+(?:Nro|Fecha|Monto)|$)`)
)

func parsearBCP(remitente, asunto, texto string) (*HechoBancario, error) {
	m := reBCPMonto.FindStringSubmatch(texto)
	if m == nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "BCP: no se encontró el monto"}
	}
	monto, err := parsearMonto(m[2])
	if err != nil {
		return nil, &ErrNoParseado{Remitente: remitente, Razon: "BCP: monto ilegible: " + m[2]}
	}

	hecho := &HechoBancario{
		Banco:    "bcp",
		Monto:    monto,
		Moneda:   monedaDesdeSimbolo(m[1]),
		Extracto: extracto(texto),
	}
	if strings.Contains(strings.ToLower(texto), "yape") || strings.Contains(strings.ToLower(asunto), "yape") {
		hecho.Canal = "bcp/yape"
		hecho.TipoOperacion = "yape_recibido"
	} else {
		hecho.Canal = "bcp/transferencia"
		hecho.TipoOperacion = "transferencia_recibida"
	}

	if s, ok := extraer(reBCPFecha, texto); ok {
		f, err := parsearFechaCorta(s)
		if err != nil {
			f, err = parsearFechaLarga(s)
		}
		if err != nil {
			return nil, &ErrNoParseado{Remitente: remitente, Razon: "BCP: " + err.Error()}
		}
		hecho.FechaOperacion = &f
	}
	if s, ok := extraer(reBCPOperacion, texto); ok {
		hecho.CodigoOperacion = &s
	}
	if s, ok := extraer(reBCPDe, texto); ok {
		hecho.Remitente = &s
	}
	return hecho, nil
}
