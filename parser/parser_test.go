package parser

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsearInterbankPlin(t *testing.T) {
	cuerpo := `<html><body><p>Plin - ¡Recibiste un pago!</p>
	<p>Monto recibido: S/ 15.00</p>
	<p>De: JUAN PEREZ QUISPE</p>
	<p>Código de operación: 00123456</p>
	<p>Fecha y hora: 02/05/2025 14:33:21</p></body></html>`

	hecho, err := Parsear("notificaciones@interbank.pe", "Recibiste un Plin", cuerpo)
	require.NoError(t, err)

	assert.Equal(t, "interbank", hecho.Banco)
	assert.Equal(t, "interbank/plin", hecho.Canal)
	assert.Equal(t, "plin_recibido", hecho.TipoOperacion)
	assert.True(t, hecho.Monto.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, "PEN", hecho.Moneda)
	require.NotNil(t, hecho.FechaOperacion)
	assert.Equal(t, time.Date(2025, time.May, 2, 14, 33, 21, 0, time.UTC), *hecho.FechaOperacion)
	require.NotNil(t, hecho.CodigoOperacion)
	assert.Equal(t, "00123456", *hecho.CodigoOperacion)
	require.NotNil(t, hecho.Remitente)
	assert.Equal(t, "JUAN PEREZ QUISPE", *hecho.Remitente)
}

func TestParsearBCPYapeFechaLarga(t *testing.T) {
	cuerpo := `¡Te yapearon! Monto: S/ 27.00 De: MARIA LOPEZ Nro. de operación: 7654321 Fecha: 02 may 2025 03:10 PM`

	hecho, err := Parsear("yape@bcp.com.pe", "Constancia Yape", cuerpo)
	require.NoError(t, err)

	assert.Equal(t, "bcp", hecho.Banco)
	assert.Equal(t, "yape_recibido", hecho.TipoOperacion)
	assert.True(t, hecho.Monto.Equal(decimal.RequireFromString("27.00")))
	require.NotNil(t, hecho.FechaOperacion)
	assert.Equal(t, time.Date(2025, time.May, 2, 15, 10, 0, 0, time.UTC), *hecho.FechaOperacion)
}

func TestParsearBCPTransferenciaSinYape(t *testing.T) {
	cuerpo := `Constancia de transferencia. Monto: US$ 1,250.00 Fecha: 10/06/2025 09:00 Nro. de operación: 555`

	hecho, err := Parsear("avisos@viabcp.com", "Constancia de operación", cuerpo)
	require.NoError(t, err)

	assert.Equal(t, "transferencia_recibida", hecho.TipoOperacion)
	assert.Equal(t, "USD", hecho.Moneda)
	assert.True(t, hecho.Monto.Equal(decimal.RequireFromString("1250.00")))
}

func TestParsearBBVA(t *testing.T) {
	cuerpo := `Transferencia recibida. Importe: S/ 120.50 Ordenante: PEDRO RAMOS Número de operación: T0012345 Fecha de operación: 02/05/2025 09:15`

	hecho, err := Parsear("avisos@bbva.pe", "Abono en cuenta", cuerpo)
	require.NoError(t, err)
	assert.Equal(t, "bbva", hecho.Banco)
	assert.True(t, hecho.Monto.Equal(decimal.RequireFromString("120.50")))
	require.NotNil(t, hecho.CodigoOperacion)
	assert.Equal(t, "T0012345", *hecho.CodigoOperacion)
}

func TestParsearScotiabankSinFecha(t *testing.T) {
	// La fecha es opcional: el conciliador usa la ventana de las últimas 24h.
	hecho, err := Parsear("alertas@scotiabank.com.pe", "Abono", "Monto abonado: S/ 80.00 Operación N°: 987654")
	require.NoError(t, err)
	assert.Nil(t, hecho.FechaOperacion)
	require.NotNil(t, hecho.CodigoOperacion)
	assert.Equal(t, "987654", *hecho.CodigoOperacion)
}

func TestParsearFallosTipificados(t *testing.T) {
	tests := []struct {
		name      string
		remitente string
		cuerpo    string
	}{
		{"remitente desconocido", "spam@example.com", "Monto recibido: S/ 10.00"},
		{"interbank sin monto", "alertas@interbank.pe", "Recibiste un pago de tu contacto"},
		{"bcp fecha ilegible", "yape@bcp.com.pe", "Monto: S/ 5.00 Fecha: 99/99/9999 99:99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hecho, err := Parsear(tt.remitente, "", tt.cuerpo)
			assert.Nil(t, hecho)
			var noParseado *ErrNoParseado
			assert.ErrorAs(t, err, &noParseado)
			assert.NotEmpty(t, noParseado.Razon)
		})
	}
}

func TestLimpiarTexto(t *testing.T) {
	assert.Equal(t, "Monto: S/ 1.00", limpiarTexto("<div>\n  Monto:&nbsp;S/  1.00\t</div>"))
}
