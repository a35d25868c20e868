package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/models"
	"backend/repository"
)

const cuerpoYapeBCP = `<html><body>¡Te yapearon! Monto: S/ 27.00
De: MARIA TORRES Nro. de operación: 98765432
Fecha: 02 may 2026 03:10 PM</body></html>`

func armarIngestor(alm repository.Almacen) (*Ingestor, *BuzonMemoria) {
	buzon := NuevoBuzonMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())
	return NuevoIngestor(alm, buzon, conciliador), buzon
}

func TestCicloIngiereYConcilia(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	ingestor, buzon := armarIngestor(alm)

	// Un pago aprobado espera su respaldo bancario.
	m := miembroDePrueba(t, alm, models.CondicionHabil)
	pago := pagoEnRevision(t, alm, m.ID, "27.00", models.MetodoYape, time.Date(2026, 5, 2, 15, 5, 0, 0, time.UTC))
	aprobarDirecto(t, alm, pago)

	buzon.Encolar(MensajeCrudo{
		MensajeExternoID: "gmail-0001",
		Remitente:        "notificaciones@bcp.com.pe",
		Asunto:           "Te yapearon",
		Cuerpo:           cuerpoYapeBCP,
	})

	ingeridas, cuarentena, err := ingestor.Ciclo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ingeridas)
	assert.Equal(t, 0, cuarentena)

	notifs, err := alm.ListarNotificaciones(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	n := notifs[0]
	assert.Equal(t, "bcp", n.Banco)
	assert.Equal(t, "yape_recibido", n.TipoOperacion)
	assert.Equal(t, "27.00", n.Monto.StringFixed(2))
	assert.Equal(t, models.NotifConciliado, n.Estado)
	require.NotNil(t, n.PagoID)
	assert.Equal(t, pago.ID, *n.PagoID)
}

func TestCicloDescartaDuplicados(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	ingestor, buzon := armarIngestor(alm)

	msg := MensajeCrudo{
		MensajeExternoID: "gmail-0002",
		Remitente:        "notificaciones@bcp.com.pe",
		Asunto:           "Te yapearon",
		Cuerpo:           cuerpoYapeBCP,
	}
	buzon.Encolar(msg)
	_, _, err := ingestor.Ciclo(ctx)
	require.NoError(t, err)

	// El mismo mensaje reaparece en la siguiente lectura del buzón.
	buzon.Encolar(msg)
	ingeridas, cuarentena, err := ingestor.Ciclo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ingeridas)
	assert.Equal(t, 0, cuarentena)

	notifs, err := alm.ListarNotificaciones(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, notifs, 1)
}

func TestCicloPoneEnCuarentenaLoIlegible(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	ingestor, buzon := armarIngestor(alm)

	buzon.Encolar(MensajeCrudo{
		MensajeExternoID: "gmail-0003",
		Remitente:        "promociones@tienda.example.com",
		Asunto:           "Ofertas de mayo",
		Cuerpo:           "50% de descuento en todo",
	})
	buzon.Encolar(MensajeCrudo{
		MensajeExternoID: "gmail-0004",
		Remitente:        "notificaciones@bcp.com.pe",
		Asunto:           "Te yapearon",
		Cuerpo:           "cuerpo sin monto reconocible",
	})

	ingeridas, cuarentena, err := ingestor.Ciclo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ingeridas)
	assert.Equal(t, 2, cuarentena)

	notifs, err := alm.ListarNotificaciones(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, notifs)

	// Cada mensaje en cuarentena queda auditado.
	eventos, err := alm.ListarEventos(ctx, 0)
	require.NoError(t, err)
	cuarentenas := 0
	for _, e := range eventos {
		if e.Accion == "notificacion_no_parseada" {
			cuarentenas++
			assert.False(t, e.Exito)
		}
	}
	assert.Equal(t, 2, cuarentenas)
}

func TestCicloUsaFechaCabeceraComoRespaldo(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	ingestor, buzon := armarIngestor(alm)

	cabecera := time.Date(2026, 5, 2, 15, 12, 0, 0, time.UTC)
	buzon.Encolar(MensajeCrudo{
		MensajeExternoID: "gmail-0005",
		Remitente:        "notificaciones@bcp.com.pe",
		Asunto:           "Constancia de transferencia",
		Cuerpo:           "Transferencia recibida Monto: S/ 150.00 Nro. de operación: 555111",
		FechaCabecera:    &cabecera,
	})

	ingeridas, _, err := ingestor.Ciclo(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ingeridas)

	notifs, err := alm.ListarNotificaciones(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "transferencia_recibida", notifs[0].TipoOperacion)
	require.NotNil(t, notifs[0].FechaOperacion)
	assert.True(t, notifs[0].FechaOperacion.Equal(cabecera))
}
