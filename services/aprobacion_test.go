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

func TestAprobarAsignaFIFO(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	d1 := deudaDePrueba(t, alm, m.ID, "50.00", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	d2 := deudaDePrueba(t, alm, m.ID, "35.00", time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	d3 := deudaDePrueba(t, alm, m.ID, "100.00", time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	pago := pagoEnRevision(t, alm, m.ID, "80.00", models.MetodoEfectivo, time.Now())

	res, err := aprobador.Aprobar(ctx, pago.ID, "operador-1")
	require.NoError(t, err)
	require.Len(t, res.Asignaciones, 2)
	assert.Equal(t, d1.ID, res.Asignaciones[0].DeudaID)
	assert.Equal(t, "50.00", res.Asignaciones[0].Monto.StringFixed(2))
	assert.Equal(t, d2.ID, res.Asignaciones[1].DeudaID)
	assert.Equal(t, "30.00", res.Asignaciones[1].Monto.StringFixed(2))
	assert.True(t, res.Excedente.IsZero())

	// La más antigua queda pagada, la segunda parcial, la tercera intacta.
	rec1, err := alm.ObtenerDeuda(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeudaPagada, rec1.Estado)
	assert.True(t, rec1.Saldo.IsZero())

	rec2, err := alm.ObtenerDeuda(ctx, d2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeudaParcial, rec2.Estado)
	assert.Equal(t, "5.00", rec2.Saldo.StringFixed(2))

	rec3, err := alm.ObtenerDeuda(ctx, d3.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeudaPendiente, rec3.Estado)

	// Sigue habiendo deuda abierta: el miembro no se habilita.
	miembro, err := alm.ObtenerMiembro(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CondicionInhabil, miembro.Condicion)
	assert.Nil(t, res.NuevaCondicion)
}

func TestAprobarSaldaTodoYHabilita(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	deudaDePrueba(t, alm, m.ID, "120.00", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	pago := pagoEnRevision(t, alm, m.ID, "120.00", models.MetodoYape, time.Now())

	res, err := aprobador.Aprobar(ctx, pago.ID, "operador-1")
	require.NoError(t, err)
	require.NotNil(t, res.NuevaCondicion)
	assert.Equal(t, models.CondicionHabil, *res.NuevaCondicion)

	miembro, err := alm.ObtenerMiembro(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CondicionHabil, miembro.Condicion)
	assert.Nil(t, miembro.HabilidadVence)

	// La emisión del certificado queda encolada, no emitida.
	pendientes, err := alm.EmisionesPendientes(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pendientes, 1)
	assert.Equal(t, m.ID, pendientes[0].MiembroID)
	assert.Equal(t, pago.ID, pendientes[0].PagoID)

	require.NotNil(t, buscarEvento(t, alm, m.ID, "cambio_condicion"))
}

func TestAprobarReportaExcedenteSinAplicarlo(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	d := deudaDePrueba(t, alm, m.ID, "50.00", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	pago := pagoEnRevision(t, alm, m.ID, "80.00", models.MetodoEfectivo, time.Now())

	res, err := aprobador.Aprobar(ctx, pago.ID, "operador-1")
	require.NoError(t, err)
	assert.Equal(t, "30.00", res.Excedente.StringFixed(2))

	// El saldo nunca queda negativo.
	rec, err := alm.ObtenerDeuda(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, rec.Saldo.IsZero())

	ev := buscarEvento(t, alm, m.ID, "excedente_pago")
	require.NotNil(t, ev)
	assert.Contains(t, ev.Descripcion, "30.00")
}

func TestReaprobarEsNoOp(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	d := deudaDePrueba(t, alm, m.ID, "50.00", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	pago := pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoEfectivo, time.Now())

	_, err := aprobador.Aprobar(ctx, pago.ID, "operador-1")
	require.NoError(t, err)

	res, err := aprobador.Aprobar(ctx, pago.ID, "operador-2")
	require.NoError(t, err)
	assert.True(t, res.YaAprobado)
	assert.Empty(t, res.Asignaciones)

	// Sin doble asignación.
	rec, err := alm.ObtenerDeuda(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", rec.Saldo.StringFixed(2))
}

func TestAprobarPagoRechazadoEsConflicto(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	pago := pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoEfectivo, time.Now())
	require.NoError(t, aprobador.Rechazar(ctx, pago.ID, "operador-1", "comprobante ilegible"))

	_, err := aprobador.Aprobar(ctx, pago.ID, "operador-2")
	var estado *ErrEstadoInvalido
	require.ErrorAs(t, err, &estado)
	assert.Equal(t, models.PagoRechazado, estado.Actual)
}

func TestRechazar(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	pago := pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoEfectivo, time.Now())

	require.NoError(t, aprobador.Rechazar(ctx, pago.ID, "operador-1", "monto no coincide"))
	rec, err := alm.ObtenerPago(ctx, pago.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PagoRechazado, rec.Estado)
	require.NotNil(t, rec.MotivoRechazo)
	assert.Equal(t, "monto no coincide", *rec.MotivoRechazo)

	// Rechazar dos veces es no-op.
	require.NoError(t, aprobador.Rechazar(ctx, pago.ID, "operador-2", "otro motivo"))

	// Rechazar un pago aprobado es conflicto.
	otro := pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoEfectivo, time.Now())
	_, err = aprobador.Aprobar(ctx, otro.ID, "operador-1")
	require.NoError(t, err)
	err = aprobador.Rechazar(ctx, otro.ID, "operador-1", "tarde")
	var estado *ErrEstadoInvalido
	require.ErrorAs(t, err, &estado)
}

func TestAprobarPagoInexistente(t *testing.T) {
	alm := repository.NuevaMemoria()
	aprobador := NuevoAprobador(alm, models.PoliticaPorDefecto())
	_, err := aprobador.Aprobar(context.Background(), 999, "operador-1")
	assert.ErrorIs(t, err, ErrPagoNoEncontrado)
}
