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

func notificacionDePrueba(t *testing.T, alm repository.Almacen, monto string, tipo string, operacion time.Time) *models.NotificacionBancaria {
	t.Helper()
	n := &models.NotificacionBancaria{
		MensajeExternoID: "msg-" + monto + "-" + operacion.Format("150405"),
		Banco:            "bcp",
		Canal:            "bcp/yape",
		TipoOperacion:    tipo,
		Monto:            requireDecimal(t, monto),
		Moneda:           "PEN",
		FechaOperacion:   &operacion,
		Estado:           models.NotifPendiente,
		FechaCreacion:    operacion,
	}
	require.NoError(t, alm.CrearNotificacion(context.Background(), n))
	return n
}

func aprobarDirecto(t *testing.T, alm repository.Almacen, p *models.Pago) {
	t.Helper()
	ahora := time.Now()
	revisor := "operador-1"
	p.Estado = models.PagoAprobado
	p.FechaRevision = &ahora
	p.RevisorID = &revisor
	require.NoError(t, alm.ActualizarPago(context.Background(), p))
}

func TestConciliarEnlazaCandidatoUnico(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	conciliador.Ahora = func() time.Time { return operacion.Add(5 * time.Minute) }

	m := miembroDePrueba(t, alm, models.CondicionHabil)
	pago := pagoEnRevision(t, alm, m.ID, "15.00", models.MetodoYape, operacion.Add(-10*time.Minute))
	aprobarDirecto(t, alm, pago)

	n := notificacionDePrueba(t, alm, "15.00", "yape_recibido", operacion)
	res, err := conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifConciliado, res.Estado)
	require.NotNil(t, res.PagoID)
	assert.Equal(t, pago.ID, *res.PagoID)
	require.NotNil(t, res.ResueltoPor)
	assert.Equal(t, "auto", *res.ResueltoPor)
}

func TestConciliarSinCandidatosQuedaSinMatch(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := miembroDePrueba(t, alm, models.CondicionHabil)
	// Difiere por un céntimo: no es candidato.
	pago := pagoEnRevision(t, alm, m.ID, "27.01", models.MetodoYape, operacion)
	aprobarDirecto(t, alm, pago)

	n := notificacionDePrueba(t, alm, "27.00", "yape_recibido", operacion)
	res, err := conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifSinMatch, res.Estado)
	assert.Nil(t, res.PagoID)

	// El enlace manual sigue disponible y no revalida monto ni ventana.
	res, err = conciliador.ConciliarManual(ctx, n.ID, pago.ID, "operador-7")
	require.NoError(t, err)
	assert.Equal(t, models.NotifConciliado, res.Estado)
	require.NotNil(t, res.ResueltoPor)
	assert.Equal(t, "operador-7", *res.ResueltoPor)

	// Repetir el mismo enlace es idempotente.
	_, err = conciliador.ConciliarManual(ctx, n.ID, pago.ID, "operador-8")
	require.NoError(t, err)
}

func TestConciliarReintentaSinMatchCuandoApareceElPago(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := notificacionDePrueba(t, alm, "15.00", "yape_recibido", operacion)

	// Sin pagos registrados, la primera pasada la deja sin_match.
	res, err := conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifSinMatch, res.Estado)
	assert.Nil(t, res.PagoID)

	// El operador registra y aprueba el pago dentro de la ventana; la
	// siguiente pasada del ciclo la recoge y la enlaza.
	m := miembroDePrueba(t, alm, models.CondicionHabil)
	pago := pagoEnRevision(t, alm, m.ID, "15.00", models.MetodoYape, operacion.Add(5*time.Minute))
	aprobarDirecto(t, alm, pago)

	res, err = conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifConciliado, res.Estado)
	require.NotNil(t, res.PagoID)
	assert.Equal(t, pago.ID, *res.PagoID)
	require.NotNil(t, res.ResueltoPor)
	assert.Equal(t, "auto", *res.ResueltoPor)
}

func TestConciliarMetodoIncompatible(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := miembroDePrueba(t, alm, models.CondicionHabil)
	pago := pagoEnRevision(t, alm, m.ID, "40.00", models.MetodoEfectivo, operacion)
	aprobarDirecto(t, alm, pago)

	// Un yapeo no puede respaldar un pago en efectivo.
	n := notificacionDePrueba(t, alm, "40.00", "yape_recibido", operacion)
	res, err := conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifSinMatch, res.Estado)
}

func TestConciliarDesempataPorCercania(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := miembroDePrueba(t, alm, models.CondicionHabil)

	lejano := pagoEnRevision(t, alm, m.ID, "35.00", models.MetodoYape, operacion.Add(-25*time.Minute))
	aprobarDirecto(t, alm, lejano)
	cercano := pagoEnRevision(t, alm, m.ID, "35.00", models.MetodoYape, operacion.Add(-2*time.Minute))
	aprobarDirecto(t, alm, cercano)

	n := notificacionDePrueba(t, alm, "35.00", "yape_recibido", operacion)
	res, err := conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, res.PagoID)
	assert.Equal(t, cercano.ID, *res.PagoID)

	// La ambigüedad queda auditada.
	eventos, err := alm.ListarEventos(ctx, 0)
	require.NoError(t, err)
	var hallado bool
	for _, e := range eventos {
		if e.Accion == "conciliacion_ambigua" && e.ReferenciaID == n.ID {
			hallado = true
		}
	}
	assert.True(t, hallado)
}

func TestConciliarNoReutilizaPagoConciliado(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := miembroDePrueba(t, alm, models.CondicionHabil)
	pago := pagoEnRevision(t, alm, m.ID, "15.00", models.MetodoYape, operacion)
	aprobarDirecto(t, alm, pago)

	primera := notificacionDePrueba(t, alm, "15.00", "yape_recibido", operacion)
	_, err := conciliador.Conciliar(ctx, primera.ID)
	require.NoError(t, err)

	segunda := notificacionDePrueba(t, alm, "15.00", "yape_recibido", operacion.Add(time.Minute))
	res, err := conciliador.Conciliar(ctx, segunda.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifSinMatch, res.Estado)
}

func TestConciliarEsIdempotenteSobreResueltas(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := notificacionDePrueba(t, alm, "15.00", "yape_recibido", operacion)

	_, err := conciliador.MarcarIgnorada(ctx, n.ID, "operador-1", "prueba del banco")
	require.NoError(t, err)

	res, err := conciliador.Conciliar(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifIgnorado, res.Estado)

	// Ignorar de nuevo tampoco cambia nada.
	res, err = conciliador.MarcarIgnorada(ctx, n.ID, "operador-2", "otra vez")
	require.NoError(t, err)
	require.NotNil(t, res.MotivoIgnorado)
	assert.Equal(t, "prueba del banco", *res.MotivoIgnorado)
}

func TestResumen(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	conciliador := NuevoConciliador(alm, models.PoliticaPorDefecto())

	operacion := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	notificacionDePrueba(t, alm, "10.00", "yape_recibido", operacion)
	n2 := notificacionDePrueba(t, alm, "20.00", "yape_recibido", operacion)
	n3 := notificacionDePrueba(t, alm, "30.00", "yape_recibido", operacion)

	m := miembroDePrueba(t, alm, models.CondicionHabil)
	pago := pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoYape, operacion)
	aprobarDirecto(t, alm, pago)
	_, err := conciliador.Conciliar(ctx, n2.ID)
	require.NoError(t, err)
	_, err = conciliador.MarcarIgnorada(ctx, n3.ID, "operador-1", "duplicado del banco")
	require.NoError(t, err)

	r, err := conciliador.Resumen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 1, r.Pendientes)
	assert.Equal(t, 1, r.Conciliadas)
	assert.Equal(t, 1, r.Ignoradas)
	// Las ignoradas no cuentan en la base de la tasa.
	assert.InDelta(t, 0.5, r.TasaVerificacion, 0.001)
}

func TestVerificarPagoAprueba(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	politica := models.PoliticaPorDefecto()
	conciliador := NuevoConciliador(alm, politica)
	aprobador := NuevoAprobador(alm, politica)

	ahora := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	conciliador.Ahora = func() time.Time { return ahora }

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	deudaDePrueba(t, alm, m.ID, "20.00", time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoYape, ahora.Add(-10*time.Minute))
	notificacionDePrueba(t, alm, "20.00", "yape_recibido", ahora.Add(-8*time.Minute))

	res, err := conciliador.VerificarPago(ctx, aprobador, requireDecimal(t, "20.00"), models.MetodoYape)
	require.NoError(t, err)
	assert.True(t, res.Coincide)
	assert.Equal(t, "bcp", res.Banco)

	// El pago quedó aprobado y la deuda saldada; el miembro se habilita.
	miembro, err := alm.ObtenerMiembro(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CondicionHabil, miembro.Condicion)
}

func TestVerificarPagoSinNotificacion(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	politica := models.PoliticaPorDefecto()
	conciliador := NuevoConciliador(alm, politica)
	aprobador := NuevoAprobador(alm, politica)

	ahora := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	conciliador.Ahora = func() time.Time { return ahora }

	m := miembroDePrueba(t, alm, models.CondicionInhabil)
	pago := pagoEnRevision(t, alm, m.ID, "20.00", models.MetodoYape, ahora.Add(-10*time.Minute))

	res, err := conciliador.VerificarPago(ctx, aprobador, requireDecimal(t, "20.00"), models.MetodoYape)
	require.NoError(t, err)
	assert.False(t, res.Coincide)

	// El pago sigue en revisión.
	rec, err := alm.ObtenerPago(ctx, pago.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PagoEnRevision, rec.Estado)
}
