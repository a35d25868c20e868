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

func planActivoDePrueba(t *testing.T, alm repository.Almacen, miembroID int, vencimiento time.Time) *models.Fraccionamiento {
	t.Helper()
	f := &models.Fraccionamiento{
		MiembroID:    miembroID,
		MontoTotal:   requireDecimal(t, "600.00"),
		CuotaInicial: requireDecimal(t, "120.00"),
		NumCuotas:    4,
		Estado:       models.PlanActivo,
		Cuotas: []models.Cuota{
			{Numero: 1, Monto: requireDecimal(t, "120.00"), FechaVencimiento: vencimiento},
		},
	}
	require.NoError(t, alm.CrearFraccionamiento(context.Background(), f))
	return f
}

func TestBarridoRevocaHabilidadesVencidas(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	habilitador := NuevoHabilitador(alm)
	ahora := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)

	// Hábil con plan activo y habilidad vencida: se revoca.
	vencido := miembroDePrueba(t, alm, models.CondicionHabil)
	venceAyer := ahora.AddDate(0, 0, -1)
	require.NoError(t, alm.ActualizarCondicion(ctx, vencido.ID, models.CondicionHabil, &venceAyer, ahora))
	planActivoDePrueba(t, alm, vencido.ID, ahora.AddDate(0, 0, -6))

	// Hábil con vencimiento futuro: no se toca.
	vigente := miembroDePrueba(t, alm, models.CondicionHabil)
	venceLuego := ahora.AddDate(0, 0, 10)
	require.NoError(t, alm.ActualizarCondicion(ctx, vigente.ID, models.CondicionHabil, &venceLuego, ahora))
	planActivoDePrueba(t, alm, vigente.ID, venceLuego)

	// Habilidad vencida pero sin plan activo: la resuelve la pérdida del
	// plan, no el barrido.
	huerfano := miembroDePrueba(t, alm, models.CondicionHabil)
	require.NoError(t, alm.ActualizarCondicion(ctx, huerfano.ID, models.CondicionHabil, &venceAyer, ahora))

	revocados, err := habilitador.BarridoVencimientos(ctx, ahora)
	require.NoError(t, err)
	assert.Equal(t, 1, revocados)

	rec, err := alm.ObtenerMiembro(ctx, vencido.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CondicionInhabil, rec.Condicion)

	ev := buscarEvento(t, alm, vencido.ID, "cambio_condicion")
	require.NotNil(t, ev)
	assert.Contains(t, ev.Descripcion, "cuota de fraccionamiento vencida")

	for _, id := range []int{vigente.ID, huerfano.ID} {
		rec, err := alm.ObtenerMiembro(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.CondicionHabil, rec.Condicion)
	}

	// El barrido es idempotente: nada más que revocar.
	revocados, err = habilitador.BarridoVencimientos(ctx, ahora)
	require.NoError(t, err)
	assert.Equal(t, 0, revocados)
}

func TestCambiarCondicion(t *testing.T) {
	ctx := context.Background()
	alm := repository.NuevaMemoria()
	habilitador := NuevoHabilitador(alm)

	m := miembroDePrueba(t, alm, models.CondicionHabil)

	require.NoError(t, habilitador.CambiarCondicion(ctx, m.ID, models.CondicionSuspendido, "sanción del tribunal de ética", "operador-1"))
	rec, err := alm.ObtenerMiembro(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CondicionSuspendido, rec.Condicion)

	// Cambiar a la misma condición es no-op.
	require.NoError(t, habilitador.CambiarCondicion(ctx, m.ID, models.CondicionSuspendido, "repetido", "operador-1"))

	// Una condición desconocida se rechaza.
	require.Error(t, habilitador.CambiarCondicion(ctx, m.ID, "congelado", "", "operador-1"))

	// Fallecido es terminal.
	require.NoError(t, habilitador.CambiarCondicion(ctx, m.ID, models.CondicionFallecido, "partida de defunción", "operador-1"))
	err = habilitador.CambiarCondicion(ctx, m.ID, models.CondicionHabil, "error de registro", "operador-1")
	var estado *ErrEstadoInvalido
	require.ErrorAs(t, err, &estado)
	assert.Equal(t, models.CondicionFallecido, estado.Actual)
}

func TestCambiarCondicionMiembroInexistente(t *testing.T) {
	alm := repository.NuevaMemoria()
	habilitador := NuevoHabilitador(alm)
	err := habilitador.CambiarCondicion(context.Background(), 404, models.CondicionHabil, "", "operador-1")
	assert.ErrorIs(t, err, ErrMiembroNoEncontrado)
}
