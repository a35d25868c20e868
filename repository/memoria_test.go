package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/models"
)

func deudaAbierta(t *testing.T, m *Memoria, miembroID int, vencimiento, creacion time.Time) *models.Deuda {
	t.Helper()
	d := &models.Deuda{
		MiembroID:        miembroID,
		Concepto:         models.ConceptoMulta,
		MontoOriginal:    decimal.NewFromInt(50),
		Saldo:            decimal.NewFromInt(50),
		Estado:           models.DeudaPendiente,
		Gestion:          models.GestionVigente,
		FechaVencimiento: vencimiento,
		FechaCreacion:    creacion,
	}
	require.NoError(t, m.CrearDeuda(context.Background(), d))
	return d
}

func TestDeudasAbiertasOrdenFIFO(t *testing.T) {
	ctx := context.Background()
	m := NuevaMemoria()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Creadas en desorden a propósito.
	tardia := deudaAbierta(t, m, 1, base.AddDate(0, 2, 0), base)
	temprana := deudaAbierta(t, m, 1, base, base)
	// Mismo vencimiento que la temprana pero creada después: va detrás.
	empatada := deudaAbierta(t, m, 1, base, base.AddDate(0, 0, 5))

	// Las cerradas y las de otros miembros no aparecen.
	cerrada := deudaAbierta(t, m, 1, base, base)
	cerrada.Estado = models.DeudaPagada
	cerrada.Saldo = decimal.Zero
	require.NoError(t, m.ActualizarDeuda(ctx, cerrada))
	deudaAbierta(t, m, 2, base, base)

	abiertas, err := m.DeudasAbiertas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, abiertas, 3)
	assert.Equal(t, temprana.ID, abiertas[0].ID)
	assert.Equal(t, empatada.ID, abiertas[1].ID)
	assert.Equal(t, tardia.ID, abiertas[2].ID)
}

func TestEnTransaccionMiembroRevierteTodo(t *testing.T) {
	ctx := context.Background()
	m := NuevaMemoria()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := deudaAbierta(t, m, 1, base, base)

	falla := errors.New("corte a mitad de asignación")
	err := m.EnTransaccionMiembro(ctx, 1, func(alm Almacen) error {
		rec, err := alm.ObtenerDeuda(ctx, d.ID)
		if err != nil {
			return err
		}
		rec.Saldo = decimal.Zero
		rec.Estado = models.DeudaPagada
		if err := alm.ActualizarDeuda(ctx, rec); err != nil {
			return err
		}
		if err := alm.CrearPago(ctx, &models.Pago{
			MiembroID: 1,
			Monto:     decimal.NewFromInt(50),
			Metodo:    models.MetodoEfectivo,
			Estado:    models.PagoAprobado,
		}); err != nil {
			return err
		}
		return falla
	})
	require.ErrorIs(t, err, falla)

	// Ni la deuda ni el pago intermedio sobreviven.
	rec, err := m.ObtenerDeuda(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeudaPendiente, rec.Estado)
	assert.Equal(t, "50.00", rec.Saldo.StringFixed(2))

	pagos, err := m.BuscarPagos(ctx, FiltroPagos{})
	require.NoError(t, err)
	assert.Empty(t, pagos)
}

func TestCrearNotificacionDeduplicaPorMensaje(t *testing.T) {
	ctx := context.Background()
	m := NuevaMemoria()

	n := &models.NotificacionBancaria{
		MensajeExternoID: "gmail-777",
		Banco:            "bcp",
		Monto:            decimal.NewFromInt(27),
		Moneda:           "PEN",
		Estado:           models.NotifPendiente,
	}
	require.NoError(t, m.CrearNotificacion(ctx, n))

	otra := &models.NotificacionBancaria{
		MensajeExternoID: "gmail-777",
		Banco:            "bcp",
		Monto:            decimal.NewFromInt(27),
		Moneda:           "PEN",
		Estado:           models.NotifPendiente,
	}
	err := m.CrearNotificacion(ctx, otra)
	assert.ErrorIs(t, err, ErrDuplicado)
}
