package services

// Helpers compartidos por las pruebas del paquete. Todas las pruebas corren
// contra el almacén en memoria.

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"backend/models"
	"backend/repository"
)

func miembroDePrueba(t *testing.T, alm repository.Almacen, condicion string) *models.Miembro {
	t.Helper()
	m := &models.Miembro{
		Nombre:            "Ana Quispe",
		NumeroColegiatura: "CIP-104523",
		Condicion:         condicion,
		FechaColegiatura:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		FechaCondicion:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, alm.CrearMiembro(context.Background(), m))
	return m
}

func deudaDePrueba(t *testing.T, alm repository.Almacen, miembroID int, saldo string, vencimiento time.Time) *models.Deuda {
	t.Helper()
	monto := requireDecimal(t, saldo)
	d := &models.Deuda{
		MiembroID:        miembroID,
		Concepto:         models.ConceptoMulta,
		MontoOriginal:    monto,
		Saldo:            monto,
		Estado:           models.DeudaPendiente,
		Gestion:          models.GestionVigente,
		FechaVencimiento: vencimiento,
		Notificada:       true,
		FechaCreacion:    vencimiento.AddDate(0, -1, 0),
	}
	require.NoError(t, alm.CrearDeuda(context.Background(), d))
	return d
}

func pagoEnRevision(t *testing.T, alm repository.Almacen, miembroID int, monto, metodo string, creado time.Time) *models.Pago {
	t.Helper()
	p := &models.Pago{
		MiembroID:     miembroID,
		Monto:         requireDecimal(t, monto),
		Metodo:        metodo,
		Estado:        models.PagoEnRevision,
		Referencia:    "OP-0001",
		FechaCreacion: creado,
	}
	require.NoError(t, alm.CrearPago(context.Background(), p))
	return p
}

func requireDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func buscarEvento(t *testing.T, alm repository.Almacen, miembroID int, accion string) *models.Evento {
	t.Helper()
	eventos, err := alm.ListarEventos(context.Background(), miembroID)
	require.NoError(t, err)
	for i := range eventos {
		if eventos[i].Accion == accion {
			return &eventos[i]
		}
	}
	return nil
}
