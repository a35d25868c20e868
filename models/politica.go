package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoliticaCobranza agrupa los umbrales de política del motor. Se pasa como
// valor a cada llamada que evalúa política, de modo que cada organización
// puede operar con su propia política sin estado global compartido.
type PoliticaCobranza struct {
	// Conciliación
	VentanaConciliacion time.Duration // ventana ± alrededor de la fecha de operación

	// Fraccionamiento
	MontoMinimoFraccionable decimal.Decimal
	PorcentajeCuotaInicial  decimal.Decimal // porcentaje mínimo del total (0-100)
	MaxCuotas               int
	MontoMinimoCuota        decimal.Decimal
	DiaVencimientoCuota     int // día del mes en que vencen las cuotas

	// Habilitación temporal
	DiasGracia int

	// Cuotas ordinarias
	MontoCuotaMensual decimal.Decimal

	// Ingesta
	IntervaloIngesta time.Duration
}

// PoliticaPorDefecto devuelve la política estándar del colegio.
func PoliticaPorDefecto() PoliticaCobranza {
	return PoliticaCobranza{
		VentanaConciliacion:     30 * time.Minute,
		MontoMinimoFraccionable: decimal.NewFromInt(500),
		PorcentajeCuotaInicial:  decimal.NewFromInt(20),
		MaxCuotas:               12,
		MontoMinimoCuota:        decimal.NewFromInt(100),
		DiaVencimientoCuota:     15,
		DiasGracia:              5,
		MontoCuotaMensual:       decimal.NewFromInt(35),
		IntervaloIngesta:        time.Minute,
	}
}

// MetodosCompatibles mapea tipos de operación bancaria a los métodos de pago
// que pueden corresponderles. Un tipo sin entrada no restringe por método.
func MetodosCompatibles(tipoOperacion string) []string {
	switch tipoOperacion {
	case "plin_recibido":
		return []string{MetodoPlin}
	case "yape_recibido":
		return []string{MetodoYape}
	case "transferencia_recibida":
		return []string{MetodoTransferencia, MetodoDeposito}
	default:
		return nil
	}
}
