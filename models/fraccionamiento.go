package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un plan de fraccionamiento.
const (
	PlanActivo       = "activo"
	PlanCompletado   = "completado"
	PlanPerdido      = "perdido"
	PlanRefinanciado = "refinanciado"
)

// Fraccionamiento reestructura la deuda consolidada de un miembro en una
// cuota inicial más N cuotas programadas. El plan es dueño exclusivo de sus
// cuotas; al perderse o refinanciarse, las cuotas impagas se reabren como
// deuda ordinaria.
type Fraccionamiento struct {
	ID            int             `json:"id_fraccionamiento"`
	MiembroID     int             `json:"id_miembro"`
	MontoTotal    decimal.Decimal `json:"monto_total"`
	CuotaInicial  decimal.Decimal `json:"cuota_inicial"`
	NumCuotas     int             `json:"num_cuotas"`
	CuotasPagadas int             `json:"cuotas_pagadas"`
	Estado        string          `json:"estado"`
	FechaCreacion time.Time       `json:"fecha_creacion"`
	Cuotas        []Cuota         `json:"cuotas"`
}

// Cuota es una cuota programada de un fraccionamiento. DeudaID referencia la
// deuda creada para cobrarla; PagoID se fija cuando la cuota queda pagada.
type Cuota struct {
	ID                int             `json:"id_cuota"`
	FraccionamientoID int             `json:"id_fraccionamiento"`
	Numero            int             `json:"numero"`
	Monto             decimal.Decimal `json:"monto"`
	FechaVencimiento  time.Time       `json:"fecha_vencimiento"`
	Pagada            bool            `json:"pagada"`
	DeudaID           int             `json:"id_deuda"`
	PagoID            *int            `json:"id_pago,omitempty"`
}

// ProximaCuotaImpaga devuelve la primera cuota no pagada en orden de
// vencimiento, o nil si todas están pagadas.
func (f *Fraccionamiento) ProximaCuotaImpaga() *Cuota {
	for i := range f.Cuotas {
		if !f.Cuotas[i].Pagada {
			return &f.Cuotas[i]
		}
	}
	return nil
}

// CuotasVencidasConsecutivas cuenta cuotas impagas consecutivas cuyo
// vencimiento ya pasó, empezando por la primera impaga.
func (f *Fraccionamiento) CuotasVencidasConsecutivas(ahora time.Time) int {
	n := 0
	for i := range f.Cuotas {
		c := &f.Cuotas[i]
		if c.Pagada {
			continue
		}
		if c.FechaVencimiento.Before(ahora) {
			n++
		} else {
			break
		}
	}
	return n
}
