package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados contables de una deuda.
const (
	DeudaPendiente   = "pendiente"
	DeudaParcial     = "parcial"
	DeudaPagada      = "pagada"
	DeudaFraccionada = "fraccionada"
)

// Estados de gestión administrativa de una deuda.
const (
	GestionVigente     = "vigente"
	GestionEnCobranza  = "en_cobranza"
	GestionFraccionada = "fraccionada"
	GestionCondonada   = "condonada"
	GestionExonerada   = "exonerada"
	GestionPrescrita   = "prescrita"
)

// Conceptos de deuda.
const (
	ConceptoCuotaMensual         = "cuota_mensual"
	ConceptoCuotaFraccionamiento = "cuota_fraccionamiento"
	ConceptoMulta                = "multa"
	ConceptoDerechoTramite       = "derecho_tramite"
)

// Deuda es una obligación de un miembro por un concepto y un periodo.
// Invariantes: Saldo <= MontoOriginal; Estado = pagada <=> Saldo = 0;
// única por (miembro, concepto, periodo) cuando el concepto es periodizado.
type Deuda struct {
	ID                int             `json:"id_deuda"`
	MiembroID         int             `json:"id_miembro"`
	Concepto          string          `json:"concepto"`
	Periodo           string          `json:"periodo,omitempty"` // "YYYY-MM", vacío si no aplica
	MontoOriginal     decimal.Decimal `json:"monto_original"`
	Saldo             decimal.Decimal `json:"saldo"`
	Estado            string          `json:"estado"`
	Gestion           string          `json:"gestion"`
	FechaVencimiento  time.Time       `json:"fecha_vencimiento"`
	Notificada        bool            `json:"notificada"`
	FechaNotificacion *time.Time      `json:"fecha_notificacion,omitempty"`
	FraccionamientoID *int            `json:"id_fraccionamiento,omitempty"`
	FechaCreacion     time.Time       `json:"fecha_creacion"`
}

// Abierta indica que la deuda aún admite asignaciones de pago.
func (d *Deuda) Abierta() bool {
	return d.Estado == DeudaPendiente || d.Estado == DeudaParcial
}

// Exigible indica que la deuda fue notificada formalmente al miembro y por
// tanto es legalmente cobrable.
func (d *Deuda) Exigible() bool {
	return d.Notificada && d.Abierta()
}
