package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un pago. Las transiciones son unidireccionales:
// revision -> aprobado | rechazado.
const (
	PagoEnRevision = "revision"
	PagoAprobado   = "aprobado"
	PagoRechazado  = "rechazado"
)

// Métodos de pago reconocidos.
const (
	MetodoEfectivo      = "efectivo"
	MetodoYape          = "yape"
	MetodoPlin          = "plin"
	MetodoTransferencia = "transferencia"
	MetodoDeposito      = "deposito"
	MetodoTarjeta       = "tarjeta"
)

// Pago es un ingreso monetario registrado. Un pago aprobado es inmutable,
// salvo el enlace posterior de conciliación bancaria.
type Pago struct {
	ID            int             `json:"id_pago"`
	MiembroID     int             `json:"id_miembro"`
	Monto         decimal.Decimal `json:"monto"`
	Metodo        string          `json:"metodo"`
	Estado        string          `json:"estado"`
	DeudaID       *int            `json:"id_deuda,omitempty"`
	Referencia    string          `json:"referencia"`
	MotivoRechazo *string         `json:"motivo_rechazo,omitempty"`
	FechaCreacion time.Time       `json:"fecha_creacion"`
	FechaRevision *time.Time      `json:"fecha_revision,omitempty"`
	RevisorID     *string         `json:"id_revisor,omitempty"`
}
