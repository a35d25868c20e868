package models

import (
	"time"

	"github.com/google/uuid"
)

// Estados de una emisión de certificado pendiente (outbox).
const (
	EmisionPendiente = "pendiente"
	EmisionEmitida   = "emitida"
	EmisionFallida   = "fallida"
)

// EmisionCertificado es una orden de emisión de certificado de habilidad
// encolada después de confirmar la transacción contable. Se despacha en
// segundo plano y se reintenta; un fallo aquí nunca revierte el ledger.
type EmisionCertificado struct {
	ID            uuid.UUID  `json:"id_emision"`
	MiembroID     int        `json:"id_miembro"`
	PagoID        int        `json:"id_pago"`
	Estado        string     `json:"estado"`
	Intentos      int        `json:"intentos"`
	UltimoError   *string    `json:"ultimo_error,omitempty"`
	FechaCreacion time.Time  `json:"fecha_creacion"`
	FechaEmision  *time.Time `json:"fecha_emision,omitempty"`
}
