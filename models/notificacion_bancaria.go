// backend/models/notificacion_bancaria.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de conciliación de una notificación bancaria.
const (
	NotifPendiente  = "pendiente"
	NotifConciliado = "conciliado"
	NotifSinMatch   = "sin_match"
	NotifIgnorado   = "ignorado"
)

// NotificacionBancaria es un hecho extraído de un correo del banco.
// Corresponde a la tabla "notificaciones_bancarias". Se crea una sola vez por
// MensajeExternoID y nunca se borra (pista de auditoría); solo el conciliador
// o un operador mutan su estado de enlace.
type NotificacionBancaria struct {
	ID               int             `json:"id_notificacion"`
	MensajeExternoID string          `json:"id_mensaje_externo"`
	Banco            string          `json:"banco"`
	Canal            string          `json:"canal"` // p.ej. "interbank/plin"
	TipoOperacion    string          `json:"tipo_operacion"`
	Monto            decimal.Decimal `json:"monto"`
	Moneda           string          `json:"moneda"`
	FechaOperacion   *time.Time      `json:"fecha_operacion,omitempty"`
	CodigoOperacion  *string         `json:"codigo_operacion,omitempty"`
	Remitente        *string         `json:"remitente,omitempty"`
	Extracto         string          `json:"extracto"`
	Estado           string          `json:"estado"`
	PagoID           *int            `json:"id_pago,omitempty"`
	ResueltoPor      *string         `json:"resuelto_por,omitempty"`
	FechaResolucion  *time.Time      `json:"fecha_resolucion,omitempty"`
	MotivoIgnorado   *string         `json:"motivo_ignorado,omitempty"`
	FechaCreacion    time.Time       `json:"fecha_creacion"`
}

// ResumenConciliacion agrupa los contadores expuestos a los colaboradores.
type ResumenConciliacion struct {
	Total            int     `json:"total"`
	Pendientes       int     `json:"pendientes"`
	Conciliadas      int     `json:"conciliadas"`
	SinMatch         int     `json:"sin_match"`
	Ignoradas        int     `json:"ignoradas"`
	TasaVerificacion float64 `json:"tasa_verificacion"`
}
