// backend/models/evento.go
package models

import "time"

// Evento registra una acción auditable del motor: cambios de condición,
// conciliaciones ambiguas, excedentes de pago, pérdidas de plan.
// Corresponde a la tabla "eventos".
type Evento struct {
	ID              int       `json:"id_evento"`
	MiembroID       *int      `json:"id_miembro,omitempty"`
	Accion          string    `json:"accion"`
	ReferenciaTabla string    `json:"referencia_tabla"`
	ReferenciaID    int       `json:"referencia_id"`
	Descripcion     string    `json:"descripcion"`
	Exito           bool      `json:"exito"`
	FechaEvento     time.Time `json:"fecha_evento"`
}
