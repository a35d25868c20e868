package models

import "time"

// Condiciones posibles de un miembro frente al colegio.
const (
	CondicionHabil      = "habil"
	CondicionInhabil    = "inhabil"
	CondicionSuspendido = "suspendido"
	CondicionVitalicio  = "vitalicio"
	CondicionFallecido  = "fallecido"
)

// Miembro representa a un colegiado. HabilidadVence solo se usa cuando la
// habilidad fue otorgada por un fraccionamiento activo.
type Miembro struct {
	ID                int        `json:"id_miembro"`
	Nombre            string     `json:"nombre"`
	NumeroColegiatura string     `json:"numero_colegiatura"`
	Condicion         string     `json:"condicion"`
	HabilidadVence    *time.Time `json:"habilidad_vence,omitempty"`
	FechaColegiatura  time.Time  `json:"fecha_colegiatura"`
	FechaCondicion    time.Time  `json:"fecha_condicion"`
}

// CondicionTerminal indica que el miembro ya no acumula cuotas ordinarias.
func (m *Miembro) CondicionTerminal() bool {
	return m.Condicion == CondicionVitalicio || m.Condicion == CondicionFallecido
}
