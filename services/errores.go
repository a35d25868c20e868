// Package services implementa el núcleo del motor de conciliación de pagos y
// fraccionamiento: conciliación bancaria, aprobación con asignación FIFO,
// planes de fraccionamiento, máquina de estados de habilidad e inferencia de
// cuotas mensuales.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrPagoNoEncontrado indica que el pago referido no existe.
	ErrPagoNoEncontrado = errors.New("pago no encontrado")
	// ErrNotificacionNoEncontrada indica que la notificación referida no existe.
	ErrNotificacionNoEncontrada = errors.New("notificación bancaria no encontrada")
	// ErrMiembroNoEncontrado indica que el miembro referido no existe.
	ErrMiembroNoEncontrado = errors.New("miembro no encontrado")
)

// ErrEstadoInvalido señala una transición de estado no permitida, p.ej.
// aprobar un pago ya rechazado. Se expone al llamador como conflicto.
type ErrEstadoInvalido struct {
	Entidad  string
	Actual   string
	Esperado string
}

func (e *ErrEstadoInvalido) Error() string {
	return fmt.Sprintf("%s en estado %q, se esperaba %q", e.Entidad, e.Actual, e.Esperado)
}

// ErrPolitica señala el incumplimiento de una regla de política de
// fraccionamiento. Regla identifica la condición violada; cuando es
// computable, MaxCuotasFactible indica la alternativa viable más cercana.
type ErrPolitica struct {
	Regla             string
	Detalle           string
	MaxCuotasFactible int
}

func (e *ErrPolitica) Error() string {
	return fmt.Sprintf("política incumplida (%s): %s", e.Regla, e.Detalle)
}
