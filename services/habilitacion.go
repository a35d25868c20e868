package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/models"
	"backend/repository"
)

// Habilitador administra la condición del miembro: el barrido temporal que
// revoca habilidades vencidas y los cambios manuales de condición.
type Habilitador struct {
	alm repository.Almacen
}

// NuevoHabilitador crea el servicio de habilitación.
func NuevoHabilitador(alm repository.Almacen) *Habilitador {
	return &Habilitador{alm: alm}
}

// BarridoVencimientos revoca la habilidad de todo miembro hábil con
// habilidad_vence anterior a ahora y plan de fraccionamiento activo. Es la
// única vía que revoca una habilidad sin acción humana. Devuelve cuántos
// miembros pasaron a inhábil.
func (h *Habilitador) BarridoVencimientos(ctx context.Context, ahora time.Time) (int, error) {
	vencidos, err := h.alm.MiembrosHabilesVencidos(ctx, ahora)
	if err != nil {
		return 0, err
	}
	revocados := 0
	for _, m := range vencidos {
		if _, err := h.alm.PlanActivo(ctx, m.ID); errors.Is(err, repository.ErrNoEncontrado) {
			// Sin plan activo no hay reloj de cuotas que vencer; lo resuelve
			// RevisarPlanesVencidos al perder el plan.
			continue
		} else if err != nil {
			return revocados, err
		}
		if err := h.alm.ActualizarCondicion(ctx, m.ID, models.CondicionInhabil, nil, ahora); err != nil {
			return revocados, err
		}
		mid := m.ID
		if err := h.alm.RegistrarEvento(ctx, &models.Evento{
			MiembroID:       &mid,
			Accion:          "cambio_condicion",
			ReferenciaTabla: "miembros",
			ReferenciaID:    m.ID,
			Descripcion:     "habil -> inhabil: cuota de fraccionamiento vencida sin pago",
			Exito:           true,
			FechaEvento:     ahora,
		}); err != nil {
			return revocados, err
		}
		revocados++
	}
	if revocados > 0 {
		log.Printf("Barrido de habilidad: %d miembros pasaron a inhábil", revocados)
	}
	return revocados, nil
}

// CambiarCondicion aplica un cambio manual de condición por un operador.
// fallecido es terminal: no se sale de él.
func (h *Habilitador) CambiarCondicion(ctx context.Context, miembroID int, nueva, motivo, operador string) error {
	switch nueva {
	case models.CondicionHabil, models.CondicionInhabil, models.CondicionSuspendido,
		models.CondicionVitalicio, models.CondicionFallecido:
	default:
		return fmt.Errorf("condición desconocida: %q", nueva)
	}
	m, err := h.alm.ObtenerMiembro(ctx, miembroID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return ErrMiembroNoEncontrado
	}
	if err != nil {
		return err
	}
	if m.Condicion == nueva {
		return nil
	}
	if m.Condicion == models.CondicionFallecido {
		return &ErrEstadoInvalido{Entidad: "miembro", Actual: m.Condicion, Esperado: "una condición no terminal"}
	}
	ahora := time.Now()
	if err := h.alm.ActualizarCondicion(ctx, miembroID, nueva, nil, ahora); err != nil {
		return err
	}
	mid := miembroID
	return h.alm.RegistrarEvento(ctx, &models.Evento{
		MiembroID:       &mid,
		Accion:          "cambio_condicion",
		ReferenciaTabla: "miembros",
		ReferenciaID:    miembroID,
		Descripcion:     fmt.Sprintf("%s -> %s (%s): %s", m.Condicion, nueva, operador, motivo),
		Exito:           true,
		FechaEvento:     ahora,
	})
}
