package services

import (
	"context"
	"log"
	"time"

	"backend/models"
	"backend/repository"
)

// EmisorCertificados es el colaborador externo que renderiza y publica el
// certificado de habilidad. Devuelve un descriptor de la emisión.
type EmisorCertificados interface {
	Emitir(ctx context.Context, miembroID, pagoID int) (string, error)
}

// DespachadorCertificados drena la cola de emisiones pendientes después de
// cada confirmación del ledger. Los fallos se registran y reintentan hasta
// maxIntentos; nunca tocan el estado financiero.
type DespachadorCertificados struct {
	alm         repository.Almacen
	emisor      EmisorCertificados
	maxIntentos int
}

// NuevoDespachadorCertificados crea el despachador del outbox.
func NuevoDespachadorCertificados(alm repository.Almacen, emisor EmisorCertificados, maxIntentos int) *DespachadorCertificados {
	if maxIntentos <= 0 {
		maxIntentos = 5
	}
	return &DespachadorCertificados{alm: alm, emisor: emisor, maxIntentos: maxIntentos}
}

// DespacharPendientes intenta emitir cada certificado pendiente. Devuelve
// cuántos se emitieron en esta pasada.
func (d *DespachadorCertificados) DespacharPendientes(ctx context.Context) (int, error) {
	pendientes, err := d.alm.EmisionesPendientes(ctx, d.maxIntentos)
	if err != nil {
		return 0, err
	}
	emitidos := 0
	for i := range pendientes {
		e := pendientes[i]
		descriptor, err := d.emisor.Emitir(ctx, e.MiembroID, e.PagoID)
		e.Intentos++
		if err != nil {
			msg := err.Error()
			e.UltimoError = &msg
			if e.Intentos >= d.maxIntentos {
				e.Estado = models.EmisionFallida
				log.Printf("Emisión %s agotó %d intentos: %v", e.ID, e.Intentos, err)
			} else {
				log.Printf("Emisión %s falló (intento %d): %v; se reintentará", e.ID, e.Intentos, err)
			}
		} else {
			ahora := time.Now()
			e.Estado = models.EmisionEmitida
			e.FechaEmision = &ahora
			e.UltimoError = nil
			emitidos++
			log.Printf("Certificado emitido para miembro %d (pago %d): %s", e.MiembroID, e.PagoID, descriptor)
		}
		if err := d.alm.ActualizarEmision(ctx, &e); err != nil {
			return emitidos, err
		}
	}
	return emitidos, nil
}
