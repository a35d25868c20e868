package services

import (
	"context"
	"errors"
	"log"
	"time"

	"backend/models"
	"backend/parser"
	"backend/repository"
)

// MensajeCrudo es un correo bancario tal como llega del buzón.
type MensajeCrudo struct {
	MensajeExternoID string
	Remitente        string
	Asunto           string
	Cuerpo           string
	FechaCabecera    *time.Time
}

// LectorNotificaciones es el colaborador externo que lee el buzón. Gestiona
// su propio timeout: un fallo de lectura rinde cero mensajes este ciclo y se
// reintenta en el siguiente.
type LectorNotificaciones interface {
	Leer(ctx context.Context) ([]MensajeCrudo, error)
}

// Ingestor convierte los correos del buzón en notificaciones bancarias y las
// concilia de inmediato. Parsear-e-insertar es todo-o-nada por mensaje; los
// duplicados por id de mensaje externo se descartan sin efecto.
type Ingestor struct {
	alm         repository.Almacen
	lector      LectorNotificaciones
	conciliador *Conciliador
}

// NuevoIngestor crea el servicio de ingesta.
func NuevoIngestor(alm repository.Almacen, lector LectorNotificaciones, conciliador *Conciliador) *Ingestor {
	return &Ingestor{alm: alm, lector: lector, conciliador: conciliador}
}

// Ciclo procesa un lote del buzón. Devuelve cuántos mensajes se ingirieron y
// cuántos quedaron en cuarentena por no parsear.
func (i *Ingestor) Ciclo(ctx context.Context) (ingeridas, cuarentena int, err error) {
	mensajes, err := i.lector.Leer(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, msg := range mensajes {
		hecho, err := parser.Parsear(msg.Remitente, msg.Asunto, msg.Cuerpo)
		if err != nil {
			var noParseado *parser.ErrNoParseado
			if errors.As(err, &noParseado) {
				// Cuarentena: se audita y se sigue con el lote.
				cuarentena++
				if evErr := i.alm.RegistrarEvento(ctx, &models.Evento{
					Accion:          "notificacion_no_parseada",
					ReferenciaTabla: "notificaciones_bancarias",
					ReferenciaID:    0,
					Descripcion:     "Mensaje " + msg.MensajeExternoID + ": " + noParseado.Razon,
					Exito:           false,
				}); evErr != nil {
					log.Printf("Error registrando cuarentena del mensaje %s: %v", msg.MensajeExternoID, evErr)
				}
				continue
			}
			return ingeridas, cuarentena, err
		}

		n := &models.NotificacionBancaria{
			MensajeExternoID: msg.MensajeExternoID,
			Banco:            hecho.Banco,
			Canal:            hecho.Canal,
			TipoOperacion:    hecho.TipoOperacion,
			Monto:            hecho.Monto,
			Moneda:           hecho.Moneda,
			FechaOperacion:   hecho.FechaOperacion,
			CodigoOperacion:  hecho.CodigoOperacion,
			Remitente:        hecho.Remitente,
			Extracto:         hecho.Extracto,
			Estado:           models.NotifPendiente,
		}
		if n.FechaOperacion == nil && msg.FechaCabecera != nil {
			n.FechaOperacion = msg.FechaCabecera
		}
		if err := i.alm.CrearNotificacion(ctx, n); err != nil {
			if errors.Is(err, repository.ErrDuplicado) {
				// Reingesta del mismo mensaje: idempotente, sin segunda fila.
				continue
			}
			return ingeridas, cuarentena, err
		}
		ingeridas++

		if _, err := i.conciliador.Conciliar(ctx, n.ID); err != nil {
			log.Printf("Error conciliando notificación %d: %v", n.ID, err)
		}
	}
	return ingeridas, cuarentena, nil
}
