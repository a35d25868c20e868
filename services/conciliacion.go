package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"backend/models"
	"backend/repository"
)

// Conciliador enlaza notificaciones bancarias con pagos registrados. Solo lee
// pagos; el único campo que escribe es el enlace de la propia notificación.
type Conciliador struct {
	alm      repository.Almacen
	politica models.PoliticaCobranza
	// Ahora es inyectable en pruebas; por defecto time.Now.
	Ahora func() time.Time
}

// NuevoConciliador crea el servicio de conciliación.
func NuevoConciliador(alm repository.Almacen, politica models.PoliticaCobranza) *Conciliador {
	return &Conciliador{alm: alm, politica: politica, Ahora: time.Now}
}

// Conciliar busca a lo sumo un pago para la notificación indicada.
// La ausencia de candidatos no es un error: queda registrada como sin_match
// para seguimiento humano. Las conciliaciones previas (conciliado/ignorado)
// no se tocan.
func (c *Conciliador) Conciliar(ctx context.Context, notifID int) (*models.NotificacionBancaria, error) {
	n, err := c.alm.ObtenerNotificacion(ctx, notifID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrNotificacionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	if n.Estado == models.NotifConciliado || n.Estado == models.NotifIgnorado {
		return n, nil
	}

	// 1) Ventana de búsqueda
	ahora := c.Ahora()
	var desde, hasta, referencia time.Time
	if n.FechaOperacion != nil {
		referencia = *n.FechaOperacion
		desde = referencia.Add(-c.politica.VentanaConciliacion)
		hasta = referencia.Add(c.politica.VentanaConciliacion)
	} else {
		referencia = ahora
		desde = ahora.Add(-24 * time.Hour)
		hasta = ahora
	}

	// 2) Candidatos: pagos aprobados, monto exacto, dentro de ventana,
	// método compatible y sin otra notificación conciliada encima.
	candidatos, err := c.alm.BuscarPagos(ctx, repository.FiltroPagos{
		Monto:   n.Monto,
		Desde:   desde,
		Hasta:   hasta,
		Estado:  models.PagoAprobado,
		Metodos: models.MetodosCompatibles(n.TipoOperacion),
	})
	if err != nil {
		return nil, err
	}
	libres := candidatos[:0]
	for _, p := range candidatos {
		ocupado, err := c.alm.PagoYaConciliado(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if !ocupado {
			libres = append(libres, p)
		}
	}

	// 3) Resolución
	if len(libres) == 0 {
		n.Estado = models.NotifSinMatch
		auto := "auto"
		n.ResueltoPor = &auto
		n.FechaResolucion = &ahora
		if err := c.alm.ActualizarNotificacion(ctx, n); err != nil {
			return nil, err
		}
		return n, nil
	}

	elegido := libres[0]
	if len(libres) > 1 {
		// Desempate: creación más cercana a la fecha de operación; ante
		// empate, la más reciente. La ambigüedad se audita, no bloquea.
		for _, p := range libres[1:] {
			dp := distancia(p.FechaCreacion, referencia)
			de := distancia(elegido.FechaCreacion, referencia)
			if dp < de || (dp == de && p.FechaCreacion.After(elegido.FechaCreacion)) {
				elegido = p
			}
		}
		log.Printf("Conciliación ambigua: notificación %d con %d candidatos de monto %s; elegido pago %d",
			n.ID, len(libres), n.Monto.StringFixed(2), elegido.ID)
		if err := c.alm.RegistrarEvento(ctx, &models.Evento{
			Accion:          "conciliacion_ambigua",
			ReferenciaTabla: "notificaciones_bancarias",
			ReferenciaID:    n.ID,
			Descripcion:     fmt.Sprintf("%d candidatos para monto %s; auto-enlazado al pago %d", len(libres), n.Monto.StringFixed(2), elegido.ID),
			Exito:           true,
			FechaEvento:     ahora,
		}); err != nil {
			return nil, err
		}
	}

	return n, c.enlazar(ctx, n, elegido.ID, "auto", ahora)
}

func (c *Conciliador) enlazar(ctx context.Context, n *models.NotificacionBancaria, pagoID int, resolutor string, ahora time.Time) error {
	n.Estado = models.NotifConciliado
	n.PagoID = &pagoID
	n.ResueltoPor = &resolutor
	n.FechaResolucion = &ahora
	n.MotivoIgnorado = nil
	return c.alm.ActualizarNotificacion(ctx, n)
}

// ConciliarManual enlaza cualquier notificación con cualquier pago, por
// decisión del operador, sin aplicar las reglas de ventana y monto.
// Es idempotente.
func (c *Conciliador) ConciliarManual(ctx context.Context, notifID, pagoID int, operador string) (*models.NotificacionBancaria, error) {
	n, err := c.alm.ObtenerNotificacion(ctx, notifID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrNotificacionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	if n.Estado == models.NotifConciliado && n.PagoID != nil && *n.PagoID == pagoID {
		return n, nil
	}
	if _, err := c.alm.ObtenerPago(ctx, pagoID); errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrPagoNoEncontrado
	} else if err != nil {
		return nil, err
	}
	if err := c.enlazar(ctx, n, pagoID, operador, c.Ahora()); err != nil {
		return nil, err
	}
	return n, nil
}

// MarcarIgnorada descarta una notificación con un motivo libre. Idempotente.
func (c *Conciliador) MarcarIgnorada(ctx context.Context, notifID int, operador, motivo string) (*models.NotificacionBancaria, error) {
	n, err := c.alm.ObtenerNotificacion(ctx, notifID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrNotificacionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	if n.Estado == models.NotifIgnorado {
		return n, nil
	}
	ahora := c.Ahora()
	n.Estado = models.NotifIgnorado
	n.PagoID = nil
	n.ResueltoPor = &operador
	n.FechaResolucion = &ahora
	n.MotivoIgnorado = &motivo
	if err := c.alm.ActualizarNotificacion(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Resumen expone los contadores de conciliación a los colaboradores.
func (c *Conciliador) Resumen(ctx context.Context) (*models.ResumenConciliacion, error) {
	return c.alm.ResumenNotificaciones(ctx)
}

func distancia(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

// ResultadoVerificacion es la respuesta al sondeo síncrono "¿ya se confirmó
// mi pago?" del flujo del pagador.
type ResultadoVerificacion struct {
	Coincide        bool    `json:"coincide"`
	Banco           string  `json:"banco,omitempty"`
	CodigoOperacion *string `json:"codigo_operacion,omitempty"`
	Mensaje         string  `json:"mensaje"`
}

// VerificarPago busca, entre las notificaciones ya ingeridas (nunca dispara
// una lectura externa), un abono que respalde el pago en revisión más
// reciente de ese monto y método; si lo encuentra, enlaza la notificación y
// aprueba el pago de inmediato.
func (c *Conciliador) VerificarPago(ctx context.Context, aprobador *Aprobador, monto decimal.Decimal, metodo string) (*ResultadoVerificacion, error) {
	ahora := c.Ahora()
	pagos, err := c.alm.BuscarPagos(ctx, repository.FiltroPagos{
		Monto:   monto,
		Desde:   ahora.Add(-24 * time.Hour),
		Hasta:   ahora,
		Estado:  models.PagoEnRevision,
		Metodos: []string{metodo},
	})
	if err != nil {
		return nil, err
	}
	if len(pagos) == 0 {
		return &ResultadoVerificacion{Coincide: false, Mensaje: "No hay un pago en revisión con ese monto y método"}, nil
	}
	pago := pagos[len(pagos)-1] // el más reciente

	notifs, err := c.alm.BuscarNotificaciones(ctx, monto,
		pago.FechaCreacion.Add(-c.politica.VentanaConciliacion),
		pago.FechaCreacion.Add(c.politica.VentanaConciliacion),
		[]string{models.NotifPendiente, models.NotifSinMatch})
	if err != nil {
		return nil, err
	}
	for _, n := range notifs {
		metodos := models.MetodosCompatibles(n.TipoOperacion)
		if len(metodos) > 0 && !contieneMetodo(metodos, metodo) {
			continue
		}
		notif := n
		if err := c.enlazar(ctx, &notif, pago.ID, "verificacion", ahora); err != nil {
			return nil, err
		}
		if _, err := aprobador.Aprobar(ctx, pago.ID, "verificacion"); err != nil {
			return nil, err
		}
		return &ResultadoVerificacion{
			Coincide:        true,
			Banco:           notif.Banco,
			CodigoOperacion: notif.CodigoOperacion,
			Mensaje:         "Pago verificado y aprobado",
		}, nil
	}
	return &ResultadoVerificacion{Coincide: false, Mensaje: "Aún no llega la notificación del banco; intente de nuevo en unos minutos"}, nil
}

func contieneMetodo(lista []string, m string) bool {
	for _, v := range lista {
		if v == m {
			return true
		}
	}
	return false
}
