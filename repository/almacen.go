// Package repository define el acceso a datos del motor. Los servicios
// dependen de la interfaz Almacen, no de una implementación concreta: la
// implementación Postgres respalda producción y la de memoria las pruebas.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"backend/models"
)

var (
	// ErrNoEncontrado se devuelve cuando el registro pedido no existe.
	ErrNoEncontrado = errors.New("registro no encontrado")
	// ErrDuplicado se devuelve al violar una clave única (p.ej. reingerir el
	// mismo id de mensaje externo).
	ErrDuplicado = errors.New("registro duplicado")
)

// FiltroPagos acota la búsqueda de pagos. Los campos en cero no filtran:
// monto cero, fechas cero y lista de métodos vacía aceptan cualquier pago.
type FiltroPagos struct {
	Monto   decimal.Decimal
	Desde   time.Time
	Hasta   time.Time
	Estado  string
	Metodos []string
}

// Almacen agrupa el acceso a todos los agregados del motor.
type Almacen interface {
	// Miembros
	ObtenerMiembro(ctx context.Context, id int) (*models.Miembro, error)
	CrearMiembro(ctx context.Context, m *models.Miembro) error
	ActualizarCondicion(ctx context.Context, miembroID int, condicion string, vence *time.Time, fecha time.Time) error
	MiembrosHabilesVencidos(ctx context.Context, ahora time.Time) ([]models.Miembro, error)

	// Pagos
	CrearPago(ctx context.Context, p *models.Pago) error
	ObtenerPago(ctx context.Context, id int) (*models.Pago, error)
	ActualizarPago(ctx context.Context, p *models.Pago) error
	BuscarPagos(ctx context.Context, filtro FiltroPagos) ([]models.Pago, error)

	// Deudas
	CrearDeuda(ctx context.Context, d *models.Deuda) error
	ObtenerDeuda(ctx context.Context, id int) (*models.Deuda, error)
	ActualizarDeuda(ctx context.Context, d *models.Deuda) error
	// DeudasAbiertas devuelve las deudas pendiente/parcial del miembro en
	// orden FIFO: vencimiento ascendente y luego creación ascendente.
	DeudasAbiertas(ctx context.Context, miembroID int) ([]models.Deuda, error)
	DeudasPorMiembro(ctx context.Context, miembroID int) ([]models.Deuda, error)

	// Notificaciones bancarias
	CrearNotificacion(ctx context.Context, n *models.NotificacionBancaria) error
	ObtenerNotificacion(ctx context.Context, id int) (*models.NotificacionBancaria, error)
	ActualizarNotificacion(ctx context.Context, n *models.NotificacionBancaria) error
	ListarNotificaciones(ctx context.Context, estado string, limite int) ([]models.NotificacionBancaria, error)
	BuscarNotificaciones(ctx context.Context, monto decimal.Decimal, desde, hasta time.Time, estados []string) ([]models.NotificacionBancaria, error)
	PagoYaConciliado(ctx context.Context, pagoID int) (bool, error)
	ResumenNotificaciones(ctx context.Context) (*models.ResumenConciliacion, error)

	// Fraccionamientos
	CrearFraccionamiento(ctx context.Context, f *models.Fraccionamiento) error
	ObtenerFraccionamiento(ctx context.Context, id int) (*models.Fraccionamiento, error)
	ActualizarFraccionamiento(ctx context.Context, f *models.Fraccionamiento) error
	PlanActivo(ctx context.Context, miembroID int) (*models.Fraccionamiento, error)
	PlanesActivos(ctx context.Context) ([]models.Fraccionamiento, error)

	// Emisiones de certificado (outbox)
	CrearEmision(ctx context.Context, e *models.EmisionCertificado) error
	EmisionesPendientes(ctx context.Context, maxIntentos int) ([]models.EmisionCertificado, error)
	ActualizarEmision(ctx context.Context, e *models.EmisionCertificado) error

	// Auditoría
	RegistrarEvento(ctx context.Context, e *models.Evento) error
	ListarEventos(ctx context.Context, miembroID int) ([]models.Evento, error)

	// EnTransaccionMiembro ejecuta fn dentro de una unidad atómica
	// serializada por miembro: dos aprobaciones concurrentes contra el mismo
	// miembro no pueden doble-asignar. Si fn devuelve error, toda la unidad
	// se revierte.
	EnTransaccionMiembro(ctx context.Context, miembroID int, fn func(Almacen) error) error
}
