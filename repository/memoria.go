package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backend/models"
)

// Memoria es la implementación en memoria de Almacen. Respalda las pruebas
// del motor y el modo demo; no persiste nada.
type Memoria struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	miembros         map[int]*models.Miembro
	pagos            map[int]*models.Pago
	deudas           map[int]*models.Deuda
	notificaciones   map[int]*models.NotificacionBancaria
	notifPorMensaje  map[string]int
	fraccionamientos map[int]*models.Fraccionamiento
	emisiones        map[uuid.UUID]*models.EmisionCertificado
	eventos          []models.Evento

	sigMiembro, sigPago, sigDeuda, sigNotif, sigPlan, sigCuota, sigEvento int
}

// NuevaMemoria crea un almacén vacío.
func NuevaMemoria() *Memoria {
	return &Memoria{
		miembros:         make(map[int]*models.Miembro),
		pagos:            make(map[int]*models.Pago),
		deudas:           make(map[int]*models.Deuda),
		notificaciones:   make(map[int]*models.NotificacionBancaria),
		notifPorMensaje:  make(map[string]int),
		fraccionamientos: make(map[int]*models.Fraccionamiento),
		emisiones:        make(map[uuid.UUID]*models.EmisionCertificado),
	}
}

// --- Miembros ---

func (m *Memoria) ObtenerMiembro(_ context.Context, id int) (*models.Miembro, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mi, ok := m.miembros[id]
	if !ok {
		return nil, ErrNoEncontrado
	}
	c := *mi
	return &c, nil
}

func (m *Memoria) CrearMiembro(_ context.Context, mi *models.Miembro) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sigMiembro++
	mi.ID = m.sigMiembro
	c := *mi
	m.miembros[mi.ID] = &c
	return nil
}

func (m *Memoria) ActualizarCondicion(_ context.Context, miembroID int, condicion string, vence *time.Time, fecha time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, ok := m.miembros[miembroID]
	if !ok {
		return ErrNoEncontrado
	}
	c := *mi
	c.Condicion = condicion
	c.HabilidadVence = vence
	c.FechaCondicion = fecha
	m.miembros[miembroID] = &c
	return nil
}

func (m *Memoria) MiembrosHabilesVencidos(_ context.Context, ahora time.Time) ([]models.Miembro, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Miembro
	for _, mi := range m.miembros {
		if mi.Condicion == models.CondicionHabil && mi.HabilidadVence != nil && mi.HabilidadVence.Before(ahora) {
			out = append(out, *mi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Pagos ---

func (m *Memoria) CrearPago(_ context.Context, p *models.Pago) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sigPago++
	p.ID = m.sigPago
	if p.FechaCreacion.IsZero() {
		p.FechaCreacion = time.Now()
	}
	c := *p
	m.pagos[p.ID] = &c
	return nil
}

func (m *Memoria) ObtenerPago(_ context.Context, id int) (*models.Pago, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pagos[id]
	if !ok {
		return nil, ErrNoEncontrado
	}
	c := *p
	return &c, nil
}

func (m *Memoria) ActualizarPago(_ context.Context, p *models.Pago) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pagos[p.ID]; !ok {
		return ErrNoEncontrado
	}
	c := *p
	m.pagos[p.ID] = &c
	return nil
}

func (m *Memoria) BuscarPagos(_ context.Context, filtro FiltroPagos) ([]models.Pago, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Pago
	for _, p := range m.pagos {
		if filtro.Estado != "" && p.Estado != filtro.Estado {
			continue
		}
		if !filtro.Monto.IsZero() && !p.Monto.Equal(filtro.Monto) {
			continue
		}
		if !filtro.Desde.IsZero() && p.FechaCreacion.Before(filtro.Desde) {
			continue
		}
		if !filtro.Hasta.IsZero() && p.FechaCreacion.After(filtro.Hasta) {
			continue
		}
		if len(filtro.Metodos) > 0 && !contiene(filtro.Metodos, p.Metodo) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaCreacion.Before(out[j].FechaCreacion) })
	return out, nil
}

// --- Deudas ---

func (m *Memoria) CrearDeuda(_ context.Context, d *models.Deuda) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sigDeuda++
	d.ID = m.sigDeuda
	if d.FechaCreacion.IsZero() {
		d.FechaCreacion = time.Now()
	}
	c := *d
	m.deudas[d.ID] = &c
	return nil
}

func (m *Memoria) ObtenerDeuda(_ context.Context, id int) (*models.Deuda, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deudas[id]
	if !ok {
		return nil, ErrNoEncontrado
	}
	c := *d
	return &c, nil
}

func (m *Memoria) ActualizarDeuda(_ context.Context, d *models.Deuda) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deudas[d.ID]; !ok {
		return ErrNoEncontrado
	}
	c := *d
	m.deudas[d.ID] = &c
	return nil
}

func (m *Memoria) DeudasAbiertas(_ context.Context, miembroID int) ([]models.Deuda, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Deuda
	for _, d := range m.deudas {
		if d.MiembroID == miembroID && d.Abierta() {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaVencimiento.Equal(out[j].FechaVencimiento) {
			return out[i].FechaVencimiento.Before(out[j].FechaVencimiento)
		}
		if !out[i].FechaCreacion.Equal(out[j].FechaCreacion) {
			return out[i].FechaCreacion.Before(out[j].FechaCreacion)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memoria) DeudasPorMiembro(_ context.Context, miembroID int) ([]models.Deuda, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Deuda
	for _, d := range m.deudas {
		if d.MiembroID == miembroID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Notificaciones bancarias ---

func (m *Memoria) CrearNotificacion(_ context.Context, n *models.NotificacionBancaria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifPorMensaje[n.MensajeExternoID]; ok {
		return ErrDuplicado
	}
	m.sigNotif++
	n.ID = m.sigNotif
	if n.FechaCreacion.IsZero() {
		n.FechaCreacion = time.Now()
	}
	c := *n
	m.notificaciones[n.ID] = &c
	m.notifPorMensaje[n.MensajeExternoID] = n.ID
	return nil
}

func (m *Memoria) ObtenerNotificacion(_ context.Context, id int) (*models.NotificacionBancaria, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notificaciones[id]
	if !ok {
		return nil, ErrNoEncontrado
	}
	c := *n
	return &c, nil
}

func (m *Memoria) ActualizarNotificacion(_ context.Context, n *models.NotificacionBancaria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notificaciones[n.ID]; !ok {
		return ErrNoEncontrado
	}
	c := *n
	m.notificaciones[n.ID] = &c
	return nil
}

func (m *Memoria) ListarNotificaciones(_ context.Context, estado string, limite int) ([]models.NotificacionBancaria, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.NotificacionBancaria
	for _, n := range m.notificaciones {
		if estado == "" || n.Estado == estado {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaCreacion.After(out[j].FechaCreacion) })
	if limite > 0 && len(out) > limite {
		out = out[:limite]
	}
	return out, nil
}

func (m *Memoria) BuscarNotificaciones(_ context.Context, monto decimal.Decimal, desde, hasta time.Time, estados []string) ([]models.NotificacionBancaria, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.NotificacionBancaria
	for _, n := range m.notificaciones {
		if !n.Monto.Equal(monto) {
			continue
		}
		if len(estados) > 0 && !contiene(estados, n.Estado) {
			continue
		}
		ref := n.FechaCreacion
		if n.FechaOperacion != nil {
			ref = *n.FechaOperacion
		}
		if ref.Before(desde) || ref.After(hasta) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memoria) PagoYaConciliado(_ context.Context, pagoID int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notificaciones {
		if n.Estado == models.NotifConciliado && n.PagoID != nil && *n.PagoID == pagoID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memoria) ResumenNotificaciones(_ context.Context) (*models.ResumenConciliacion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := &models.ResumenConciliacion{}
	for _, n := range m.notificaciones {
		r.Total++
		switch n.Estado {
		case models.NotifPendiente:
			r.Pendientes++
		case models.NotifConciliado:
			r.Conciliadas++
		case models.NotifSinMatch:
			r.SinMatch++
		case models.NotifIgnorado:
			r.Ignoradas++
		}
	}
	if base := r.Total - r.Ignoradas; base > 0 {
		r.TasaVerificacion = float64(r.Conciliadas) / float64(base)
	}
	return r, nil
}

// --- Fraccionamientos ---

func (m *Memoria) CrearFraccionamiento(_ context.Context, f *models.Fraccionamiento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sigPlan++
	f.ID = m.sigPlan
	if f.FechaCreacion.IsZero() {
		f.FechaCreacion = time.Now()
	}
	for i := range f.Cuotas {
		m.sigCuota++
		f.Cuotas[i].ID = m.sigCuota
		f.Cuotas[i].FraccionamientoID = f.ID
	}
	c := clonarPlan(f)
	m.fraccionamientos[f.ID] = c
	return nil
}

func (m *Memoria) ObtenerFraccionamiento(_ context.Context, id int) (*models.Fraccionamiento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fraccionamientos[id]
	if !ok {
		return nil, ErrNoEncontrado
	}
	return clonarPlan(f), nil
}

func (m *Memoria) ActualizarFraccionamiento(_ context.Context, f *models.Fraccionamiento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fraccionamientos[f.ID]; !ok {
		return ErrNoEncontrado
	}
	m.fraccionamientos[f.ID] = clonarPlan(f)
	return nil
}

func (m *Memoria) PlanActivo(_ context.Context, miembroID int) (*models.Fraccionamiento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.fraccionamientos {
		if f.MiembroID == miembroID && f.Estado == models.PlanActivo {
			return clonarPlan(f), nil
		}
	}
	return nil, ErrNoEncontrado
}

func (m *Memoria) PlanesActivos(_ context.Context) ([]models.Fraccionamiento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Fraccionamiento
	for _, f := range m.fraccionamientos {
		if f.Estado == models.PlanActivo {
			out = append(out, *clonarPlan(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Emisiones ---

func (m *Memoria) CrearEmision(_ context.Context, e *models.EmisionCertificado) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.FechaCreacion.IsZero() {
		e.FechaCreacion = time.Now()
	}
	c := *e
	m.emisiones[e.ID] = &c
	return nil
}

func (m *Memoria) EmisionesPendientes(_ context.Context, maxIntentos int) ([]models.EmisionCertificado, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.EmisionCertificado
	for _, e := range m.emisiones {
		if e.Estado == models.EmisionPendiente && e.Intentos < maxIntentos {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaCreacion.Before(out[j].FechaCreacion) })
	return out, nil
}

func (m *Memoria) ActualizarEmision(_ context.Context, e *models.EmisionCertificado) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emisiones[e.ID]; !ok {
		return ErrNoEncontrado
	}
	c := *e
	m.emisiones[e.ID] = &c
	return nil
}

// --- Auditoría ---

func (m *Memoria) RegistrarEvento(_ context.Context, e *models.Evento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sigEvento++
	e.ID = m.sigEvento
	if e.FechaEvento.IsZero() {
		e.FechaEvento = time.Now()
	}
	m.eventos = append(m.eventos, *e)
	return nil
}

func (m *Memoria) ListarEventos(_ context.Context, miembroID int) ([]models.Evento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Evento
	for _, e := range m.eventos {
		if miembroID == 0 || (e.MiembroID != nil && *e.MiembroID == miembroID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Transacción ---

// EnTransaccionMiembro serializa todas las unidades atómicas con un mutex
// único y revierte el estado completo si fn falla. Las entradas de los mapas
// se reemplazan siempre por copias, por eso basta restaurar los mapas.
func (m *Memoria) EnTransaccionMiembro(_ context.Context, _ int, fn func(Almacen) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	antes := m.instantanea()
	if err := fn(m); err != nil {
		m.restaurar(antes)
		return err
	}
	return nil
}

type instantanea struct {
	miembros         map[int]*models.Miembro
	pagos            map[int]*models.Pago
	deudas           map[int]*models.Deuda
	notificaciones   map[int]*models.NotificacionBancaria
	notifPorMensaje  map[string]int
	fraccionamientos map[int]*models.Fraccionamiento
	emisiones        map[uuid.UUID]*models.EmisionCertificado
	eventos          []models.Evento
	contadores       [7]int
}

func (m *Memoria) instantanea() instantanea {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := instantanea{
		miembros:         make(map[int]*models.Miembro, len(m.miembros)),
		pagos:            make(map[int]*models.Pago, len(m.pagos)),
		deudas:           make(map[int]*models.Deuda, len(m.deudas)),
		notificaciones:   make(map[int]*models.NotificacionBancaria, len(m.notificaciones)),
		notifPorMensaje:  make(map[string]int, len(m.notifPorMensaje)),
		fraccionamientos: make(map[int]*models.Fraccionamiento, len(m.fraccionamientos)),
		emisiones:        make(map[uuid.UUID]*models.EmisionCertificado, len(m.emisiones)),
		eventos:          append([]models.Evento(nil), m.eventos...),
		contadores:       [7]int{m.sigMiembro, m.sigPago, m.sigDeuda, m.sigNotif, m.sigPlan, m.sigCuota, m.sigEvento},
	}
	for k, v := range m.miembros {
		s.miembros[k] = v
	}
	for k, v := range m.pagos {
		s.pagos[k] = v
	}
	for k, v := range m.deudas {
		s.deudas[k] = v
	}
	for k, v := range m.notificaciones {
		s.notificaciones[k] = v
	}
	for k, v := range m.notifPorMensaje {
		s.notifPorMensaje[k] = v
	}
	for k, v := range m.fraccionamientos {
		s.fraccionamientos[k] = v
	}
	for k, v := range m.emisiones {
		s.emisiones[k] = v
	}
	return s
}

func (m *Memoria) restaurar(s instantanea) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.miembros = s.miembros
	m.pagos = s.pagos
	m.deudas = s.deudas
	m.notificaciones = s.notificaciones
	m.notifPorMensaje = s.notifPorMensaje
	m.fraccionamientos = s.fraccionamientos
	m.emisiones = s.emisiones
	m.eventos = s.eventos
	m.sigMiembro, m.sigPago, m.sigDeuda, m.sigNotif, m.sigPlan, m.sigCuota, m.sigEvento =
		s.contadores[0], s.contadores[1], s.contadores[2], s.contadores[3], s.contadores[4], s.contadores[5], s.contadores[6]
}

func clonarPlan(f *models.Fraccionamiento) *models.Fraccionamiento {
	c := *f
	c.Cuotas = append([]models.Cuota(nil), f.Cuotas...)
	return &c
}

func contiene(lista []string, s string) bool {
	for _, v := range lista {
		if v == s {
			return true
		}
	}
	return false
}
