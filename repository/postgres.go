package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"backend/models"
)

// claveLedger es la clase de advisory lock usada para serializar el ledger
// por miembro (ver EnTransaccionMiembro).
const claveLedger = 4201

// ejecutor abstrae *pgxpool.Pool y pgx.Tx para que las mismas consultas
// sirvan dentro y fuera de una transacción.
type ejecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implementa Almacen sobre pgx. Los montos viajan como texto con
// cast explícito a numeric, para conservar la exactitud decimal.
type Postgres struct {
	pool *pgxpool.Pool
	q    ejecutor
}

// NuevoPostgres crea el almacén sobre un pool ya conectado.
func NuevoPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool}
}

// EnTransaccionMiembro abre una transacción, toma el advisory lock del
// miembro y ejecuta fn con un Almacen ligado a la transacción. Cualquier
// error revierte todo.
func (s *Postgres) EnTransaccionMiembro(ctx context.Context, miembroID int, fn func(Almacen) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, claveLedger, miembroID); err != nil {
			return fmt.Errorf("advisory lock miembro %d: %w", miembroID, err)
		}
		return fn(&Postgres{pool: s.pool, q: tx})
	})
}

func esDuplicado(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func decimalDesde(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// --- Miembros ---

const columnasMiembro = `id_miembro, nombre, numero_colegiatura, condicion, habilidad_vence, fecha_colegiatura, fecha_condicion`

func escanearMiembro(row pgx.Row) (*models.Miembro, error) {
	var m models.Miembro
	err := row.Scan(&m.ID, &m.Nombre, &m.NumeroColegiatura, &m.Condicion, &m.HabilidadVence, &m.FechaColegiatura, &m.FechaCondicion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Postgres) ObtenerMiembro(ctx context.Context, id int) (*models.Miembro, error) {
	return escanearMiembro(s.q.QueryRow(ctx,
		`SELECT `+columnasMiembro+` FROM miembros WHERE id_miembro = $1`, id))
}

func (s *Postgres) CrearMiembro(ctx context.Context, m *models.Miembro) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO miembros (nombre, numero_colegiatura, condicion, habilidad_vence, fecha_colegiatura, fecha_condicion)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id_miembro
	`, m.Nombre, m.NumeroColegiatura, m.Condicion, m.HabilidadVence, m.FechaColegiatura, m.FechaCondicion).Scan(&m.ID)
}

func (s *Postgres) ActualizarCondicion(ctx context.Context, miembroID int, condicion string, vence *time.Time, fecha time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE miembros SET condicion = $1, habilidad_vence = $2, fecha_condicion = $3
		WHERE id_miembro = $4
	`, condicion, vence, fecha, miembroID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoEncontrado
	}
	return nil
}

func (s *Postgres) MiembrosHabilesVencidos(ctx context.Context, ahora time.Time) ([]models.Miembro, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+columnasMiembro+` FROM miembros
		WHERE condicion = 'habil' AND habilidad_vence IS NOT NULL AND habilidad_vence < $1
		ORDER BY id_miembro
	`, ahora)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Miembro
	for rows.Next() {
		m, err := escanearMiembro(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// --- Pagos ---

const columnasPago = `id_pago, id_miembro, monto::text, metodo, estado, id_deuda, referencia, motivo_rechazo, fecha_creacion, fecha_revision, id_revisor`

func escanearPago(row pgx.Row) (*models.Pago, error) {
	var p models.Pago
	var monto string
	err := row.Scan(&p.ID, &p.MiembroID, &monto, &p.Metodo, &p.Estado, &p.DeudaID, &p.Referencia, &p.MotivoRechazo, &p.FechaCreacion, &p.FechaRevision, &p.RevisorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	p.Monto = decimalDesde(monto)
	return &p, nil
}

func (s *Postgres) CrearPago(ctx context.Context, p *models.Pago) error {
	if p.FechaCreacion.IsZero() {
		p.FechaCreacion = time.Now()
	}
	return s.q.QueryRow(ctx, `
		INSERT INTO pagos (id_miembro, monto, metodo, estado, id_deuda, referencia, fecha_creacion, fecha_revision, id_revisor)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id_pago
	`, p.MiembroID, p.Monto.StringFixed(2), p.Metodo, p.Estado, p.DeudaID, p.Referencia, p.FechaCreacion, p.FechaRevision, p.RevisorID).Scan(&p.ID)
}

func (s *Postgres) ObtenerPago(ctx context.Context, id int) (*models.Pago, error) {
	return escanearPago(s.q.QueryRow(ctx,
		`SELECT `+columnasPago+` FROM pagos WHERE id_pago = $1`, id))
}

func (s *Postgres) ActualizarPago(ctx context.Context, p *models.Pago) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE pagos SET estado = $1, id_deuda = $2, motivo_rechazo = $3, fecha_revision = $4, id_revisor = $5
		WHERE id_pago = $6
	`, p.Estado, p.DeudaID, p.MotivoRechazo, p.FechaRevision, p.RevisorID, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoEncontrado
	}
	return nil
}

func (s *Postgres) BuscarPagos(ctx context.Context, filtro FiltroPagos) ([]models.Pago, error) {
	sql := `SELECT ` + columnasPago + ` FROM pagos WHERE 1=1`
	var args []any
	if !filtro.Monto.IsZero() {
		args = append(args, filtro.Monto.StringFixed(2))
		sql += fmt.Sprintf(" AND monto = $%d::numeric", len(args))
	}
	if !filtro.Desde.IsZero() {
		args = append(args, filtro.Desde)
		sql += fmt.Sprintf(" AND fecha_creacion >= $%d", len(args))
	}
	if !filtro.Hasta.IsZero() {
		args = append(args, filtro.Hasta)
		sql += fmt.Sprintf(" AND fecha_creacion <= $%d", len(args))
	}
	if filtro.Estado != "" {
		args = append(args, filtro.Estado)
		sql += fmt.Sprintf(" AND estado = $%d", len(args))
	}
	if len(filtro.Metodos) > 0 {
		args = append(args, filtro.Metodos)
		sql += fmt.Sprintf(" AND metodo = ANY($%d)", len(args))
	}
	sql += " ORDER BY fecha_creacion"

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Pago
	for rows.Next() {
		p, err := escanearPago(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// --- Deudas ---

const columnasDeuda = `id_deuda, id_miembro, concepto, periodo, monto_original::text, saldo::text, estado, gestion, fecha_vencimiento, notificada, fecha_notificacion, id_fraccionamiento, fecha_creacion`

func escanearDeuda(row pgx.Row) (*models.Deuda, error) {
	var d models.Deuda
	var original, saldo string
	err := row.Scan(&d.ID, &d.MiembroID, &d.Concepto, &d.Periodo, &original, &saldo, &d.Estado, &d.Gestion, &d.FechaVencimiento, &d.Notificada, &d.FechaNotificacion, &d.FraccionamientoID, &d.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	d.MontoOriginal = decimalDesde(original)
	d.Saldo = decimalDesde(saldo)
	return &d, nil
}

func (s *Postgres) CrearDeuda(ctx context.Context, d *models.Deuda) error {
	if d.FechaCreacion.IsZero() {
		d.FechaCreacion = time.Now()
	}
	err := s.q.QueryRow(ctx, `
		INSERT INTO deudas (id_miembro, concepto, periodo, monto_original, saldo, estado, gestion, fecha_vencimiento, notificada, fecha_notificacion, id_fraccionamiento, fecha_creacion)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id_deuda
	`, d.MiembroID, d.Concepto, d.Periodo, d.MontoOriginal.StringFixed(2), d.Saldo.StringFixed(2), d.Estado, d.Gestion, d.FechaVencimiento, d.Notificada, d.FechaNotificacion, d.FraccionamientoID, d.FechaCreacion).Scan(&d.ID)
	if esDuplicado(err) {
		return ErrDuplicado
	}
	return err
}

func (s *Postgres) ObtenerDeuda(ctx context.Context, id int) (*models.Deuda, error) {
	return escanearDeuda(s.q.QueryRow(ctx,
		`SELECT `+columnasDeuda+` FROM deudas WHERE id_deuda = $1`, id))
}

func (s *Postgres) ActualizarDeuda(ctx context.Context, d *models.Deuda) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE deudas SET saldo = $1::numeric, estado = $2, gestion = $3, notificada = $4, fecha_notificacion = $5, id_fraccionamiento = $6, fecha_vencimiento = $7
		WHERE id_deuda = $8
	`, d.Saldo.StringFixed(2), d.Estado, d.Gestion, d.Notificada, d.FechaNotificacion, d.FraccionamientoID, d.FechaVencimiento, d.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoEncontrado
	}
	return nil
}

func (s *Postgres) deudas(ctx context.Context, sql string, args ...any) ([]models.Deuda, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Deuda
	for rows.Next() {
		d, err := escanearDeuda(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *Postgres) DeudasAbiertas(ctx context.Context, miembroID int) ([]models.Deuda, error) {
	return s.deudas(ctx, `
		SELECT `+columnasDeuda+` FROM deudas
		WHERE id_miembro = $1 AND estado IN ('pendiente', 'parcial')
		ORDER BY fecha_vencimiento, fecha_creacion, id_deuda
	`, miembroID)
}

func (s *Postgres) DeudasPorMiembro(ctx context.Context, miembroID int) ([]models.Deuda, error) {
	return s.deudas(ctx, `
		SELECT `+columnasDeuda+` FROM deudas WHERE id_miembro = $1 ORDER BY id_deuda
	`, miembroID)
}

// --- Notificaciones bancarias ---

const columnasNotif = `id_notificacion, id_mensaje_externo, banco, canal, tipo_operacion, monto::text, moneda, fecha_operacion, codigo_operacion, remitente, extracto, estado, id_pago, resuelto_por, fecha_resolucion, motivo_ignorado, fecha_creacion`

func escanearNotif(row pgx.Row) (*models.NotificacionBancaria, error) {
	var n models.NotificacionBancaria
	var monto string
	err := row.Scan(&n.ID, &n.MensajeExternoID, &n.Banco, &n.Canal, &n.TipoOperacion, &monto, &n.Moneda, &n.FechaOperacion, &n.CodigoOperacion, &n.Remitente, &n.Extracto, &n.Estado, &n.PagoID, &n.ResueltoPor, &n.FechaResolucion, &n.MotivoIgnorado, &n.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	n.Monto = decimalDesde(monto)
	return &n, nil
}

func (s *Postgres) CrearNotificacion(ctx context.Context, n *models.NotificacionBancaria) error {
	if n.FechaCreacion.IsZero() {
		n.FechaCreacion = time.Now()
	}
	err := s.q.QueryRow(ctx, `
		INSERT INTO notificaciones_bancarias
		  (id_mensaje_externo, banco, canal, tipo_operacion, monto, moneda, fecha_operacion, codigo_operacion, remitente, extracto, estado, fecha_creacion)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id_notificacion
	`, n.MensajeExternoID, n.Banco, n.Canal, n.TipoOperacion, n.Monto.StringFixed(2), n.Moneda, n.FechaOperacion, n.CodigoOperacion, n.Remitente, n.Extracto, n.Estado, n.FechaCreacion).Scan(&n.ID)
	if esDuplicado(err) {
		return ErrDuplicado
	}
	return err
}

func (s *Postgres) ObtenerNotificacion(ctx context.Context, id int) (*models.NotificacionBancaria, error) {
	return escanearNotif(s.q.QueryRow(ctx,
		`SELECT `+columnasNotif+` FROM notificaciones_bancarias WHERE id_notificacion = $1`, id))
}

func (s *Postgres) ActualizarNotificacion(ctx context.Context, n *models.NotificacionBancaria) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE notificaciones_bancarias
		SET estado = $1, id_pago = $2, resuelto_por = $3, fecha_resolucion = $4, motivo_ignorado = $5
		WHERE id_notificacion = $6
	`, n.Estado, n.PagoID, n.ResueltoPor, n.FechaResolucion, n.MotivoIgnorado, n.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoEncontrado
	}
	return nil
}

func (s *Postgres) notifs(ctx context.Context, sql string, args ...any) ([]models.NotificacionBancaria, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.NotificacionBancaria
	for rows.Next() {
		n, err := escanearNotif(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *Postgres) ListarNotificaciones(ctx context.Context, estado string, limite int) ([]models.NotificacionBancaria, error) {
	if limite <= 0 {
		limite = 200
	}
	if estado == "" {
		return s.notifs(ctx, `
			SELECT `+columnasNotif+` FROM notificaciones_bancarias
			ORDER BY fecha_creacion DESC LIMIT $1
		`, limite)
	}
	return s.notifs(ctx, `
		SELECT `+columnasNotif+` FROM notificaciones_bancarias
		WHERE estado = $1 ORDER BY fecha_creacion DESC LIMIT $2
	`, estado, limite)
}

func (s *Postgres) BuscarNotificaciones(ctx context.Context, monto decimal.Decimal, desde, hasta time.Time, estados []string) ([]models.NotificacionBancaria, error) {
	return s.notifs(ctx, `
		SELECT `+columnasNotif+` FROM notificaciones_bancarias
		WHERE monto = $1::numeric
		  AND estado = ANY($2)
		  AND COALESCE(fecha_operacion, fecha_creacion) BETWEEN $3 AND $4
		ORDER BY id_notificacion
	`, monto.StringFixed(2), estados, desde, hasta)
}

func (s *Postgres) PagoYaConciliado(ctx context.Context, pagoID int) (bool, error) {
	var existe bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notificaciones_bancarias WHERE estado = 'conciliado' AND id_pago = $1
		)
	`, pagoID).Scan(&existe)
	return existe, err
}

func (s *Postgres) ResumenNotificaciones(ctx context.Context) (*models.ResumenConciliacion, error) {
	rows, err := s.q.Query(ctx, `
		SELECT estado, COUNT(*) FROM notificaciones_bancarias GROUP BY estado
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	r := &models.ResumenConciliacion{}
	for rows.Next() {
		var estado string
		var cuenta int
		if err := rows.Scan(&estado, &cuenta); err != nil {
			return nil, err
		}
		r.Total += cuenta
		switch estado {
		case models.NotifPendiente:
			r.Pendientes = cuenta
		case models.NotifConciliado:
			r.Conciliadas = cuenta
		case models.NotifSinMatch:
			r.SinMatch = cuenta
		case models.NotifIgnorado:
			r.Ignoradas = cuenta
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if base := r.Total - r.Ignoradas; base > 0 {
		r.TasaVerificacion = float64(r.Conciliadas) / float64(base)
	}
	return r, nil
}

// --- Fraccionamientos ---

func (s *Postgres) CrearFraccionamiento(ctx context.Context, f *models.Fraccionamiento) error {
	if f.FechaCreacion.IsZero() {
		f.FechaCreacion = time.Now()
	}
	err := s.q.QueryRow(ctx, `
		INSERT INTO fraccionamientos (id_miembro, monto_total, cuota_inicial, num_cuotas, cuotas_pagadas, estado, fecha_creacion)
		VALUES ($1, $2::numeric, $3::numeric, $4, $5, $6, $7)
		RETURNING id_fraccionamiento
	`, f.MiembroID, f.MontoTotal.StringFixed(2), f.CuotaInicial.StringFixed(2), f.NumCuotas, f.CuotasPagadas, f.Estado, f.FechaCreacion).Scan(&f.ID)
	if err != nil {
		return err
	}
	for i := range f.Cuotas {
		c := &f.Cuotas[i]
		c.FraccionamientoID = f.ID
		if err := s.q.QueryRow(ctx, `
			INSERT INTO cuotas (id_fraccionamiento, numero, monto, fecha_vencimiento, pagada, id_deuda, id_pago)
			VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
			RETURNING id_cuota
		`, c.FraccionamientoID, c.Numero, c.Monto.StringFixed(2), c.FechaVencimiento, c.Pagada, c.DeudaID, c.PagoID).Scan(&c.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) ObtenerFraccionamiento(ctx context.Context, id int) (*models.Fraccionamiento, error) {
	f, err := s.escanearPlan(ctx, `
		SELECT id_fraccionamiento, id_miembro, monto_total::text, cuota_inicial::text, num_cuotas, cuotas_pagadas, estado, fecha_creacion
		FROM fraccionamientos WHERE id_fraccionamiento = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Postgres) escanearPlan(ctx context.Context, sql string, args ...any) (*models.Fraccionamiento, error) {
	var f models.Fraccionamiento
	var total, inicial string
	err := s.q.QueryRow(ctx, sql, args...).Scan(&f.ID, &f.MiembroID, &total, &inicial, &f.NumCuotas, &f.CuotasPagadas, &f.Estado, &f.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	f.MontoTotal = decimalDesde(total)
	f.CuotaInicial = decimalDesde(inicial)
	if err := s.cargarCuotas(ctx, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Postgres) cargarCuotas(ctx context.Context, f *models.Fraccionamiento) error {
	rows, err := s.q.Query(ctx, `
		SELECT id_cuota, id_fraccionamiento, numero, monto::text, fecha_vencimiento, pagada, id_deuda, id_pago
		FROM cuotas WHERE id_fraccionamiento = $1 ORDER BY numero
	`, f.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	f.Cuotas = nil
	for rows.Next() {
		var c models.Cuota
		var monto string
		if err := rows.Scan(&c.ID, &c.FraccionamientoID, &c.Numero, &monto, &c.FechaVencimiento, &c.Pagada, &c.DeudaID, &c.PagoID); err != nil {
			return err
		}
		c.Monto = decimalDesde(monto)
		f.Cuotas = append(f.Cuotas, c)
	}
	return rows.Err()
}

func (s *Postgres) ActualizarFraccionamiento(ctx context.Context, f *models.Fraccionamiento) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE fraccionamientos SET cuotas_pagadas = $1, estado = $2 WHERE id_fraccionamiento = $3
	`, f.CuotasPagadas, f.Estado, f.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoEncontrado
	}
	for i := range f.Cuotas {
		c := &f.Cuotas[i]
		if _, err := s.q.Exec(ctx, `
			UPDATE cuotas SET pagada = $1, id_pago = $2, id_deuda = $3 WHERE id_cuota = $4
		`, c.Pagada, c.PagoID, c.DeudaID, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) PlanActivo(ctx context.Context, miembroID int) (*models.Fraccionamiento, error) {
	return s.escanearPlan(ctx, `
		SELECT id_fraccionamiento, id_miembro, monto_total::text, cuota_inicial::text, num_cuotas, cuotas_pagadas, estado, fecha_creacion
		FROM fraccionamientos WHERE id_miembro = $1 AND estado = 'activo'
		ORDER BY id_fraccionamiento DESC LIMIT 1
	`, miembroID)
}

func (s *Postgres) PlanesActivos(ctx context.Context) ([]models.Fraccionamiento, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id_fraccionamiento FROM fraccionamientos WHERE estado = 'activo' ORDER BY id_fraccionamiento
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var out []models.Fraccionamiento
	for _, id := range ids {
		f, err := s.ObtenerFraccionamiento(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

// --- Emisiones ---

func (s *Postgres) CrearEmision(ctx context.Context, e *models.EmisionCertificado) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.FechaCreacion.IsZero() {
		e.FechaCreacion = time.Now()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO emisiones_certificado (id_emision, id_miembro, id_pago, estado, intentos, fecha_creacion)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID.String(), e.MiembroID, e.PagoID, e.Estado, e.Intentos, e.FechaCreacion)
	return err
}

func (s *Postgres) EmisionesPendientes(ctx context.Context, maxIntentos int) ([]models.EmisionCertificado, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id_emision, id_miembro, id_pago, estado, intentos, ultimo_error, fecha_creacion, fecha_emision
		FROM emisiones_certificado
		WHERE estado = 'pendiente' AND intentos < $1
		ORDER BY fecha_creacion
	`, maxIntentos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.EmisionCertificado
	for rows.Next() {
		var e models.EmisionCertificado
		var id string
		if err := rows.Scan(&id, &e.MiembroID, &e.PagoID, &e.Estado, &e.Intentos, &e.UltimoError, &e.FechaCreacion, &e.FechaEmision); err != nil {
			return nil, err
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("id de emisión inválido %q: %w", id, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) ActualizarEmision(ctx context.Context, e *models.EmisionCertificado) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE emisiones_certificado SET estado = $1, intentos = $2, ultimo_error = $3, fecha_emision = $4
		WHERE id_emision = $5
	`, e.Estado, e.Intentos, e.UltimoError, e.FechaEmision, e.ID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoEncontrado
	}
	return nil
}

// --- Auditoría ---

func (s *Postgres) RegistrarEvento(ctx context.Context, e *models.Evento) error {
	if e.FechaEvento.IsZero() {
		e.FechaEvento = time.Now()
	}
	return s.q.QueryRow(ctx, `
		INSERT INTO eventos (id_miembro, accion, referencia_tabla, referencia_id, descripcion, exito, fecha_evento)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id_evento
	`, e.MiembroID, e.Accion, e.ReferenciaTabla, e.ReferenciaID, e.Descripcion, e.Exito, e.FechaEvento).Scan(&e.ID)
}

func (s *Postgres) ListarEventos(ctx context.Context, miembroID int) ([]models.Evento, error) {
	sql := `SELECT id_evento, id_miembro, accion, referencia_tabla, referencia_id, descripcion, exito, fecha_evento FROM eventos`
	args := []any{}
	if miembroID != 0 {
		sql += ` WHERE id_miembro = $1`
		args = append(args, miembroID)
	}
	sql += ` ORDER BY fecha_evento DESC LIMIT 500`
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Evento
	for rows.Next() {
		var e models.Evento
		if err := rows.Scan(&e.ID, &e.MiembroID, &e.Accion, &e.ReferenciaTabla, &e.ReferenciaID, &e.Descripcion, &e.Exito, &e.FechaEvento); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
