package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backend/models"
	"backend/repository"
	"backend/utils"
)

// ServicioCuotas infiere las cuotas mensuales ordinarias. Las cuotas no se
// materializan de antemano: se recalculan en cada consulta, porque el monto
// base o una exoneración pueden cambiar retroactivamente.
type ServicioCuotas struct {
	alm      repository.Almacen
	politica models.PoliticaCobranza
}

// NuevoServicioCuotas crea el servicio de cuotas ordinarias.
func NuevoServicioCuotas(alm repository.Almacen, politica models.PoliticaCobranza) *ServicioCuotas {
	return &ServicioCuotas{alm: alm, politica: politica}
}

// CuotaPendiente es un periodo mensual adeudado, valuado al monto base
// vigente del concepto.
type CuotaPendiente struct {
	Periodo       string          `json:"periodo"`
	Monto         decimal.Decimal `json:"monto"`
	Vencida       bool            `json:"vencida"`
	Materializada bool            `json:"materializada"`
	DeudaID       *int            `json:"id_deuda,omitempty"`
}

// CuotasPendientes genera los periodos desde la colegiatura hasta el mes
// actual (o hasta el mes del cambio de condición si el miembro es vitalicio o
// fallecido), resta los pagados y los exonerados/condonados, y devuelve el
// resto con su marca de vencimiento.
func (s *ServicioCuotas) CuotasPendientes(ctx context.Context, miembroID int, hoy time.Time) ([]CuotaPendiente, error) {
	m, err := s.alm.ObtenerMiembro(ctx, miembroID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrMiembroNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	fin := hoy
	if m.CondicionTerminal() && m.FechaCondicion.Before(fin) {
		fin = m.FechaCondicion
	}
	periodos := utils.PeriodosEntre(m.FechaColegiatura, fin)
	if len(periodos) == 0 {
		return nil, nil
	}

	deudas, err := s.alm.DeudasPorMiembro(ctx, miembroID)
	if err != nil {
		return nil, err
	}
	cubiertos := make(map[string]bool)
	materializadas := make(map[string]int)
	for _, d := range deudas {
		if d.Concepto != models.ConceptoCuotaMensual || d.Periodo == "" {
			continue
		}
		switch {
		case d.Estado == models.DeudaPagada,
			d.Gestion == models.GestionCondonada,
			d.Gestion == models.GestionExonerada:
			cubiertos[d.Periodo] = true
		default:
			materializadas[d.Periodo] = d.ID
		}
	}

	var pendientes []CuotaPendiente
	for _, periodo := range periodos {
		if cubiertos[periodo] {
			continue
		}
		finPeriodo, err := utils.FinDePeriodo(periodo)
		if err != nil {
			return nil, err
		}
		cp := CuotaPendiente{
			Periodo: periodo,
			Monto:   s.politica.MontoCuotaMensual,
			Vencida: finPeriodo.Before(hoy),
		}
		if id, ok := materializadas[periodo]; ok {
			cp.Materializada = true
			deudaID := id
			cp.DeudaID = &deudaID
		}
		pendientes = append(pendientes, cp)
	}
	return pendientes, nil
}

// MaterializarDeuda convierte un periodo inferido en una deuda almacenada,
// para que los pagos puedan asignarse contra ella. Es idempotente por la
// unicidad (miembro, concepto, periodo).
func (s *ServicioCuotas) MaterializarDeuda(ctx context.Context, miembroID int, periodo string) (*models.Deuda, error) {
	pendientes, err := s.CuotasPendientes(ctx, miembroID, time.Now())
	if err != nil {
		return nil, err
	}
	var objetivo *CuotaPendiente
	for i := range pendientes {
		if pendientes[i].Periodo == periodo {
			objetivo = &pendientes[i]
			break
		}
	}
	if objetivo == nil {
		return nil, fmt.Errorf("el periodo %s no está pendiente para el miembro %d", periodo, miembroID)
	}
	if objetivo.Materializada {
		return s.alm.ObtenerDeuda(ctx, *objetivo.DeudaID)
	}

	vencimiento, err := utils.FinDePeriodo(periodo)
	if err != nil {
		return nil, err
	}
	d := &models.Deuda{
		MiembroID:        miembroID,
		Concepto:         models.ConceptoCuotaMensual,
		Periodo:          periodo,
		MontoOriginal:    s.politica.MontoCuotaMensual,
		Saldo:            s.politica.MontoCuotaMensual,
		Estado:           models.DeudaPendiente,
		Gestion:          models.GestionVigente,
		FechaVencimiento: vencimiento,
	}
	if err := s.alm.CrearDeuda(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, fmt.Errorf("el periodo %s ya está materializado: %w", periodo, err)
		}
		return nil, err
	}
	return d, nil
}
