package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backend/models"
	"backend/repository"
	"backend/utils"
)

// Fraccionador valida y crea planes de fraccionamiento y gestiona su
// pérdida por cuotas vencidas.
type Fraccionador struct {
	alm      repository.Almacen
	politica models.PoliticaCobranza
	// Ahora es inyectable en pruebas; por defecto time.Now.
	Ahora func() time.Time
}

// NuevoFraccionador crea el servicio de fraccionamiento.
func NuevoFraccionador(alm repository.Almacen, politica models.PoliticaCobranza) *Fraccionador {
	return &Fraccionador{alm: alm, politica: politica, Ahora: time.Now}
}

// ValidarYCrear evalúa la política en orden y, si se cumple, consolida la
// deuda abierta del miembro en un plan: cuota inicial aprobada, una deuda
// nueva por cada cuota programada, deudas previas congeladas y habilidad
// temporal hasta la primera cuota más la gracia. El primer incumplimiento
// devuelve *ErrPolitica con la condición exacta.
func (f *Fraccionador) ValidarYCrear(ctx context.Context, miembroID int, cuotaInicial decimal.Decimal, numCuotas int, metodoInicial string) (*models.Fraccionamiento, error) {
	if _, err := f.alm.ObtenerMiembro(ctx, miembroID); errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrMiembroNoEncontrado
	} else if err != nil {
		return nil, err
	}
	if metodoInicial == "" {
		metodoInicial = models.MetodoEfectivo
	}

	var plan *models.Fraccionamiento
	err := f.alm.EnTransaccionMiembro(ctx, miembroID, func(alm repository.Almacen) error {
		deudas, err := alm.DeudasAbiertas(ctx, miembroID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, d := range deudas {
			total = total.Add(d.Saldo)
		}

		// Política, en orden; el primer incumplimiento corta.
		if total.LessThan(f.politica.MontoMinimoFraccionable) {
			return &ErrPolitica{
				Regla:   "monto_minimo_fraccionable",
				Detalle: fmt.Sprintf("la deuda total %s no alcanza el mínimo fraccionable de %s", total.StringFixed(2), f.politica.MontoMinimoFraccionable.StringFixed(2)),
			}
		}
		minInicial := total.Mul(f.politica.PorcentajeCuotaInicial).Div(decimal.NewFromInt(100)).Round(2)
		if cuotaInicial.LessThan(minInicial) {
			return &ErrPolitica{
				Regla:   "cuota_inicial_minima",
				Detalle: fmt.Sprintf("la cuota inicial %s es menor al mínimo de %s (%s%% de %s)", cuotaInicial.StringFixed(2), minInicial.StringFixed(2), f.politica.PorcentajeCuotaInicial.StringFixed(0), total.StringFixed(2)),
			}
		}
		if numCuotas < 1 || numCuotas > f.politica.MaxCuotas {
			return &ErrPolitica{
				Regla:   "num_cuotas",
				Detalle: fmt.Sprintf("el número de cuotas %d está fuera del rango [1, %d]", numCuotas, f.politica.MaxCuotas),
			}
		}
		porFraccionar := total.Sub(cuotaInicial)
		porCuota := porFraccionar.Div(decimal.NewFromInt(int64(numCuotas))).RoundCeil(2)
		if porCuota.LessThan(f.politica.MontoMinimoCuota) {
			maxFactible := int(porFraccionar.Div(f.politica.MontoMinimoCuota).IntPart())
			return &ErrPolitica{
				Regla:             "monto_minimo_cuota",
				Detalle:           fmt.Sprintf("la cuota resultante %s es menor al mínimo de %s; el máximo de cuotas factible es %d", porCuota.StringFixed(2), f.politica.MontoMinimoCuota.StringFixed(2), maxFactible),
				MaxCuotasFactible: maxFactible,
			}
		}

		hoy := f.Ahora()
		primera := utils.ProximoDiaDeMes(hoy, f.politica.DiaVencimientoCuota)

		// Cronograma: la última cuota absorbe el resto del redondeo para que
		// inicial + suma(cuotas) == total exactamente. Cada vencimiento es la
		// próxima ocurrencia del día configurado, con ajuste por meses cortos.
		cuotas := make([]models.Cuota, numCuotas)
		acumulado := decimal.Zero
		vencimiento := primera
		for i := 0; i < numCuotas; i++ {
			monto := porCuota
			if i == numCuotas-1 {
				monto = porFraccionar.Sub(acumulado)
			}
			acumulado = acumulado.Add(monto)
			cuotas[i] = models.Cuota{
				Numero:           i + 1,
				Monto:            monto,
				FechaVencimiento: vencimiento,
			}
			vencimiento = utils.ProximoDiaDeMes(vencimiento, f.politica.DiaVencimientoCuota)
		}

		plan = &models.Fraccionamiento{
			MiembroID:     miembroID,
			MontoTotal:    total,
			CuotaInicial:  cuotaInicial,
			NumCuotas:     numCuotas,
			Estado:        models.PlanActivo,
			FechaCreacion: hoy,
			Cuotas:        cuotas,
		}
		if err := alm.CrearFraccionamiento(ctx, plan); err != nil {
			return err
		}

		// Congelar la deuda previa: deja de ser pagable directamente.
		for i := range deudas {
			d := deudas[i]
			d.Estado = models.DeudaFraccionada
			d.Gestion = models.GestionFraccionada
			d.FraccionamientoID = &plan.ID
			if err := alm.ActualizarDeuda(ctx, &d); err != nil {
				return err
			}
		}

		// Una deuda nueva por cada cuota programada.
		for i := range plan.Cuotas {
			c := &plan.Cuotas[i]
			deudaCuota := &models.Deuda{
				MiembroID:         miembroID,
				Concepto:          models.ConceptoCuotaFraccionamiento,
				MontoOriginal:     c.Monto,
				Saldo:             c.Monto,
				Estado:            models.DeudaPendiente,
				Gestion:           models.GestionVigente,
				FechaVencimiento:  c.FechaVencimiento,
				Notificada:        true, // el cronograma firmado notifica formalmente cada cuota
				FechaNotificacion: &hoy,
				FraccionamientoID: &plan.ID,
				FechaCreacion:     hoy,
			}
			if err := alm.CrearDeuda(ctx, deudaCuota); err != nil {
				return err
			}
			c.DeudaID = deudaCuota.ID
		}
		if err := alm.ActualizarFraccionamiento(ctx, plan); err != nil {
			return err
		}

		// Cuota inicial como pago ya aprobado.
		if cuotaInicial.IsPositive() {
			revisor := "fraccionamiento"
			pagoInicial := &models.Pago{
				MiembroID:     miembroID,
				Monto:         cuotaInicial,
				Metodo:        metodoInicial,
				Estado:        models.PagoAprobado,
				Referencia:    uuid.NewString(),
				FechaCreacion: hoy,
				FechaRevision: &hoy,
				RevisorID:     &revisor,
			}
			if err := alm.CrearPago(ctx, pagoInicial); err != nil {
				return err
			}
		}

		// Habilidad temporal atada al cronograma.
		vence := plan.Cuotas[0].FechaVencimiento.AddDate(0, 0, f.politica.DiasGracia)
		if err := alm.ActualizarCondicion(ctx, miembroID, models.CondicionHabil, &vence, hoy); err != nil {
			return err
		}
		mid := miembroID
		return alm.RegistrarEvento(ctx, &models.Evento{
			MiembroID:       &mid,
			Accion:          "fraccionamiento_creado",
			ReferenciaTabla: "fraccionamientos",
			ReferenciaID:    plan.ID,
			Descripcion:     fmt.Sprintf("Plan de %d cuotas por %s con inicial %s; habilidad temporal hasta %s", numCuotas, total.StringFixed(2), cuotaInicial.StringFixed(2), vence.Format(time.DateOnly)),
			Exito:           true,
			FechaEvento:     hoy,
		})
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// registrarPagoCuota avanza el plan cuando la asignación saldó la deuda de
// una cuota: marca la cuota, extiende la habilidad temporal hasta la próxima
// impaga más la gracia y completa el plan cuando no quedan cuotas.
// Corre dentro de la transacción de aprobación.
func registrarPagoCuota(ctx context.Context, alm repository.Almacen, politica models.PoliticaCobranza, deuda *models.Deuda, pagoID int, ahora time.Time) error {
	plan, err := alm.ObtenerFraccionamiento(ctx, *deuda.FraccionamientoID)
	if err != nil {
		return err
	}
	if plan.Estado != models.PlanActivo {
		return nil
	}
	for i := range plan.Cuotas {
		c := &plan.Cuotas[i]
		if c.DeudaID == deuda.ID && !c.Pagada {
			c.Pagada = true
			c.PagoID = &pagoID
			plan.CuotasPagadas++
			break
		}
	}

	var vence *time.Time
	descripcion := ""
	if proxima := plan.ProximaCuotaImpaga(); proxima != nil {
		v := proxima.FechaVencimiento.AddDate(0, 0, politica.DiasGracia)
		vence = &v
		descripcion = fmt.Sprintf("Cuota pagada; habilidad extendida hasta %s", v.Format(time.DateOnly))
	} else {
		plan.Estado = models.PlanCompletado
		descripcion = "Última cuota pagada; plan completado y habilidad sin vencimiento"
	}
	if err := alm.ActualizarFraccionamiento(ctx, plan); err != nil {
		return err
	}
	if err := alm.ActualizarCondicion(ctx, plan.MiembroID, models.CondicionHabil, vence, ahora); err != nil {
		return err
	}
	mid := plan.MiembroID
	return alm.RegistrarEvento(ctx, &models.Evento{
		MiembroID:       &mid,
		Accion:          "cuota_pagada",
		ReferenciaTabla: "fraccionamientos",
		ReferenciaID:    plan.ID,
		Descripcion:     descripcion,
		Exito:           true,
		FechaEvento:     ahora,
	})
}

// RevisarPlanesVencidos pierde los planes con dos cuotas consecutivas
// vencidas sin pago: reabre las cuotas impagas como deuda ordinaria y deja al
// miembro inhábil. La pérdida no es reversible automáticamente.
func (f *Fraccionador) RevisarPlanesVencidos(ctx context.Context, ahora time.Time) (int, error) {
	planes, err := f.alm.PlanesActivos(ctx)
	if err != nil {
		return 0, err
	}
	perdidos := 0
	for i := range planes {
		plan := planes[i]
		if plan.CuotasVencidasConsecutivas(ahora) < 2 {
			continue
		}
		err := f.alm.EnTransaccionMiembro(ctx, plan.MiembroID, func(alm repository.Almacen) error {
			p, err := alm.ObtenerFraccionamiento(ctx, plan.ID)
			if err != nil {
				return err
			}
			if p.Estado != models.PlanActivo {
				return nil
			}
			p.Estado = models.PlanPerdido
			if err := alm.ActualizarFraccionamiento(ctx, p); err != nil {
				return err
			}
			// Reabrir las cuotas impagas como deuda ordinaria exigible.
			for _, c := range p.Cuotas {
				if c.Pagada {
					continue
				}
				d, err := alm.ObtenerDeuda(ctx, c.DeudaID)
				if err != nil {
					return err
				}
				d.FraccionamientoID = nil
				d.Gestion = models.GestionEnCobranza
				if err := alm.ActualizarDeuda(ctx, d); err != nil {
					return err
				}
			}
			if err := alm.ActualizarCondicion(ctx, p.MiembroID, models.CondicionInhabil, nil, ahora); err != nil {
				return err
			}
			mid := p.MiembroID
			return alm.RegistrarEvento(ctx, &models.Evento{
				MiembroID:       &mid,
				Accion:          "plan_perdido",
				ReferenciaTabla: "fraccionamientos",
				ReferenciaID:    p.ID,
				Descripcion:     "Dos cuotas consecutivas vencidas sin pago; cuotas impagas reabiertas como deuda ordinaria",
				Exito:           true,
				FechaEvento:     ahora,
			})
		})
		if err != nil {
			return perdidos, err
		}
		perdidos++
	}
	return perdidos, nil
}
