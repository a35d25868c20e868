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

// Aprobador ejecuta la transición de aprobación de pagos y la asignación FIFO
// sobre el ledger de deudas. Es, junto con el Fraccionador, el único escritor
// del ledger.
type Aprobador struct {
	alm      repository.Almacen
	politica models.PoliticaCobranza
}

// NuevoAprobador crea el servicio de aprobación.
func NuevoAprobador(alm repository.Almacen, politica models.PoliticaCobranza) *Aprobador {
	return &Aprobador{alm: alm, politica: politica}
}

// Asignacion es la reducción aplicada a una deuda concreta.
type Asignacion struct {
	DeudaID int             `json:"id_deuda"`
	Monto   decimal.Decimal `json:"monto"`
}

// ResultadoAprobacion resume el efecto de aprobar un pago. Excedente es el
// sobrante cuando el pago supera toda la deuda abierta: se reporta, nunca se
// aplica automáticamente.
type ResultadoAprobacion struct {
	PagoID         int             `json:"id_pago"`
	YaAprobado     bool            `json:"ya_aprobado"`
	Asignaciones   []Asignacion    `json:"asignaciones"`
	Excedente      decimal.Decimal `json:"excedente"`
	NuevaCondicion *string         `json:"nueva_condicion,omitempty"`
}

// Aprobar pasa un pago de revisión a aprobado y asigna su monto a las deudas
// abiertas del miembro en orden FIFO (vencimiento y luego creación). Reaprobar
// un pago ya aprobado es un no-op exitoso. Todo corre dentro de una unidad
// atómica serializada por miembro: un fallo a mitad de asignación revierte el
// pago a revisión.
func (a *Aprobador) Aprobar(ctx context.Context, pagoID int, revisor string) (*ResultadoAprobacion, error) {
	pago, err := a.alm.ObtenerPago(ctx, pagoID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrPagoNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	var res *ResultadoAprobacion
	err = a.alm.EnTransaccionMiembro(ctx, pago.MiembroID, func(alm repository.Almacen) error {
		p, err := alm.ObtenerPago(ctx, pagoID)
		if err != nil {
			return err
		}
		if p.Estado == models.PagoAprobado {
			res = &ResultadoAprobacion{PagoID: p.ID, YaAprobado: true, Excedente: decimal.Zero}
			return nil
		}
		if p.Estado != models.PagoEnRevision {
			return &ErrEstadoInvalido{Entidad: "pago", Actual: p.Estado, Esperado: models.PagoEnRevision}
		}

		ahora := time.Now()

		// 1) Transición del pago
		p.Estado = models.PagoAprobado
		p.FechaRevision = &ahora
		p.RevisorID = &revisor
		if err := alm.ActualizarPago(ctx, p); err != nil {
			return err
		}

		// 2) Asignación FIFO sobre deudas abiertas
		deudas, err := alm.DeudasAbiertas(ctx, p.MiembroID)
		if err != nil {
			return err
		}
		resto := p.Monto
		var asignaciones []Asignacion
		var cuotasSaldadas []models.Deuda
		for i := range deudas {
			if !resto.IsPositive() {
				break
			}
			d := deudas[i]
			aplicado := decimal.Min(resto, d.Saldo)
			d.Saldo = d.Saldo.Sub(aplicado)
			if d.Saldo.IsZero() {
				d.Estado = models.DeudaPagada
			} else {
				d.Estado = models.DeudaParcial
			}
			if err := alm.ActualizarDeuda(ctx, &d); err != nil {
				return err
			}
			resto = resto.Sub(aplicado)
			asignaciones = append(asignaciones, Asignacion{DeudaID: d.ID, Monto: aplicado})
			if d.Estado == models.DeudaPagada && d.Concepto == models.ConceptoCuotaFraccionamiento && d.FraccionamientoID != nil {
				cuotasSaldadas = append(cuotasSaldadas, d)
			}
		}

		// 2b) Cuotas de fraccionamiento saldadas: avanzar el plan y extender
		// la habilidad temporal.
		for i := range cuotasSaldadas {
			if err := registrarPagoCuota(ctx, alm, a.politica, &cuotasSaldadas[i], p.ID, ahora); err != nil {
				return err
			}
		}

		res = &ResultadoAprobacion{PagoID: p.ID, Asignaciones: asignaciones, Excedente: decimal.Zero}

		// 2c) Excedente: se reporta y audita, no se aplica
		if resto.IsPositive() {
			res.Excedente = resto
			mid := p.MiembroID
			if err := alm.RegistrarEvento(ctx, &models.Evento{
				MiembroID:       &mid,
				Accion:          "excedente_pago",
				ReferenciaTabla: "pagos",
				ReferenciaID:    p.ID,
				Descripcion:     fmt.Sprintf("El pago %d dejó un excedente de %s sin aplicar", p.ID, resto.StringFixed(2)),
				Exito:           true,
				FechaEvento:     ahora,
			}); err != nil {
				return err
			}
		}

		// 3) ¿Quedó el miembro sin deuda abierta?
		abiertas, err := alm.DeudasAbiertas(ctx, p.MiembroID)
		if err != nil {
			return err
		}
		if len(abiertas) == 0 {
			miembro, err := alm.ObtenerMiembro(ctx, p.MiembroID)
			if err != nil {
				return err
			}
			if miembro.Condicion == models.CondicionInhabil {
				if err := alm.ActualizarCondicion(ctx, miembro.ID, models.CondicionHabil, nil, ahora); err != nil {
					return err
				}
				nueva := models.CondicionHabil
				res.NuevaCondicion = &nueva
				mid := miembro.ID
				if err := alm.RegistrarEvento(ctx, &models.Evento{
					MiembroID:       &mid,
					Accion:          "cambio_condicion",
					ReferenciaTabla: "pagos",
					ReferenciaID:    p.ID,
					Descripcion:     "inhabil -> habil: deuda saldada en su totalidad",
					Exito:           true,
					FechaEvento:     ahora,
				}); err != nil {
					return err
				}
				// 4) Encolar la emisión de certificado; se despacha después
				// de confirmar la transacción y sus fallos nunca revierten el
				// estado financiero.
				if err := alm.CrearEmision(ctx, &models.EmisionCertificado{
					MiembroID:     miembro.ID,
					PagoID:        p.ID,
					Estado:        models.EmisionPendiente,
					FechaCreacion: ahora,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.YaAprobado {
		log.Printf("Pago %d ya estaba aprobado; reaprobación sin efecto", pagoID)
	}
	return res, nil
}

// Rechazar pasa un pago de revisión a rechazado. Rechazar un pago ya
// rechazado es un no-op; rechazar un pago aprobado es conflicto.
func (a *Aprobador) Rechazar(ctx context.Context, pagoID int, revisor, motivo string) error {
	pago, err := a.alm.ObtenerPago(ctx, pagoID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return ErrPagoNoEncontrado
	}
	if err != nil {
		return err
	}
	if pago.Estado == models.PagoRechazado {
		return nil
	}
	if pago.Estado != models.PagoEnRevision {
		return &ErrEstadoInvalido{Entidad: "pago", Actual: pago.Estado, Esperado: models.PagoEnRevision}
	}
	ahora := time.Now()
	pago.Estado = models.PagoRechazado
	pago.FechaRevision = &ahora
	pago.RevisorID = &revisor
	pago.MotivoRechazo = &motivo
	return a.alm.ActualizarPago(ctx, pago)
}
