// backend/handlers/pagos.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"backend/models"
	"backend/repository"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// CrearPagoInput es el JSON de registro de un pago declarado.
type CrearPagoInput struct {
	MiembroID  int    `json:"id_miembro"`
	Monto      string `json:"monto"`
	Metodo     string `json:"metodo"`
	Referencia string `json:"referencia"`
}

// CrearPago maneja POST /admin/pagos. El pago nace en revisión; la
// aprobación es un paso separado.
func (a *API) CrearPago(w http.ResponseWriter, r *http.Request) {
	var in CrearPagoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Datos inválidos", http.StatusBadRequest)
		return
	}
	monto, err := decimal.NewFromString(in.Monto)
	if err != nil || !monto.IsPositive() {
		http.Error(w, "Monto inválido", http.StatusBadRequest)
		return
	}
	if in.Metodo == "" {
		http.Error(w, "Debe indicar el método de pago", http.StatusBadRequest)
		return
	}
	if _, err := a.Almacen.ObtenerMiembro(r.Context(), in.MiembroID); err != nil {
		responderError(w, err)
		return
	}

	pago := &models.Pago{
		MiembroID:     in.MiembroID,
		Monto:         monto,
		Metodo:        in.Metodo,
		Estado:        models.PagoEnRevision,
		Referencia:    in.Referencia,
		FechaCreacion: time.Now(),
	}
	if err := a.Almacen.CrearPago(r.Context(), pago); err != nil {
		http.Error(w, "Error al registrar el pago", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusCreated, pago)
}

// ObtenerPago maneja GET /admin/pagos/{id}
func (a *API) ObtenerPago(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	pago, err := a.Almacen.ObtenerPago(r.Context(), id)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, pago)
}

// ListarPagos maneja GET /admin/pagos?estado=
func (a *API) ListarPagos(w http.ResponseWriter, r *http.Request) {
	filtro := repository.FiltroPagos{Estado: r.URL.Query().Get("estado")}
	pagos, err := a.Almacen.BuscarPagos(r.Context(), filtro)
	if err != nil {
		http.Error(w, "Error al listar pagos", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusOK, pagos)
}

// AprobarPago maneja PUT /admin/pagos/{id}/aprobar. La respuesta incluye
// el detalle de asignación FIFO y el excedente si lo hubo.
func (a *API) AprobarPago(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	res, err := a.Aprobador.Aprobar(r.Context(), id, operadorDesde(r))
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, res)
}

// RechazarPagoInput es el JSON de entrada del rechazo.
type RechazarPagoInput struct {
	Motivo string `json:"motivo"`
}

// RechazarPago maneja PUT /admin/pagos/{id}/rechazar
func (a *API) RechazarPago(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var in RechazarPagoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Motivo == "" {
		http.Error(w, "Debe indicar un motivo", http.StatusBadRequest)
		return
	}
	if err := a.Aprobador.Rechazar(r.Context(), id, operadorDesde(r), in.Motivo); err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]string{"mensaje": "Pago rechazado"})
}
