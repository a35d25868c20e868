// backend/handlers/conciliacion.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// ListarNotificaciones maneja GET /admin/notificaciones?estado=&limite=
func (a *API) ListarNotificaciones(w http.ResponseWriter, r *http.Request) {
	estado := r.URL.Query().Get("estado")
	limite, _ := strconv.Atoi(r.URL.Query().Get("limite"))

	notifs, err := a.Almacen.ListarNotificaciones(r.Context(), estado, limite)
	if err != nil {
		http.Error(w, "Error al leer notificaciones bancarias", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusOK, notifs)
}

// ResumenConciliacion maneja GET /admin/notificaciones/resumen
func (a *API) ResumenConciliacion(w http.ResponseWriter, r *http.Request) {
	resumen, err := a.Conciliador.Resumen(r.Context())
	if err != nil {
		http.Error(w, "Error al calcular el resumen", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusOK, resumen)
}

// ConciliarManualInput es el JSON de entrada del enlace manual.
type ConciliarManualInput struct {
	PagoID int `json:"id_pago"`
}

// ConciliarManual maneja PUT /admin/notificaciones/{id}/conciliar
func (a *API) ConciliarManual(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var in ConciliarManualInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Datos inválidos", http.StatusBadRequest)
		return
	}
	n, err := a.Conciliador.ConciliarManual(r.Context(), id, in.PagoID, operadorDesde(r))
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, n)
}

// IgnorarInput es el JSON de entrada para descartar una notificación.
type IgnorarInput struct {
	Motivo string `json:"motivo"`
}

// IgnorarNotificacion maneja PUT /admin/notificaciones/{id}/ignorar
func (a *API) IgnorarNotificacion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var in IgnorarInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Motivo == "" {
		http.Error(w, "Debe indicar un motivo", http.StatusBadRequest)
		return
	}
	n, err := a.Conciliador.MarcarIgnorada(r.Context(), id, operadorDesde(r), in.Motivo)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, n)
}

// VerificarPagoInput es el JSON del sondeo del pagador.
type VerificarPagoInput struct {
	Monto  string `json:"monto"`
	Metodo string `json:"metodo"`
}

// VerificarPago maneja POST /verificar-pago. Es la consulta síncrona
// "¿ya se confirmó mi pago?" del flujo del pagador.
func (a *API) VerificarPago(w http.ResponseWriter, r *http.Request) {
	var in VerificarPagoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Datos inválidos", http.StatusBadRequest)
		return
	}
	monto, err := decimal.NewFromString(in.Monto)
	if err != nil || !monto.IsPositive() {
		http.Error(w, "Monto inválido", http.StatusBadRequest)
		return
	}
	res, err := a.Conciliador.VerificarPago(r.Context(), a.Aprobador, monto, in.Metodo)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, res)
}
