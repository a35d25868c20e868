// backend/handlers/fraccionamientos.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// CrearFraccionamientoInput es el JSON de solicitud de un plan de pagos.
type CrearFraccionamientoInput struct {
	MiembroID     int    `json:"id_miembro"`
	CuotaInicial  string `json:"cuota_inicial"`
	NumCuotas     int    `json:"num_cuotas"`
	MetodoInicial string `json:"metodo_inicial"`
}

// CrearFraccionamiento maneja POST /admin/fraccionamientos. Valida la
// política de cobranza y, si pasa, congela las deudas origen, emite el
// cronograma y registra la cuota inicial como pago aprobado.
func (a *API) CrearFraccionamiento(w http.ResponseWriter, r *http.Request) {
	var in CrearFraccionamientoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Datos inválidos", http.StatusBadRequest)
		return
	}
	cuotaInicial, err := decimal.NewFromString(in.CuotaInicial)
	if err != nil || cuotaInicial.IsNegative() {
		http.Error(w, "Cuota inicial inválida", http.StatusBadRequest)
		return
	}
	if in.MetodoInicial == "" {
		http.Error(w, "Debe indicar el método de la cuota inicial", http.StatusBadRequest)
		return
	}
	plan, err := a.Fraccionador.ValidarYCrear(r.Context(), in.MiembroID, cuotaInicial, in.NumCuotas, in.MetodoInicial)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusCreated, plan)
}

// ObtenerFraccionamiento maneja GET /admin/fraccionamientos/{id}
func (a *API) ObtenerFraccionamiento(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	plan, err := a.Almacen.ObtenerFraccionamiento(r.Context(), id)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, plan)
}

// PlanActivoDeMiembro maneja GET /admin/miembros/{id}/fraccionamiento
func (a *API) PlanActivoDeMiembro(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	plan, err := a.Almacen.PlanActivo(r.Context(), id)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, plan)
}
