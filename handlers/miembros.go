// backend/handlers/miembros.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"backend/models"

	"github.com/gorilla/mux"
)

// CrearMiembroInput es el JSON de alta de un colegiado.
type CrearMiembroInput struct {
	Nombre            string `json:"nombre"`
	NumeroColegiatura string `json:"numero_colegiatura"`
	FechaColegiatura  string `json:"fecha_colegiatura"` // YYYY-MM-DD
}

// CrearMiembro maneja POST /admin/miembros
func (a *API) CrearMiembro(w http.ResponseWriter, r *http.Request) {
	var in CrearMiembroInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Datos inválidos", http.StatusBadRequest)
		return
	}
	if in.Nombre == "" || in.NumeroColegiatura == "" {
		http.Error(w, "Nombre y número de colegiatura son obligatorios", http.StatusBadRequest)
		return
	}
	colegiatura, err := time.Parse("2006-01-02", in.FechaColegiatura)
	if err != nil {
		http.Error(w, "Fecha de colegiatura inválida (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	m := &models.Miembro{
		Nombre:            in.Nombre,
		NumeroColegiatura: in.NumeroColegiatura,
		Condicion:         models.CondicionInhabil,
		FechaColegiatura:  colegiatura,
		FechaCondicion:    time.Now(),
	}
	if err := a.Almacen.CrearMiembro(r.Context(), m); err != nil {
		http.Error(w, "Error al registrar el miembro", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusCreated, m)
}

// ObtenerMiembro maneja GET /admin/miembros/{id}
func (a *API) ObtenerMiembro(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	m, err := a.Almacen.ObtenerMiembro(r.Context(), id)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, m)
}

// CambiarCondicionInput es el JSON del cambio manual de condición.
type CambiarCondicionInput struct {
	Condicion string `json:"condicion"`
	Motivo    string `json:"motivo"`
}

// CambiarCondicion maneja PUT /admin/miembros/{id}/condicion
func (a *API) CambiarCondicion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var in CambiarCondicionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Condicion == "" {
		http.Error(w, "Debe indicar la condición destino", http.StatusBadRequest)
		return
	}
	if err := a.Habilitador.CambiarCondicion(r.Context(), id, in.Condicion, in.Motivo, operadorDesde(r)); err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]string{"mensaje": "Condición actualizada"})
}

// DeudasDeMiembro maneja GET /admin/miembros/{id}/deudas
func (a *API) DeudasDeMiembro(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	if _, err := a.Almacen.ObtenerMiembro(r.Context(), id); err != nil {
		responderError(w, err)
		return
	}
	deudas, err := a.Almacen.DeudasPorMiembro(r.Context(), id)
	if err != nil {
		http.Error(w, "Error al listar deudas", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusOK, deudas)
}

// CuotasPendientesDeMiembro maneja GET /admin/miembros/{id}/cuotas-pendientes.
// Incluye los periodos implícitos aún no materializados como deuda.
func (a *API) CuotasPendientesDeMiembro(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	cuotas, err := a.Cuotas.CuotasPendientes(r.Context(), id, time.Now())
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, cuotas)
}

// MaterializarCuotaInput es el JSON de materialización de un periodo.
type MaterializarCuotaInput struct {
	Periodo string `json:"periodo"` // YYYY-MM
}

// MaterializarCuota maneja POST /admin/miembros/{id}/cuotas
func (a *API) MaterializarCuota(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	var in MaterializarCuotaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Periodo == "" {
		http.Error(w, "Debe indicar el periodo", http.StatusBadRequest)
		return
	}
	deuda, err := a.Cuotas.MaterializarDeuda(r.Context(), id, in.Periodo)
	if err != nil {
		responderError(w, err)
		return
	}
	escribirJSON(w, http.StatusCreated, deuda)
}

// EventosDeMiembro maneja GET /admin/miembros/{id}/eventos
func (a *API) EventosDeMiembro(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return
	}
	eventos, err := a.Almacen.ListarEventos(r.Context(), id)
	if err != nil {
		http.Error(w, "Error al listar eventos", http.StatusInternalServerError)
		return
	}
	escribirJSON(w, http.StatusOK, eventos)
}
