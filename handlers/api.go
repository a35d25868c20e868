// backend/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"backend/repository"
	"backend/services"
)

// API agrupa los servicios que usan los handlers. Se construye en main y se
// inyecta completo, de modo que las pruebas puedan armarla sobre el almacén
// en memoria.
type API struct {
	Almacen      repository.Almacen
	Conciliador  *services.Conciliador
	Aprobador    *services.Aprobador
	Fraccionador *services.Fraccionador
	Habilitador  *services.Habilitador
	Cuotas       *services.ServicioCuotas
	Buzon        *services.BuzonMemoria
}

func escribirJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// responderError mapea los errores tipificados del motor a códigos HTTP.
func responderError(w http.ResponseWriter, err error) {
	var politica *services.ErrPolitica
	var estado *services.ErrEstadoInvalido
	switch {
	case errors.Is(err, services.ErrPagoNoEncontrado),
		errors.Is(err, services.ErrNotificacionNoEncontrada),
		errors.Is(err, services.ErrMiembroNoEncontrado),
		errors.Is(err, repository.ErrNoEncontrado):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &estado):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &politica):
		escribirJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":               politica.Error(),
			"regla":               politica.Regla,
			"max_cuotas_factible": politica.MaxCuotasFactible,
		})
	default:
		http.Error(w, "Error interno: "+err.Error(), http.StatusInternalServerError)
	}
}
