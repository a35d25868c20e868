// backend/handlers/ingesta.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"backend/services"
)

// NotificacionEntranteInput es el JSON que envía el reenviador de correos
// por cada mensaje bancario recibido en el buzón institucional.
type NotificacionEntranteInput struct {
	MensajeExternoID string `json:"id_mensaje_externo"`
	Remitente        string `json:"remitente"`
	Asunto           string `json:"asunto"`
	Cuerpo           string `json:"cuerpo"`
	FechaCabecera    string `json:"fecha_cabecera"` // RFC3339, opcional
}

// RecibirNotificacionBancaria maneja POST /webhook/notificaciones. Solo
// encola: el ciclo de ingesta parsea y concilia en background.
func (a *API) RecibirNotificacionBancaria(w http.ResponseWriter, r *http.Request) {
	var in NotificacionEntranteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Datos inválidos", http.StatusBadRequest)
		return
	}
	if in.MensajeExternoID == "" || in.Remitente == "" {
		http.Error(w, "Faltan id_mensaje_externo o remitente", http.StatusBadRequest)
		return
	}

	msg := services.MensajeCrudo{
		MensajeExternoID: in.MensajeExternoID,
		Remitente:        in.Remitente,
		Asunto:           in.Asunto,
		Cuerpo:           in.Cuerpo,
	}
	if in.FechaCabecera != "" {
		fecha, err := time.Parse(time.RFC3339, in.FechaCabecera)
		if err != nil {
			http.Error(w, "Fecha de cabecera inválida (use RFC3339)", http.StatusBadRequest)
			return
		}
		msg.FechaCabecera = &fecha
	}

	a.Buzon.Encolar(msg)
	escribirJSON(w, http.StatusAccepted, map[string]string{"mensaje": "Notificación encolada"})
}
