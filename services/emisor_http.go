package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmisorHTTP emite certificados contra el servicio externo de constancias.
// El servicio responde con el folio del documento generado.
type EmisorHTTP struct {
	baseURL string
	cliente *http.Client
}

// NuevoEmisorHTTP crea el emisor apuntando a baseURL.
func NuevoEmisorHTTP(baseURL string) *EmisorHTTP {
	return &EmisorHTTP{
		baseURL: baseURL,
		cliente: &http.Client{Timeout: 15 * time.Second},
	}
}

// Emitir solicita la generación del certificado de habilidad.
func (e *EmisorHTTP) Emitir(ctx context.Context, miembroID, pagoID int) (string, error) {
	cuerpo, err := json.Marshal(map[string]int{
		"id_miembro": miembroID,
		"id_pago":    pagoID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/certificados", bytes.NewReader(cuerpo))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.cliente.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("servicio de certificados respondió %d", resp.StatusCode)
	}

	var out struct {
		Folio string `json:"folio"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Folio, nil
}
