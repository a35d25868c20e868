package handlers

import (
	"context"
	"net/http"
)

type ctxKey string

// CtxOperadorKey lleva la identidad del operador de mesa de partes en el
// contexto de la petición. La autenticación real vive en otro servicio: aquí
// solo se consume la cabecera que ese servicio inyecta.
const CtxOperadorKey ctxKey = "operador"

// OperadorMiddleware exige la cabecera X-Operador-ID en las rutas de
// administración.
func OperadorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operador := r.Header.Get("X-Operador-ID")
		if operador == "" {
			http.Error(w, "Operador no identificado", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), CtxOperadorKey, operador)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func operadorDesde(r *http.Request) string {
	if v, ok := r.Context().Value(CtxOperadorKey).(string); ok {
		return v
	}
	return ""
}
