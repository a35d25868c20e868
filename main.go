// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"backend/db"
	"backend/handlers"
	"backend/models"
	"backend/repository"
	"backend/services"
)

func habilitarCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Operador-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	// 0️⃣ Configuración y conexión a la base
	if err := godotenv.Load(); err != nil {
		log.Println("Sin archivo .env, usando variables de entorno")
	}
	db.Conectar()
	defer db.Pool.Close()

	// 1️⃣ Armar servicios sobre el almacén Postgres
	alm := repository.NuevoPostgres(db.Pool)
	politica := models.PoliticaPorDefecto()

	conciliador := services.NuevoConciliador(alm, politica)
	aprobador := services.NuevoAprobador(alm, politica)
	fraccionador := services.NuevoFraccionador(alm, politica)
	habilitador := services.NuevoHabilitador(alm)
	cuotas := services.NuevoServicioCuotas(alm, politica)
	buzon := services.NuevoBuzonMemoria()
	ingestor := services.NuevoIngestor(alm, buzon, conciliador)

	certURL := os.Getenv("CERTIFICADOS_URL")
	if certURL == "" {
		certURL = "http://localhost:3100"
	}
	despachador := services.NuevoDespachadorCertificados(alm, services.NuevoEmisorHTTP(certURL), 5)

	api := &handlers.API{
		Almacen:      alm,
		Conciliador:  conciliador,
		Aprobador:    aprobador,
		Fraccionador: fraccionador,
		Habilitador:  habilitador,
		Cuotas:       cuotas,
		Buzon:        buzon,
	}

	// 2️⃣ Configurar router y rutas
	r := mux.NewRouter()

	// — PÚBLICAS —
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Backend de cobranzas funcionando correctamente")
	}).Methods("GET")
	r.HandleFunc("/verificar-pago", api.VerificarPago).Methods("POST")
	r.HandleFunc("/webhook/notificaciones", api.RecibirNotificacionBancaria).Methods("POST")

	// — MESA DE PARTES (operador) —
	adm := r.PathPrefix("/admin").Subrouter()
	adm.Use(handlers.OperadorMiddleware)

	// • Miembros
	adm.HandleFunc("/miembros", api.CrearMiembro).Methods("POST")
	adm.HandleFunc("/miembros/{id}", api.ObtenerMiembro).Methods("GET")
	adm.HandleFunc("/miembros/{id}/condicion", api.CambiarCondicion).Methods("PUT")
	adm.HandleFunc("/miembros/{id}/deudas", api.DeudasDeMiembro).Methods("GET")
	adm.HandleFunc("/miembros/{id}/cuotas-pendientes", api.CuotasPendientesDeMiembro).Methods("GET")
	adm.HandleFunc("/miembros/{id}/cuotas", api.MaterializarCuota).Methods("POST")
	adm.HandleFunc("/miembros/{id}/eventos", api.EventosDeMiembro).Methods("GET")
	adm.HandleFunc("/miembros/{id}/fraccionamiento", api.PlanActivoDeMiembro).Methods("GET")

	// • Pagos
	adm.HandleFunc("/pagos", api.CrearPago).Methods("POST")
	adm.HandleFunc("/pagos", api.ListarPagos).Methods("GET")
	adm.HandleFunc("/pagos/{id}", api.ObtenerPago).Methods("GET")
	adm.HandleFunc("/pagos/{id}/aprobar", api.AprobarPago).Methods("PUT")
	adm.HandleFunc("/pagos/{id}/rechazar", api.RechazarPago).Methods("PUT")

	// • Conciliación bancaria
	adm.HandleFunc("/notificaciones", api.ListarNotificaciones).Methods("GET")
	adm.HandleFunc("/notificaciones/resumen", api.ResumenConciliacion).Methods("GET")
	adm.HandleFunc("/notificaciones/{id}/conciliar", api.ConciliarManual).Methods("PUT")
	adm.HandleFunc("/notificaciones/{id}/ignorar", api.IgnorarNotificacion).Methods("PUT")

	// • Fraccionamientos
	adm.HandleFunc("/fraccionamientos", api.CrearFraccionamiento).Methods("POST")
	adm.HandleFunc("/fraccionamientos/{id}", api.ObtenerFraccionamiento).Methods("GET")

	// 3️⃣ Tareas background

	// 3.1) Ingerir y conciliar el buzón bancario
	go func() {
		ticker := time.NewTicker(politica.IntervaloIngesta)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			ingeridas, cuarentena, err := ingestor.Ciclo(ctx)
			if err != nil {
				log.Printf("Error en ciclo de ingesta: %v", err)
				continue
			}
			if ingeridas > 0 || cuarentena > 0 {
				log.Printf("Ingesta: %d notificaciones, %d en cuarentena", ingeridas, cuarentena)
			}
		}
	}()

	// 3.2) Inhabilitar miembros con habilidad vencida
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			n, err := habilitador.BarridoVencimientos(ctx, time.Now())
			if err != nil {
				log.Printf("Error en barrido de vencimientos: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Barrido: %d miembros pasaron a inhábil", n)
			}
		}
	}()

	// 3.3) Detectar planes con dos cuotas vencidas consecutivas
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			n, err := fraccionador.RevisarPlanesVencidos(ctx, time.Now())
			if err != nil {
				log.Printf("Error revisando planes vencidos: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Planes perdidos por incumplimiento: %d", n)
			}
		}
	}()

	// 3.4) Drenar la cola de certificados pendientes
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			n, err := despachador.DespacharPendientes(ctx)
			if err != nil {
				log.Printf("Error despachando certificados: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Certificados emitidos: %d", n)
			}
		}
	}()

	// 4️⃣ Arrancar servidor
	log.Println("Servidor corriendo en http://localhost:3000")
	log.Fatal(http.ListenAndServe(":3000", habilitarCORS(r)))
}
