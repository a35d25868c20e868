package services

import (
	"context"
	"sync"
)

// BuzonMemoria es un buzón en memoria alimentado por el webhook del
// reenviador de correos. Leer drena todo lo encolado.
type BuzonMemoria struct {
	mu       sync.Mutex
	mensajes []MensajeCrudo
}

// NuevoBuzonMemoria crea el buzón vacío.
func NuevoBuzonMemoria() *BuzonMemoria {
	return &BuzonMemoria{}
}

// Encolar agrega un mensaje al buzón.
func (b *BuzonMemoria) Encolar(msg MensajeCrudo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mensajes = append(b.mensajes, msg)
}

// Leer devuelve y vacía el lote acumulado.
func (b *BuzonMemoria) Leer(ctx context.Context) ([]MensajeCrudo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lote := b.mensajes
	b.mensajes = nil
	return lote, nil
}
