package matching

import (
	"math/rand"
	"testing"
	"time"

	"quotebook/internal/book"
	"quotebook/internal/domain"
)

// BenchmarkEngine_Execute measures a small market order against a fresh ten-level ladder.
func BenchmarkEngine_Execute(b *testing.B) {
	synth := book.NewSynthesizer(book.Params{
		Levels: 10, Spread: 0.001, StepFactor: 1.0008, MinQty: 20000, MaxQty: 400000,
	}, rand.New(rand.NewSource(1)))
	eng := NewEngine()
	inv := domain.NewInventory(1000000, 10000000)
	log := domain.NewTradeLog(200)
	now := time.Now()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		ob, _ := synth.Generate(75000)
		b.StartTimer()

		eng.Execute(&ob, inv, log, domain.TradeRequest{Side: domain.SideBuy, Quantity: 500000}, 75000, now)
	}
}
