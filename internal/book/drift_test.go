package book

import (
	"math/rand"
	"testing"

	"quotebook/internal/domain"
)

func assertOrdered(t *testing.T, ob domain.OrderBook) {
	t.Helper()
	for i := 1; i < len(ob.Bids); i++ {
		if !(ob.Bids[i].Price < ob.Bids[i-1].Price) {
			t.Fatalf("bids not strictly descending at %d: %v >= %v", i, ob.Bids[i].Price, ob.Bids[i-1].Price)
		}
	}
	for i := 1; i < len(ob.Asks); i++ {
		if !(ob.Asks[i].Price > ob.Asks[i-1].Price) {
			t.Fatalf("asks not strictly ascending at %d", i)
		}
	}
	if len(ob.Bids) > 0 && len(ob.Asks) > 0 && ob.Bids[0].Price >= ob.Asks[0].Price {
		t.Fatalf("spread inverted: %v >= %v", ob.Bids[0].Price, ob.Asks[0].Price)
	}
}

func TestDrifter_KeepsOrderingAndCount(t *testing.T) {
	s := NewSynthesizer(testParams(), rand.New(rand.NewSource(11)))
	d := NewDrifter(s, 0.2)

	ob, _ := s.Generate(75000)
	refs := []float64{75000, 76000, 74000, 80000, 70000, 75500}
	for i := 0; i < 50; i++ {
		if err := d.Drift(&ob, refs[i%len(refs)]); err != nil {
			t.Fatalf("Drift failed: %v", err)
		}
		assertOrdered(t, ob)
		if len(ob.Bids) != 10 || len(ob.Asks) != 10 {
			t.Fatalf("level count changed: %d/%d", len(ob.Bids), len(ob.Asks))
		}
	}
}

func TestDrifter_TwoTicksNeverInvertSpread(t *testing.T) {
	s := NewSynthesizer(testParams(), rand.New(rand.NewSource(5)))
	d := NewDrifter(s, 1)

	ob, _ := s.Generate(75000)
	d.Drift(&ob, 90000)
	assertOrdered(t, ob)
	d.Drift(&ob, 60000)
	assertOrdered(t, ob)

	// alpha = 1 snaps prices onto the target ladder
	bid, _ := ob.BestBid()
	if bid.Price != 60000*(1-0.0005) {
		t.Errorf("Expected snapped top bid %v, got %v", 60000*(1-0.0005), bid.Price)
	}
}

func TestDrifter_PriceBlendAndQuantityJitter(t *testing.T) {
	s := NewSynthesizer(testParams(), rand.New(rand.NewSource(9)))
	d := NewDrifter(s, 0.2)

	ob, _ := s.Generate(100)
	before := ob.Clone()
	target := before.Asks[0].Price * 2 // ref 200 doubles every ask price

	d.Drift(&ob, 200)

	want := before.Asks[0].Price*0.8 + target*0.2
	if diff := ob.Asks[0].Price - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected blended ask %v, got %v", want, ob.Asks[0].Price)
	}
	for i := range ob.Bids {
		ratio := ob.Bids[i].Quantity / before.Bids[i].Quantity
		if ratio < 0.95-1e-12 || ratio > 1.05+1e-12 {
			t.Errorf("level %d: jitter ratio %v outside [0.95, 1.05]", i, ratio)
		}
	}
}

func TestDrifter_ShortSideLeftAsIs(t *testing.T) {
	s := NewSynthesizer(testParams(), rand.New(rand.NewSource(2)))
	d := NewDrifter(s, 0.2)

	ob, _ := s.Generate(100)
	ob.Asks = ob.Asks[:3]
	ob.Bids = nil

	if err := d.Drift(&ob, 100); err != nil {
		t.Fatalf("Drift failed: %v", err)
	}
	if len(ob.Asks) != 3 || len(ob.Bids) != 0 {
		t.Errorf("Drift must not add levels, got %d asks %d bids", len(ob.Asks), len(ob.Bids))
	}
	assertOrdered(t, ob)
}

func TestDrifter_QuantityFloor(t *testing.T) {
	s := NewSynthesizer(testParams(), rand.New(rand.NewSource(4)))
	d := NewDrifter(s, 0.2)

	ob, _ := s.Generate(100)
	ob.Bids[0].Quantity = 1e-9

	d.Drift(&ob, 100)
	for _, l := range ob.Bids {
		if l.Quantity < domain.MinDriftQuantity {
			t.Errorf("quantity %v below floor", l.Quantity)
		}
	}
}
