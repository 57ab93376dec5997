package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talgya/star-market/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intp(v int) *int { return &v }

func TestSaveAndLoadGame(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	galaxy := "Milky Way"
	ai := 250.5
	snap := engine.Snapshot{
		Credits:    intp(1234),
		Fuel:       intp(40),
		AILevel:    &ai,
		GalaxyName: &galaxy,
		Inventory:  []engine.InventoryEntry{{ItemID: 1, Name: "Widget", Quantity: 3, Price: 55}},
	}

	if err := db.SaveGame(ctx, "main", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadGame(ctx, "main")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got.Credits != 1234 || *got.Fuel != 40 || *got.AILevel != 250.5 || *got.GalaxyName != galaxy {
		t.Fatalf("loaded %+v", got)
	}
	if got.Health != nil {
		t.Fatalf("absent fields must stay absent, health = %v", *got.Health)
	}
	if len(got.Inventory) != 1 || got.Inventory[0].Quantity != 3 {
		t.Fatalf("inventory = %+v", got.Inventory)
	}

	// Overwrite keeps one row per slot.
	snap.Credits = intp(1)
	if err := db.SaveGame(ctx, "main", snap); err != nil {
		t.Fatal(err)
	}
	got, _ = db.LoadGame(ctx, "main")
	if *got.Credits != 1 {
		t.Fatalf("slot not replaced, credits = %d", *got.Credits)
	}
}

func TestLoadMissingSlot(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadGame(context.Background(), "nope"); !errors.Is(err, ErrNoSave) {
		t.Fatalf("err = %v, want ErrNoSave", err)
	}
}

func TestLoadDetectsTampering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.SaveGame(ctx, "main", engine.Snapshot{Credits: intp(10)}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec("UPDATE saves SET checksum = 'beef' WHERE slot = 'main'"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadGame(ctx, "main"); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
}

func TestTradesAppendAndQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)
	trades := []engine.TradeRecord{
		{Time: at, Type: "buy", Name: "Widget", Quantity: 2, Price: 50, Profit: -100, Trader: "zorp"},
		{Time: at.Add(time.Second), Type: "sell", Name: "Widget", Quantity: 2, Price: 70, Profit: 40, Trader: "zorp", Auto: true},
		{Time: at.Add(2 * time.Second), Type: "sell", Name: "Gadget", Quantity: 1, Price: 30, Profit: 5, Trader: "lay-depot"},
	}
	if err := db.AppendTrades(ctx, trades); err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := db.RecentTrades(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Name != "Gadget" || !recent[1].Auto {
		t.Fatalf("recent = %+v", recent)
	}
	if !recent[1].Time.Equal(at.Add(time.Second)) {
		t.Fatalf("time round trip: %v", recent[1].Time)
	}

	profit, err := db.ProfitByItem(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if profit["Widget"] != 40 || profit["Gadget"] != 5 {
		t.Fatalf("profit = %v", profit)
	}
}

func TestTradeLogFlush(t *testing.T) {
	db := openTestDB(t)
	log := NewTradeLog(db, 2)
	log.Record(engine.TradeRecord{Time: time.Now(), Type: "buy", Name: "Widget", Quantity: 1, Price: 5})
	log.Record(engine.TradeRecord{Time: time.Now(), Type: "buy", Name: "Widget", Quantity: 1, Price: 5})
	log.Record(engine.TradeRecord{Time: time.Now(), Type: "buy", Name: "Widget", Quantity: 1, Price: 5})

	if log.Dropped() != 1 {
		t.Fatalf("dropped = %d", log.Dropped())
	}
	if n := log.Flush(context.Background()); n != 2 {
		t.Fatalf("flushed %d", n)
	}
	recent, _ := db.RecentTrades(context.Background(), 10)
	if len(recent) != 2 {
		t.Fatalf("stored %d trades", len(recent))
	}
}

func TestTradeLogRunDrainsOnCancel(t *testing.T) {
	db := openTestDB(t)
	log := NewTradeLog(db, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Run(ctx, time.Hour)
	}()

	for range 3 {
		log.Record(engine.TradeRecord{Time: time.Now(), Type: "sell", Name: "Gadget", Quantity: 1, Price: 7})
	}
	cancel()
	<-done

	recent, err := db.RecentTrades(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("stored %d trades after shutdown, want 3", len(recent))
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("last_slot", "main"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("last_slot")
	if err != nil || v != "main" {
		t.Fatalf("meta = %q, %v", v, err)
	}
}
