package syncserver

import (
	"context"
	"encoding/json"
	"testing"

	"kitchen-ledger/internal/archive"
	"kitchen-ledger/internal/ledger"
	"kitchen-ledger/internal/stock"
	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()
	log := logger.NewLogger("test")

	st := stock.New(nil, log)
	st.Restore(map[string]models.StockCounter{"crepe1": {Remaining: 5}})
	led := ledger.New(nil, st, archive.New(nil, "fr", log), log)

	srv := NewServer(0, 3, 3, "fr", []string{"fr", "th"}, led, nil, log)
	return srv, led
}

func raw(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func wireItem() *models.ItemSnapshot {
	return &models.ItemSnapshot{
		ID:              "crepe1",
		Price:           70,
		SupplementPrice: 10,
		Name:            models.LocalizedName{"fr": "Crêpe sucre", "th": "เครปน้ำตาล"},
	}
}

func TestHandleMessageAdd(t *testing.T) {
	srv, led := newTestServer(t)
	ctx := context.Background()

	msg := models.InboundMessage{
		Table:            5,
		Timestamp:        1000,
		Item:             wireItem(),
		IngredientsAdded: []string{"sucre"},
	}
	srv.handleMessage(ctx, envelope{data: raw(t, msg)})

	lines := led.TableLines(5)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if got := lines[0].EffectivePrice(); got != 80 {
		t.Errorf("effective price = %v, want 80", got)
	}
}

func TestHandleMessageRemove(t *testing.T) {
	srv, led := newTestServer(t)
	ctx := context.Background()

	add := models.InboundMessage{Table: 5, Timestamp: 1000, Item: wireItem()}
	srv.handleMessage(ctx, envelope{data: raw(t, add)})

	remove := models.InboundMessage{Action: models.ActionRemove, Table: 5, Timestamp: 1000, Item: wireItem()}
	srv.handleMessage(ctx, envelope{data: raw(t, remove)})

	if lines := led.TableLines(5); len(lines) != 0 {
		t.Errorf("lines after remove = %d, want 0", len(lines))
	}
}

func TestHandleMessageRemoveByNameShim(t *testing.T) {
	srv, led := newTestServer(t)
	ctx := context.Background()

	add := models.InboundMessage{Table: 5, Timestamp: 1000, Item: wireItem()}
	srv.handleMessage(ctx, envelope{data: raw(t, add)})

	// Stale timestamp, matching name: legacy clients cancel this way.
	remove := models.InboundMessage{Action: models.ActionRemove, Table: 5, Timestamp: 42, Item: wireItem()}
	srv.handleMessage(ctx, envelope{data: raw(t, remove)})

	if lines := led.TableLines(5); len(lines) != 0 {
		t.Errorf("lines after name-shim remove = %d, want 0", len(lines))
	}
}

func TestHandleMessageModify(t *testing.T) {
	srv, led := newTestServer(t)
	ctx := context.Background()

	add := models.InboundMessage{Table: 5, Timestamp: 1000, Item: wireItem()}
	srv.handleMessage(ctx, envelope{data: raw(t, add)})

	modify := models.InboundMessage{
		Action:            models.ActionModify,
		Timestamp:         2000,
		OriginalTimestamp: 1000,
		Item:              wireItem(),
		IngredientsAdded:  []string{"sucre", "banane"},
	}
	srv.handleMessage(ctx, envelope{data: raw(t, modify)})

	lines := led.TableLines(5)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0].Timestamp != 1000 {
		t.Errorf("timestamp changed by modify: %d", lines[0].Timestamp)
	}
	if got := lines[0].EffectivePrice(); got != 90 {
		t.Errorf("effective price = %v, want 90", got)
	}
}

func TestHandleMessageStatusAndClose(t *testing.T) {
	srv, led := newTestServer(t)
	ctx := context.Background()

	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{Table: 5, Timestamp: 1000, Item: wireItem()})})
	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{
		Action: models.ActionSetPeopleCount, Table: 5, Timestamp: 1500, Count: 3})})
	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{
		Action: models.ActionSetStatus, Table: 5, Timestamp: 2000,
		LineTimestamp: 1000, Status: models.StatusFulfilled})})

	if got := led.TableLines(5)[0].Status; got != models.StatusFulfilled {
		t.Fatalf("status = %q, want fulfilled", got)
	}

	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{
		Action: models.ActionCloseTable, Table: 5, Timestamp: 3000})})

	if lines := led.TableLines(5); len(lines) != 0 {
		t.Errorf("lines after close = %d, want 0", len(lines))
	}
}

func TestHandleMessageDropsInvalid(t *testing.T) {
	srv, led := newTestServer(t)
	ctx := context.Background()

	// Unparseable, missing fields, unknown action: all dropped whole.
	srv.handleMessage(ctx, envelope{data: []byte("{not json")})
	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{Action: models.ActionAdd, Table: 5})})
	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{Action: "explode", Timestamp: 1000})})

	if stats := led.Stats(); stats.TotalOrders != 0 {
		t.Errorf("invalid messages mutated the ledger: %+v", stats)
	}
}

func TestSnapshotReflectsLedger(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	srv.handleMessage(ctx, envelope{data: raw(t, models.InboundMessage{Table: 2, Timestamp: 1000, Item: wireItem()})})

	snapshot := srv.Snapshot()
	if snapshot.TotalTables != 9 {
		t.Errorf("total tables = %d, want 9 (3x3 grid)", snapshot.TotalTables)
	}
	if len(snapshot.Orders) != 1 || snapshot.Orders[0].OrderID != "2_1000" {
		t.Fatalf("orders = %+v", snapshot.Orders)
	}
}
