package syncserver

import (
	"reflect"
	"testing"

	"kitchen-ledger/pkg/models"
)

func snapshotLines() []models.OrderLine {
	name := models.LocalizedName{"fr": "Crêpe sucre", "th": "เครปน้ำตาล"}
	return []models.OrderLine{
		{
			Table:            3,
			Timestamp:        1000,
			Item:             models.ItemSnapshot{ID: "crepe1", Price: 70, SupplementPrice: 10, Name: name},
			Status:           models.StatusPending,
			IngredientsAdded: []string{"sucre"},
		},
		{
			Table:     3,
			Timestamp: 1000, // same order envelope as the first line
			Item:      models.ItemSnapshot{ID: "crepe2", Price: 80, Name: name},
			Status:    models.StatusFulfilled,
		},
		{
			Table:     7,
			Timestamp: 2000,
			Item:      models.ItemSnapshot{ID: "pad1", Price: 60, Name: name},
			Status:    models.StatusPending,
		},
	}
}

func TestBuildSnapshotGroupsByOrder(t *testing.T) {
	snapshot := BuildSnapshot(snapshotLines(), nil, 9)

	if snapshot.TotalTables != 9 {
		t.Errorf("total tables = %d, want 9", snapshot.TotalTables)
	}
	if len(snapshot.Orders) != 2 {
		t.Fatalf("order groups = %d, want 2", len(snapshot.Orders))
	}

	first := snapshot.Orders[0]
	if first.OrderID != "3_1000" {
		t.Errorf("order id = %q, want 3_1000", first.OrderID)
	}
	if len(first.Items) != 2 {
		t.Errorf("grouped items = %d, want 2", len(first.Items))
	}
	if first.Items[1].Status != models.StatusFulfilled {
		t.Errorf("second item status = %q, want fulfilled", first.Items[1].Status)
	}

	if snapshot.Orders[1].OrderID != "7_2000" {
		t.Errorf("second order id = %q, want 7_2000", snapshot.Orders[1].OrderID)
	}
}

func TestBuildSnapshotEmptyCollections(t *testing.T) {
	snapshot := BuildSnapshot(nil, nil, 9)
	if snapshot.Orders == nil {
		t.Error("empty snapshot has nil orders, want []")
	}

	snapshot = BuildSnapshot(snapshotLines(), nil, 9)
	item := snapshot.Orders[1].Items[0]
	if item.Ingredients == nil || item.IngredientsRemoved == nil ||
		item.IngredientsAdded == nil || item.Supplements == nil {
		t.Error("snapshot item has nil slices, want empty ones")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	lines := snapshotLines()
	restored := LinesFromSnapshot(BuildSnapshot(lines, nil, 9))

	if len(restored) != len(lines) {
		t.Fatalf("restored %d lines, want %d", len(restored), len(lines))
	}
	for i, want := range lines {
		got := restored[i]
		if got.Table != want.Table || got.Timestamp != want.Timestamp {
			t.Errorf("line %d identity = (%d,%d), want (%d,%d)",
				i, got.Table, got.Timestamp, want.Table, want.Timestamp)
		}
		if got.Status != want.Status {
			t.Errorf("line %d status = %q, want %q", i, got.Status, want.Status)
		}
		if got.EffectivePrice() != want.EffectivePrice() {
			t.Errorf("line %d price = %v, want %v", i, got.EffectivePrice(), want.EffectivePrice())
		}
		if !reflect.DeepEqual(got.Item.Name, want.Item.Name) {
			t.Errorf("line %d name = %v, want %v", i, got.Item.Name, want.Item.Name)
		}
	}
}
