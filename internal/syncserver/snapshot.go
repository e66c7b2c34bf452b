package syncserver

import (
	"fmt"

	"kitchen-ledger/internal/catalog"
	"kitchen-ledger/pkg/models"
)

// BuildSnapshot serializes the full live ledger for remote observers. Lines
// sharing a (table, timestamp) pair are grouped under one order envelope;
// the catalog contributes each item's default recipe so displays can show
// what the dish normally contains.
func BuildSnapshot(lines []models.OrderLine, cat *catalog.Catalog, totalTables int) models.StateSnapshot {
	snapshot := models.StateSnapshot{
		TotalTables: totalTables,
		Orders:      []models.OrderGroup{},
	}

	index := map[string]int{}
	for _, line := range lines {
		orderID := fmt.Sprintf("%d_%d", line.Table, line.Timestamp)

		i, ok := index[orderID]
		if !ok {
			i = len(snapshot.Orders)
			index[orderID] = i
			snapshot.Orders = append(snapshot.Orders, models.OrderGroup{
				OrderID:   orderID,
				Table:     line.Table,
				Timestamp: line.Timestamp,
			})
		}

		var recipe []string
		if cat != nil {
			recipe = cat.DefaultIngredients(line.Item.ID)
		}

		snapshot.Orders[i].Items = append(snapshot.Orders[i].Items, models.SnapshotItem{
			ID:                 line.Item.ID,
			Price:              line.Item.Price,
			SupplementPrice:    line.Item.SupplementPrice,
			Name:               line.Item.Name,
			Status:             line.Status,
			Ingredients:        emptyIfNil(recipe),
			IngredientsRemoved: emptyIfNil(line.IngredientsRemoved),
			IngredientsAdded:   emptyIfNil(line.IngredientsAdded),
			Supplements:        emptyIfNil(line.Supplements),
		})
	}

	return snapshot
}

// LinesFromSnapshot reconstructs order lines from a snapshot. Reconnecting
// clients use this to rebuild local state from a full getState reply.
func LinesFromSnapshot(snapshot models.StateSnapshot) []models.OrderLine {
	var lines []models.OrderLine
	for _, group := range snapshot.Orders {
		for _, item := range group.Items {
			lines = append(lines, models.OrderLine{
				Table:     group.Table,
				Timestamp: group.Timestamp,
				Item: models.ItemSnapshot{
					ID:              item.ID,
					Price:           item.Price,
					SupplementPrice: item.SupplementPrice,
					Name:            item.Name,
				},
				Status:             item.Status,
				IngredientsRemoved: item.IngredientsRemoved,
				IngredientsAdded:   item.IngredientsAdded,
				Supplements:        item.Supplements,
			})
		}
	}
	return lines
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
