package model

import "sort"

// ItemKind selects which player counter a shop item improves.
type ItemKind string

const (
	ItemKindTap  ItemKind = "tap"
	ItemKindAuto ItemKind = "auto"
)

// ShopItem is an entry of the immutable upgrade catalog.
type ShopItem struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price int64    `json:"price"`
	Kind  ItemKind `json:"kind"`
	Value int64    `json:"value"`
}

// Valid reports whether the kind is one the purchase handler can apply.
func (k ItemKind) Valid() bool {
	return k == ItemKindTap || k == ItemKindAuto
}

// DefaultCatalog is seeded into an empty store on startup.
func DefaultCatalog() []ShopItem {
	return []ShopItem{
		{ID: "cheapUp", Name: "Better Finger", Price: 10, Kind: ItemKindTap, Value: 1},
		{ID: "autoBot", Name: "Auto Clicker", Price: 50, Kind: ItemKindAuto, Value: 1},
		{ID: "bigUp", Name: "Iron Finger", Price: 100, Kind: ItemKindTap, Value: 5},
		{ID: "autoFarm", Name: "Coin Farm", Price: 500, Kind: ItemKindAuto, Value: 10},
		{ID: "megaUp", Name: "Golden Finger", Price: 1000, Kind: ItemKindTap, Value: 25},
		{ID: "autoFactory", Name: "Coin Factory", Price: 5000, Kind: ItemKindAuto, Value: 100},
	}
}

// SortShopItems orders a catalog by price, then id.
func SortShopItems(items []ShopItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Price != items[j].Price {
			return items[i].Price < items[j].Price
		}
		return items[i].ID < items[j].ID
	})
}
