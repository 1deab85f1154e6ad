package match

// Item is one shop catalog entry. The catalog drives purchases and the
// free-item injector event; appearance and ability mechanics live outside
// the core.
type Item struct {
	ID    string
	Name  string
	Price int64
}

var Catalog = []Item{
	{ID: "blade", Name: "Blade", Price: 400},
	{ID: "longbow", Name: "Longbow", Price: 550},
	{ID: "plate", Name: "Plate Armor", Price: 700},
	{ID: "chain", Name: "Chain Armor", Price: 450},
	{ID: "tonic", Name: "Recovery Tonic", Price: 150},
	{ID: "trap", Name: "Snap Trap", Price: 250},
	{ID: "smoke", Name: "Smoke Charge", Price: 200},
	{ID: "warhorn", Name: "Warhorn", Price: 850},
}

// ItemByID looks up a catalog entry.
func ItemByID(id string) (Item, bool) {
	for _, it := range Catalog {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
