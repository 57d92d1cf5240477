// Package models holds the persistent entities of the shop.
package models

// All lists every model in migration order.
func All() []any {
	return []any{
		&Client{},
		&User{},
		&ServiceCategory{},
		&Service{},
		&ItemType{},
		&Cart{},
		&CartLine{},
		&Order{},
		&OrderLine{},
		&Material{},
		&Supplier{},
		&MaterialSupply{},
		&MaterialUsage{},
		&Review{},
	}
}
