package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		orders, err := app.FindCollectionByNameOrId("orders")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "order",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  orders.Id,
				CascadeDelete: true,
			},
			&core.TextField{Name: "user_id", Required: true},
			&core.SelectField{
				Name:      "ticket_type",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"SINGLE", "RETURN", "DAY_PASS", "MULTI_RIDE"},
			},
			&core.NumberField{Name: "price", Required: true},
			&core.DateField{Name: "purchase_date"},
			&core.DateField{Name: "valid_from", Required: true},
			&core.DateField{Name: "valid_until", Required: true},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"PENDING_PAYMENT", "ACTIVE", "USED", "CANCELLED", "EXPIRED"},
			},
			&core.NumberField{Name: "usage_count", OnlyInt: true},
			&core.NumberField{Name: "max_usage", Required: true, OnlyInt: true},
			&core.TextField{Name: "route_id", Required: true},
			&core.TextField{Name: "schedule_id"},
			&core.TextField{Name: "qr_code", Required: true},
			&core.TextField{Name: "passenger_name"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_tickets_qr_code", true, "qr_code", "")
		collection.AddIndex("idx_tickets_user_id", false, "user_id", "")
		collection.AddIndex("idx_tickets_status_valid_until", false, "status, valid_until", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
