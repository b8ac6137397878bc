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

		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "order",
				MaxSelect:     1,
				CollectionId:  orders.Id,
				CascadeDelete: true,
			},
			&core.TextField{Name: "subscription_id"},
			&core.TextField{Name: "user_id", Required: true},
			&core.NumberField{Name: "amount", Required: true},
			&core.SelectField{
				Name:      "payment_method",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"CREDIT_CARD", "DEBIT_CARD", "PAYPAL", "WALLET", "CASH"},
			},
			&core.TextField{Name: "transaction_id"},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"PENDING", "COMPLETED", "FAILED", "REFUNDED"},
			},
			&core.DateField{Name: "payment_date"},
			&core.TextField{Name: "currency"},
			&core.TextField{Name: "provider_response"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// Pending and failed rows have no transaction id yet.
		collection.AddIndex("idx_payments_transaction_id", true, "transaction_id", "transaction_id != ''")
		collection.AddIndex("idx_payments_user_id", false, "user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
