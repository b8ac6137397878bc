package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		payments, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("refunds")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "payment",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  payments.Id,
				CascadeDelete: true,
			},
			&core.NumberField{Name: "refund_amount", Required: true},
			&core.TextField{Name: "refund_reason"},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"PENDING", "PROCESSING", "COMPLETED", "FAILED"},
			},
			&core.TextField{Name: "transaction_id"},
			&core.BoolField{Name: "is_partial"},
			&core.DateField{Name: "refund_date"},
			&core.TextField{Name: "processed_by"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_refunds_transaction_id", true, "transaction_id", "transaction_id != ''")
		collection.AddIndex("idx_refunds_status", false, "status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("refunds")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
