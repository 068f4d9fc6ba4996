package schema

import "time"

const ProductChangeSchemaTextV1 = `{
	"type": "record",
	"namespace": "pos.catalog",
	"name": "product_change",
	"fields" : [
		{"name": "product_id", "type": "string"},
		{"name": "owner_id", "type": "string"},
		{"name": "kind", "type": "string"},
		{"name": "occurred_at", "type": {
			"type": "long", "logicalType": "timestamp-millis"
		}}
	]
}`

const (
	ProductChangeCreated = "created"
	ProductChangeUpdated = "updated"
	ProductChangeDeleted = "deleted"
)

type ProductChangeV1 struct {
	ProductID  string    `avro:"product_id"`
	OwnerID    string    `avro:"owner_id"`
	Kind       string    `avro:"kind"`
	OccurredAt time.Time `avro:"occurred_at"`
}
