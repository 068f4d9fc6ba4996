package schema

import "time"

const AuditEntrySchemaTextV1 = `{
	"type": "record",
	"namespace": "pos.audit",
	"name": "audit_entry",
	"fields" : [
		{"name": "event_id", "type": "string"},
		{"name": "kind", "type": "string"},
		{"name": "product_id", "type": "string"},
		{"name": "stock_delta", "type": "long"},
		{"name": "stock", "type": "long"},
		{"name": "sale_id", "type": "string"},
		{"name": "actor", "type": "string"},
		{"name": "occurred_at", "type": {
			"type": "long", "logicalType": "timestamp-millis"
		}}
	]
}`

type AuditEntryV1 struct {
	EventID    string    `avro:"event_id"`
	Kind       string    `avro:"kind"`
	ProductID  string    `avro:"product_id"`
	StockDelta int       `avro:"stock_delta"`
	Stock      int       `avro:"stock"`
	SaleID     string    `avro:"sale_id"`
	Actor      string    `avro:"actor"`
	OccurredAt time.Time `avro:"occurred_at"`
}
