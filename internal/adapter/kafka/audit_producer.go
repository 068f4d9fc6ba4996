package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/niksmo/pos-terminal/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.AuditTrail = (*AuditProducer)(nil)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// An AuditProducer appends audit entries to the audit topic.
type AuditProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewAuditProducer(opts ...ProducerOpt) (AuditProducer, error) {
	const op = "NewAuditProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return AuditProducer{}, opErr(err, op)
		}
	}

	opPrefix := "AuditProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return AuditProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p AuditProducer) Close() {
	p.producer.close()
}

func (p AuditProducer) Append(
	ctx context.Context, v domain.AuditEntry,
) error {
	const op = "Append"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, &r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p AuditProducer) createRecord(
	v domain.AuditEntry,
) (kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(v)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return kgo.Record{}, opErr(err, p.opPrefix, op)
	}
	msgKey := []byte(s.ProductID)
	if s.ProductID == "" {
		msgKey = []byte(s.SaleID)
	}
	return kgo.Record{Key: msgKey, Value: b}, nil
}

func (AuditProducer) toSchema(v domain.AuditEntry) (s schema.AuditEntryV1) {
	s.EventID = v.EventID
	s.Kind = v.Kind
	s.ProductID = v.ProductID
	s.StockDelta = v.StockDelta
	s.Stock = v.Stock
	s.SaleID = v.SaleID
	s.Actor = v.Actor
	s.OccurredAt = v.OccurredAt
	return
}
