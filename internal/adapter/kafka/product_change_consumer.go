package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/niksmo/pos-terminal/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

// A consumer is used for composition.
//
// Fetching records from kafka broker and closing underlying [kgo.Client].

type consumerParent interface {
	processFetches(context.Context, kgo.Fetches) error
}

type consumer struct {
	opPrefix      string
	parent        consumerParent
	cl            ConsumerClient
	slowDownTimer *time.Timer
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
				c.slowDown()
			}
		}
	}
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	err = c.parent.processFetches(ctx, fetches)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.commit(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	err := c.handleFetchesErrs(fetches)
	if err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c consumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		if err != nil {
			errMsg := fmt.Sprintf(
				"topic %q partition %d: %q", t, p, err,
			)
			errsMessages = append(errsMessages, errMsg)
		}
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

func (c consumer) slowDown() {
	c.slowDownTimer.Reset(1 * time.Second)
	<-c.slowDownTimer.C
}

func (c consumer) commit(ctx context.Context) error {
	const op = "commit"

	err := ctx.Err()
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.cl.CommitUncommittedOffsets(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	c.slowDownTimer.Stop()

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// A ProductChangeConsumer watches back office catalog changes and
// triggers a catalog reload when a change touches this terminal's
// owner. Reload coalescing is the catalog's concern, not ours.
type ProductChangeConsumer struct {
	opPrefix string
	consumer consumer
	reloader port.CatalogReloader
	ownerID  string
	decoder  Decoder
}

func NewProductChangeConsumer(
	opts ...ConsumerOpt,
) (pc ProductChangeConsumer, err error) {
	const op = "NewProductChangeConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return pc, opErr(err, op)
	}

	opPrefix := "ProductChangeConsumer"

	pc.opPrefix = opPrefix
	pc.reloader = options.reloader
	pc.ownerID = options.ownerID
	pc.decoder = options.decoder

	pc.consumer = consumer{
		opPrefix:      opPrefix,
		parent:        pc,
		cl:            options.cl,
		slowDownTimer: time.NewTimer(0),
	}

	return pc, nil
}

func (c ProductChangeConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c ProductChangeConsumer) Close() {
	c.consumer.close()
}

func (c ProductChangeConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"

	if !c.anyRelevant(fetches) {
		return nil
	}

	err := c.reloader.Load(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c ProductChangeConsumer) anyRelevant(fetches kgo.Fetches) bool {
	const op = "anyRelevant"
	log := slog.With("op", makeOp(c.opPrefix, op))

	var relevant bool
	fetches.EachRecord(func(r *kgo.Record) {
		v, err := c.decodeRecValue(r)
		if err != nil {
			log.Error(
				"failed to decode value",
				"err", opErr(err, c.opPrefix, op),
			)
			return
		}
		if v.OwnerID == c.ownerID {
			relevant = true
		}
	})
	return relevant
}

func (c ProductChangeConsumer) decodeRecValue(
	r *kgo.Record,
) (schema.ProductChangeV1, error) {
	var s schema.ProductChangeV1
	err := c.decoder.Decode(r.Value, &s)
	if err != nil {
		return schema.ProductChangeV1{}, err
	}
	return s, nil
}
