package schema_test

import (
	"context"
	"testing"
	"time"

	"github.com/niksmo/pos-terminal/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSchemaIdentifier struct {
	mock.Mock
}

func (c *MockSchemaIdentifier) DetermineID(
	ctx context.Context, subject string, avroSchemaText string,
) (id int, err error) {
	args := c.Called(ctx, subject, avroSchemaText)
	return args.Int(0), args.Error(1)
}

func TestSerdeAuditEntryV1(t *testing.T) {

	t.Run("NoOpts", func(t *testing.T) {
		_, err := schema.NewSerdeAuditEntryV1(t.Context())
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("OneOpt", func(t *testing.T) {
		_, err := schema.NewSerdeAuditEntryV1(
			t.Context(),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("IdentifierAndSubjectOpts", func(t *testing.T) {
		schemaIdentifier := new(MockSchemaIdentifier)
		schemaID := 1
		subject := "testTopic-value"

		schemaIdentifier.On(
			"DetermineID", t.Context(), subject, schema.AuditEntrySchemaTextV1,
		).Return(schemaID, nil)

		_, err := schema.NewSerdeAuditEntryV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		require.NoError(t, err)
	})

	t.Run("EncodeDecode", func(t *testing.T) {
		schemaIdentifier := new(MockSchemaIdentifier)
		schemaID := 1
		subject := "testTopic-value"

		schemaIdentifier.On(
			"DetermineID", t.Context(), subject, schema.AuditEntrySchemaTextV1,
		).Return(schemaID, nil)

		serde, err := schema.NewSerdeAuditEntryV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		require.NoError(t, err)

		entryValue1 := schema.AuditEntryV1{
			EventID:    "testEventID",
			Kind:       "stock.flush",
			ProductID:  "testProductID",
			StockDelta: -3,
			Stock:      2,
			SaleID:     "",
			Actor:      "testActor",
			OccurredAt: time.Now().Truncate(time.Millisecond).UTC(),
		}

		encodedData, err := serde.Encode(entryValue1)
		require.NoError(t, err)

		var entryValue2 schema.AuditEntryV1
		err = serde.Decode(encodedData, &entryValue2)
		require.NoError(t, err)

		assert.Equal(t, entryValue1.EventID, entryValue2.EventID)
		assert.Equal(t, entryValue1.Kind, entryValue2.Kind)
		assert.Equal(t, entryValue1.ProductID, entryValue2.ProductID)
		assert.Equal(t, entryValue1.StockDelta, entryValue2.StockDelta)
		assert.Equal(t, entryValue1.Stock, entryValue2.Stock)
		assert.Equal(t, entryValue1.SaleID, entryValue2.SaleID)
		assert.Equal(t, entryValue1.Actor, entryValue2.Actor)
		assert.True(t, entryValue1.OccurredAt.Equal(entryValue2.OccurredAt))
	})
}

func TestSerdeProductChangeV1(t *testing.T) {

	t.Run("NoOpts", func(t *testing.T) {
		_, err := schema.NewSerdeProductChangeV1(t.Context())
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("EncodeDecode", func(t *testing.T) {
		schemaIdentifier := new(MockSchemaIdentifier)
		schemaID := 2
		subject := "testChanges-value"

		schemaIdentifier.On(
			"DetermineID", t.Context(), subject, schema.ProductChangeSchemaTextV1,
		).Return(schemaID, nil)

		serde, err := schema.NewSerdeProductChangeV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		require.NoError(t, err)

		changeValue1 := schema.ProductChangeV1{
			ProductID:  "testProductID",
			OwnerID:    "testOwnerID",
			Kind:       schema.ProductChangeUpdated,
			OccurredAt: time.Now().Truncate(time.Millisecond).UTC(),
		}

		encodedData, err := serde.Encode(changeValue1)
		require.NoError(t, err)

		var changeValue2 schema.ProductChangeV1
		err = serde.Decode(encodedData, &changeValue2)
		require.NoError(t, err)

		assert.Equal(t, changeValue1.ProductID, changeValue2.ProductID)
		assert.Equal(t, changeValue1.OwnerID, changeValue2.OwnerID)
		assert.Equal(t, changeValue1.Kind, changeValue2.Kind)
		assert.True(t, changeValue1.OccurredAt.Equal(changeValue2.OccurredAt))
	})
}
