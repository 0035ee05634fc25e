package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	"github.com/robertrullyp/drsis-finance/pkg/outbox"
	"github.com/robertrullyp/drsis-finance/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		FinanceTopic:      "finance-events",
		NotificationTopic: "finance-notifications",
	})
	require.NoError(t, err)
	return reg
}

func envelopeWith(t *testing.T, data interface{}) json.RawMessage {
	t.Helper()
	inner, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       inner,
	})
	require.NoError(t, err)
	return payload
}

func TestRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"})
	require.Error(t, err)
	_, err = NewEventRegistry(config.PubSubConfig{FinanceTopic: "f"})
	require.Error(t, err)
}

func TestResolveTxnApproved(t *testing.T) {
	reg := testRegistry(t)
	txnID := uuid.New()

	row := models.OutboxEvent{
		EventType:     enums.EventTxnApproved,
		AggregateType: enums.AggregateOperationalTxn,
		AggregateID:   txnID,
		Payload: envelopeWith(t, payloads.TxnApprovedEvent{
			TxnID:        txnID,
			ReferenceNo:  "TXN-20260115-0001",
			Kind:         enums.TxnKindIncome,
			Amount:       750_000,
			BalanceDelta: 750_000,
			ApprovedBy:   "admin-01",
		}),
	}

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	require.Equal(t, "finance-events", resolved.Descriptor.Topic)

	payload, ok := resolved.Payload.(*payloads.TxnApprovedEvent)
	require.True(t, ok)
	require.Equal(t, txnID, payload.TxnID)
	require.EqualValues(t, 750_000, payload.BalanceDelta)
}

func TestResolveInvoiceEventsRouteToNotifications(t *testing.T) {
	reg := testRegistry(t)
	invoiceID := uuid.New()

	row := models.OutboxEvent{
		EventType:     enums.EventInvoiceSettled,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoiceID,
		Payload: envelopeWith(t, payloads.InvoiceSettledEvent{
			InvoiceID: invoiceID,
			Code:      "INV-2026-0001",
			NetTotal:  900_000,
			PaidNet:   900_000,
		}),
	}

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	require.Equal(t, "finance-notifications", resolved.Descriptor.Topic)
}

func TestResolveRejectsMismatches(t *testing.T) {
	reg := testRegistry(t)

	var nonRetryable NonRetryableError

	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     "unknown_event",
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
	})
	require.True(t, errors.As(err, &nonRetryable))

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventInvoiceSettled,
		AggregateType: enums.AggregateOperationalTxn,
		AggregateID:   uuid.New(),
	})
	require.True(t, errors.As(err, &nonRetryable))

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventInvoiceSettled,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.Nil,
	})
	require.True(t, errors.As(err, &nonRetryable))

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventInvoiceSettled,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Payload:       envelopeWith(t, nil),
	})
	require.True(t, errors.As(err, &nonRetryable))
}
