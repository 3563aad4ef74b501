// Package stream decodes DynamoDB Streams events into documents.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"

	"github.com/thoran/Dynamoid/codec"
	"github.com/thoran/Dynamoid/store"
)

// Event names used by DynamoDB Streams.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Change is one decoded stream record.
type Change struct {
	EventID   string
	EventName string

	// Keys holds the key attributes of the changed item.
	Keys codec.Record

	// Old is the item before the change. It is nil for inserts and when
	// the stream view does not include old images.
	Old *store.Document

	// New is the item after the change. It is nil for removals and when
	// the stream view does not include new images.
	New *store.Document
}

// ChangeFunc receives decoded changes. Returning an error stops the batch.
type ChangeFunc func(ctx context.Context, c Change) error

// Handler processes DynamoDB stream events for one model.
type Handler struct {
	model    *store.Model
	onChange ChangeFunc
	logger   *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(model *store.Model, onChange ChangeFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		model:    model,
		onChange: onChange,
		logger:   logger,
	}
}

// HandleChanges decodes every record of event and passes it to the change
// func. It is designed to be used as an AWS Lambda handler; a failed record
// is returned so the batch is retried.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	switch record.EventName {
	case EventInsert, EventModify, EventRemove:
	default:
		h.logger.Debug("skipping unknown stream event",
			"eventID", record.EventID,
			"eventName", record.EventName,
		)
		return nil
	}

	change, err := h.Decode(record)
	if err != nil {
		return err
	}
	if h.onChange == nil {
		return nil
	}
	return h.onChange(ctx, change)
}

// Decode converts a stream record to a Change without invoking the change
// func.
func (h *Handler) Decode(record events.DynamoDBEventRecord) (Change, error) {
	change := Change{
		EventID:   record.EventID,
		EventName: record.EventName,
	}

	keys, err := ConvertImage(record.Change.Keys)
	if err != nil {
		return Change{}, fmt.Errorf("keys: %w", err)
	}
	change.Keys = keys

	if change.Old, err = h.load(record.Change.OldImage); err != nil {
		return Change{}, fmt.Errorf("old image: %w", err)
	}
	if change.New, err = h.load(record.Change.NewImage); err != nil {
		return Change{}, fmt.Errorf("new image: %w", err)
	}
	return change, nil
}

func (h *Handler) load(image map[string]events.DynamoDBAttributeValue) (*store.Document, error) {
	if len(image) == 0 {
		return nil, nil
	}
	rec, err := ConvertImage(image)
	if err != nil {
		return nil, err
	}
	return h.model.Load(rec)
}

// ConvertImage converts a stream image or key to a record of store scalars.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) (codec.Record, error) {
	if image == nil {
		return nil, nil
	}
	rec := make(codec.Record, len(image))
	for k, v := range image {
		value, err := ConvertValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		rec[k] = value
	}
	return rec, nil
}

// ConvertValue converts a stream attribute to a store scalar. Numbers become
// decimal.Decimal and sets become codec.Set.
func ConvertValue(v events.DynamoDBAttributeValue) (any, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return v.String(), nil
	case events.DataTypeNumber:
		return parseNumber(v.Number())
	case events.DataTypeBinary:
		return v.Binary(), nil
	case events.DataTypeBoolean:
		return v.Boolean(), nil
	case events.DataTypeNull:
		return nil, nil
	case events.DataTypeStringSet:
		s := codec.NewSet()
		for _, m := range v.StringSet() {
			s.Add(m)
		}
		return s, nil
	case events.DataTypeNumberSet:
		s := codec.NewSet()
		for _, m := range v.NumberSet() {
			d, err := parseNumber(m)
			if err != nil {
				return nil, err
			}
			s.Add(d)
		}
		return s, nil
	case events.DataTypeBinarySet:
		s := codec.NewSet()
		for _, m := range v.BinarySet() {
			s.Add(m)
		}
		return s, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]any, len(list))
		for i, e := range list {
			value, err := ConvertValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil
	case events.DataTypeMap:
		m := v.Map()
		out := make(map[string]any, len(m))
		for k, e := range m {
			value, err := ConvertValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = value
		}
		return out, nil
	}
	return nil, fmt.Errorf("dynamoid: unsupported stream attribute type %v", v.DataType())
}

func parseNumber(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", codec.ErrInvalidNumber, s)
	}
	return d, nil
}
