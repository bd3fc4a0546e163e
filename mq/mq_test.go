package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerDispatchByName(t *testing.T) {
	w := NewWorker(nil, "")
	assert.Equal(t, DefaultChannel, w.channel)

	var got []string
	w.On(func(_ context.Context, e Event) error {
		got = append(got, e.Name+":"+e.EntityID)
		return nil
	}, ProductUpdated, StockChanged)
	w.On(func(context.Context, Event) error {
		return errors.New("boom")
	}, StockChanged)

	stock := 3
	for _, e := range []Event{
		{Name: StockChanged, EntityID: "p1", Stock: &stock},
		{Name: OrderPlaced, EntityID: "o1"},
		{Name: ProductUpdated, EntityID: "p2"},
	} {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		w.dispatch(context.Background(), data)
	}
	w.dispatch(context.Background(), []byte("{not json"))

	assert.Equal(t, []string{"stock-changed:p1", "product-updated:p2"}, got)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Emit(context.Background(), Event{Name: OrderPlaced})
	r.Emit(context.Background(), Event{Name: StockChanged})
	assert.Equal(t, []string{OrderPlaced, StockChanged}, r.Names())
	Discard.Emit(context.Background(), Event{Name: OrderPlaced})
}

func TestWorkerEmitDispatchesLocally(t *testing.T) {
	w := NewWorker(nil, "")
	var stock int
	w.On(func(_ context.Context, e Event) error {
		stock = *e.Stock
		return nil
	}, StockChanged)

	var em Emitter = w
	n := 7
	em.Emit(context.Background(), Event{Name: StockChanged, EntityID: "p1", Stock: &n})
	assert.Equal(t, 7, stock)
}
