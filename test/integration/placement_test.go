package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
	catalogpg "github.com/dvelasquez124/shopping-cart-app/internal/catalog/infrastructure/postgres"
	invpg "github.com/dvelasquez124/shopping-cart-app/internal/inventory/infrastructure/postgres"
	"github.com/dvelasquez124/shopping-cart-app/internal/order/application"
	orderdomain "github.com/dvelasquez124/shopping-cart-app/internal/order/domain"
	orderpg "github.com/dvelasquez124/shopping-cart-app/internal/order/infrastructure/postgres"
	"github.com/dvelasquez124/shopping-cart-app/pkg/metrics"
	"github.com/dvelasquez124/shopping-cart-app/pkg/outbox"
)

// These tests need Docker. Gate them so the ordinary unit run stays
// hermetic.
func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("STOREFRONT_INTEGRATION") == "" {
		t.Skip("set STOREFRONT_INTEGRATION=1 to run container-backed tests")
	}
}

type stack struct {
	env     *Env
	pool    *pgxpool.Pool
	catalog *catalogpg.Repository
	orders  *orderpg.Repository
	service *application.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	env, err := Setup(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(context.Background()) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, catalogpg.EnsureSchema(ctx, pool))
	require.NoError(t, orderpg.EnsureSchema(ctx, pool))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := invpg.NewLedger(log)
	catalogRepo := catalogpg.NewRepository(log, pool, ledger)
	orderRepo := orderpg.NewRepository(log, pool, ledger)
	svc := application.NewService(log, orderRepo, catalogRepo,
		metrics.NewOrderMetrics(prometheus.NewRegistry()))

	return &stack{env: env, pool: pool, catalog: catalogRepo, orders: orderRepo, service: svc}
}

func (s *stack) seedProduct(t *testing.T, stock int) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, s.catalog.Create(context.Background(), catalogdomain.Product{
		ID:              id,
		Name:            "Integration Widget",
		Description:     "widget used by container tests",
		PriceCents:      1299,
		QuantityInStock: stock,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}))
	return id
}

func (s *stack) stockOf(t *testing.T, productID string) int {
	t.Helper()
	p, err := s.catalog.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.QuantityInStock
}

func TestConcurrentPlacementNeverOversells(t *testing.T) {
	requireIntegration(t)
	s := newStack(t)
	ctx := context.Background()

	const stock = 10
	productID := s.seedProduct(t, stock)

	var wg sync.WaitGroup
	results := make([]error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.service.PlaceOrder(ctx, uuid.NewString(),
				[]application.ItemInput{{ProductID: productID, Quantity: 1}})
		}(i)
	}
	wg.Wait()

	var won, conflict int
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		var ise orderdomain.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		conflict++
	}
	assert.Equal(t, stock, won)
	assert.Equal(t, 40-stock, conflict)
	assert.Equal(t, 0, s.stockOf(t, productID))
}

func TestDeleteRestoresStockAtomically(t *testing.T) {
	requireIntegration(t)
	s := newStack(t)
	ctx := context.Background()

	productID := s.seedProduct(t, 5)

	o, err := s.service.PlaceOrder(ctx, uuid.NewString(),
		[]application.ItemInput{{ProductID: productID, Quantity: 3}})
	require.NoError(t, err)
	require.Equal(t, 2, s.stockOf(t, productID))

	restocked, err := s.service.DeleteAndRestock(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, restocked, 1)
	assert.Equal(t, 5, restocked[0].NewQuantity)
	assert.Equal(t, 5, s.stockOf(t, productID))

	_, err = s.service.GetOrder(ctx, o.ID)
	var nfe orderdomain.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestOutboxRelaysToKafka(t *testing.T) {
	requireIntegration(t)
	s := newStack(t)
	ctx := context.Background()

	const topic = "order.events.it"
	productID := s.seedProduct(t, 3)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(s.env.Brokers...),
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	t.Cleanup(func() { writer.Close() })

	store := orderpg.NewOutboxStore(log, s.pool)
	relay := outbox.NewRelay(log, store, outbox.NewDispatcher(log, writer, topic), "it-relay")

	relayCtx, stopRelay := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(relayCtx)
	}()
	t.Cleanup(func() {
		stopRelay()
		<-done
	})

	o, err := s.service.PlaceOrder(ctx, uuid.NewString(),
		[]application.ItemInput{{ProductID: productID, Quantity: 1}})
	require.NoError(t, err)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: s.env.Brokers,
		Topic:   topic,
		GroupID: "it-consumer",
	})
	t.Cleanup(func() { reader.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, o.ID, string(msg.Key))
	var eventType string
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			eventType = string(h.Value)
		}
	}
	assert.Equal(t, "OrderPlaced", eventType)

	require.Eventually(t, func() bool {
		var sent int
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM outbox WHERE status = 'sent'`).Scan(&sent)
		return err == nil && sent == 1
	}, 10*time.Second, 200*time.Millisecond)
}
