package marketplace

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMarket(t *testing.T, size int) *Marketplace[string] {
	t.Helper()
	m, err := New[string](size)
	require.NoError(t, err)
	return m
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -3} {
		_, err := New[string](size)
		assert.ErrorIs(t, err, ErrInvalidQueueSize)
	}
}

func TestRegisterProducerSequentialIDs(t *testing.T) {
	m := newTestMarket(t, 1)
	assert.Equal(t, "prod0", m.RegisterProducer())
	assert.Equal(t, "prod1", m.RegisterProducer())
	assert.Equal(t, []string{"prod0", "prod1"}, m.Producers())
}

func TestRegisterProducerConcurrentUnique(t *testing.T) {
	m := newTestMarket(t, 1)
	const k = 200

	ids := make([]string, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = m.RegisterProducer()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, k)
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, m.Producers(), k)
}

func TestPublishRejectsWhenFull(t *testing.T) {
	m := newTestMarket(t, 2)
	id := m.RegisterProducer()

	for i, want := range []bool{true, true, false} {
		ok, err := m.Publish(id, "tea")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "publish %d", i)
	}
	stock, err := m.Stock(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"tea", "tea"}, stock)
}

func TestPublishUnknownProducer(t *testing.T) {
	m := newTestMarket(t, 2)
	ok, err := m.Publish("prod7", "tea")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownProducer)

	_, err = m.Stock("prod7")
	assert.ErrorIs(t, err, ErrUnknownProducer)
}

func TestPublishConcurrentNeverOvershoots(t *testing.T) {
	const capacity, publishers, attempts = 5, 16, 50
	m := newTestMarket(t, capacity)
	id := m.RegisterProducer()

	var accepted atomic.Int64
	var overshoot atomic.Bool
	stop := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		for {
			select {
			case <-stop:
				return
			default:
			}
			stock, _ := m.Stock(id)
			if len(stock) > capacity {
				overshoot.Store(true)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < attempts; j++ {
				ok, err := m.Publish(id, "p"+strconv.Itoa(i))
				if err == nil && ok {
					accepted.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	close(stop)
	<-watcher

	assert.False(t, overshoot.Load())
	assert.EqualValues(t, capacity, accepted.Load())
	stock, err := m.Stock(id)
	require.NoError(t, err)
	assert.Len(t, stock, capacity)
}

func TestNewCartSequentialIDs(t *testing.T) {
	m := newTestMarket(t, 1)
	assert.Equal(t, 0, m.NewCart())
	assert.Equal(t, 1, m.NewCart())
}

func TestNewCartConcurrentUnique(t *testing.T) {
	m := newTestMarket(t, 1)
	const k = 100

	ids := make(chan int, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- m.NewCart()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool, k)
	for id := range ids {
		require.False(t, seen[id], "duplicate cart %d", id)
		require.True(t, id >= 0 && id < k)
		seen[id] = true
	}
}

func TestAddToCartNotAvailable(t *testing.T) {
	m := newTestMarket(t, 2)
	m.RegisterProducer()
	cart := m.NewCart()

	ok, err := m.AddToCart(cart, "coffee")
	require.NoError(t, err)
	assert.False(t, ok)

	lines, err := m.PlaceOrder(cart)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddToCartUnknownCart(t *testing.T) {
	m := newTestMarket(t, 2)
	for _, id := range []int{-1, 0, 3} {
		_, err := m.AddToCart(id, "tea")
		assert.ErrorIs(t, err, ErrUnknownCart)
	}
	_, err := m.PlaceOrder(0)
	assert.ErrorIs(t, err, ErrUnknownCart)
	assert.ErrorIs(t, m.RemoveFromCart(0, "tea"), ErrUnknownCart)
}

func TestAddToCartScansInRegistrationOrder(t *testing.T) {
	m := newTestMarket(t, 3)
	a := m.RegisterProducer()
	b := m.RegisterProducer()
	_, _ = m.Publish(b, "tea")
	_, _ = m.Publish(a, "coffee")
	_, _ = m.Publish(a, "tea")
	cart := m.NewCart()

	ok, err := m.AddToCart(cart, "tea")
	require.NoError(t, err)
	require.True(t, ok)

	stockA, _ := m.Stock(a)
	stockB, _ := m.Stock(b)
	assert.Equal(t, []string{"coffee"}, stockA)
	assert.Equal(t, []string{"tea"}, stockB)
}

func TestAddThenRemoveRestoresProducer(t *testing.T) {
	m := newTestMarket(t, 3)
	a := m.RegisterProducer()
	_, _ = m.Publish(a, "tea")
	_, _ = m.Publish(a, "coffee")
	cart := m.NewCart()

	ok, err := m.AddToCart(cart, "tea")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, m.RemoveFromCart(cart, "tea"))

	stock, _ := m.Stock(a)
	assert.ElementsMatch(t, []string{"tea", "coffee"}, stock)
	assert.Equal(t, "tea", stock[len(stock)-1], "returned unit goes to the tail")

	lines, err := m.PlaceOrder(cart)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRemoveFromCartIsFIFOPerProduct(t *testing.T) {
	m := newTestMarket(t, 1)
	a := m.RegisterProducer()
	b := m.RegisterProducer()
	_, _ = m.Publish(a, "tea")
	_, _ = m.Publish(b, "tea")
	cart := m.NewCart()

	for i := 0; i < 2; i++ {
		ok, err := m.AddToCart(cart, "tea")
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, m.RemoveFromCart(cart, "tea"))
	stockA, _ := m.Stock(a)
	stockB, _ := m.Stock(b)
	assert.Equal(t, []string{"tea"}, stockA)
	assert.Empty(t, stockB)

	require.NoError(t, m.RemoveFromCart(cart, "tea"))
	stockB, _ = m.Stock(b)
	assert.Equal(t, []string{"tea"}, stockB)
}

func TestRemoveFromCartNotInCart(t *testing.T) {
	m := newTestMarket(t, 1)
	a := m.RegisterProducer()
	_, _ = m.Publish(a, "tea")
	cart := m.NewCart()

	assert.ErrorIs(t, m.RemoveFromCart(cart, "tea"), ErrNotInCart)

	ok, _ := m.AddToCart(cart, "tea")
	require.True(t, ok)
	require.NoError(t, m.RemoveFromCart(cart, "tea"))
	assert.ErrorIs(t, m.RemoveFromCart(cart, "tea"), ErrNotInCart)

	stock, _ := m.Stock(a)
	assert.Equal(t, []string{"tea"}, stock, "failed removal must not touch stock")
}

func TestRemoveFromCartMayExceedCapacity(t *testing.T) {
	m := newTestMarket(t, 1)
	a := m.RegisterProducer()
	_, _ = m.Publish(a, "tea")
	cart := m.NewCart()
	ok, _ := m.AddToCart(cart, "tea")
	require.True(t, ok)

	ok, _ = m.Publish(a, "coffee")
	require.True(t, ok)
	require.NoError(t, m.RemoveFromCart(cart, "tea"))

	stock, _ := m.Stock(a)
	assert.Equal(t, []string{"coffee", "tea"}, stock)
	ok, _ = m.Publish(a, "coffee")
	assert.False(t, ok)
}

func TestPlaceOrderFirstAddOrder(t *testing.T) {
	m := newTestMarket(t, 2)
	a := m.RegisterProducer()
	b := m.RegisterProducer()
	_, _ = m.Publish(a, "P")
	_, _ = m.Publish(a, "Q")
	_, _ = m.Publish(b, "P")
	cart := m.NewCart()

	for _, p := range []string{"P", "Q", "P"} {
		ok, err := m.AddToCart(cart, p)
		require.NoError(t, err)
		require.True(t, ok)
	}

	lines, err := m.PlaceOrder(cart)
	require.NoError(t, err)
	assert.Equal(t, []Line[string]{{Product: "P", Quantity: 2}, {Product: "Q", Quantity: 1}}, lines)

	again, err := m.PlaceOrder(cart)
	require.NoError(t, err)
	assert.Equal(t, lines, again, "placing an order leaves the cart intact")
}

func TestConcurrentAddToCartLastUnit(t *testing.T) {
	for round := 0; round < 50; round++ {
		m := newTestMarket(t, 1)
		a := m.RegisterProducer()
		_, _ = m.Publish(a, "P")
		carts := []int{m.NewCart(), m.NewCart()}

		results := make([]bool, len(carts))
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i, c := range carts {
			wg.Add(1)
			go func(i, c int) {
				defer wg.Done()
				<-start
				ok, err := m.AddToCart(c, "P")
				assert.NoError(t, err)
				results[i] = ok
			}(i, c)
		}
		close(start)
		wg.Wait()

		assert.True(t, results[0] != results[1], "exactly one consumer reserves the unit")
		stock, _ := m.Stock(a)
		assert.Empty(t, stock)
	}
}

func TestConcurrentExchangeConservesUnits(t *testing.T) {
	const producers, consumers, units = 4, 8, 40
	m := newTestMarket(t, units)

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		id := m.RegisterProducer()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < units; j++ {
				ok, err := m.Publish(id, "P")
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < consumers; i++ {
		cart := m.NewCart()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 1; ; n++ {
				ok, err := m.AddToCart(cart, "P")
				assert.NoError(t, err)
				if !ok {
					return
				}
				if n%3 == 0 {
					assert.NoError(t, m.RemoveFromCart(cart, "P"))
				}
			}
		}()
	}
	wg.Wait()

	left := 0
	for _, id := range m.Producers() {
		stock, _ := m.Stock(id)
		left += len(stock)
	}
	total := 0
	for cart := 0; cart < consumers; cart++ {
		lines, err := m.PlaceOrder(cart)
		require.NoError(t, err)
		for _, l := range lines {
			total += l.Quantity
		}
	}
	assert.Equal(t, producers*units, left+total)
}

type recordingObserver struct {
	mu        sync.Mutex
	published []bool
	reserved  []string
	returned  []string
	orders    [][2]int
}

func (r *recordingObserver) Published(_ string, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, accepted)
}

func (r *recordingObserver) Reserved(_ int, producerID string, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserved = append(r.reserved, producerID)
}

func (r *recordingObserver) Returned(_ int, producerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returned = append(r.returned, producerID)
}

func (r *recordingObserver) OrderPlaced(_ int, lines, units int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, [2]int{lines, units})
}

func TestObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	m, err := New[string](1, WithObserver(obs))
	require.NoError(t, err)
	a := m.RegisterProducer()
	cart := m.NewCart()

	_, _ = m.Publish(a, "tea")
	_, _ = m.Publish(a, "tea")
	_, _ = m.AddToCart(cart, "tea")
	_, _ = m.AddToCart(cart, "tea")
	require.NoError(t, m.RemoveFromCart(cart, "tea"))
	_, _ = m.AddToCart(cart, "tea")
	_, _ = m.PlaceOrder(cart)

	assert.Equal(t, []bool{true, false}, obs.published)
	assert.Equal(t, []string{a, "", a}, obs.reserved)
	assert.Equal(t, []string{a}, obs.returned)
	assert.Equal(t, [][2]int{{1, 1}}, obs.orders)
}
