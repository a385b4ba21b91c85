package marketplace

import "sync"

// producer is one producer's queue of unclaimed units. All fields except id
// are guarded by mu.
type producer[P comparable] struct {
	id string

	mu    sync.Mutex
	queue []P
	// units counts queued units per product so take can skip a producer
	// without scanning its queue.
	units map[P]int
}

func newProducer[P comparable](id string) *producer[P] {
	return &producer[P]{id: id, units: make(map[P]int)}
}

func (p *producer[P]) put(product P) {
	p.queue = append(p.queue, product)
	p.units[product]++
}

// take removes the oldest unit equal to product.
func (p *producer[P]) take(product P) bool {
	if p.units[product] == 0 {
		return false
	}
	for i, q := range p.queue {
		if q != product {
			continue
		}
		copy(p.queue[i:], p.queue[i+1:])
		var zero P
		p.queue[len(p.queue)-1] = zero
		p.queue = p.queue[:len(p.queue)-1]
		if p.units[product]--; p.units[product] == 0 {
			delete(p.units, product)
		}
		return true
	}
	return false
}

// cart records, per product, which producers supplied each reserved unit in
// acquisition order. All fields are guarded by mu.
type cart[P comparable] struct {
	mu        sync.Mutex
	products  []P
	suppliers map[P][]string
}

func newCart[P comparable]() *cart[P] {
	return &cart[P]{suppliers: make(map[P][]string)}
}

func (c *cart[P]) reserve(product P, producerID string) {
	if _, seen := c.suppliers[product]; !seen {
		c.products = append(c.products, product)
	}
	c.suppliers[product] = append(c.suppliers[product], producerID)
}

// release pops the earliest supplier of product.
func (c *cart[P]) release(product P) (string, bool) {
	ids := c.suppliers[product]
	if len(ids) == 0 {
		return "", false
	}
	c.suppliers[product] = ids[1:]
	return ids[0], true
}

func (c *cart[P]) lines() []Line[P] {
	out := make([]Line[P], 0, len(c.products))
	for _, product := range c.products {
		if n := len(c.suppliers[product]); n > 0 {
			out = append(out, Line[P]{Product: product, Quantity: n})
		}
	}
	return out
}
