package sim

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"marketplace/pkg/product"
)

// ErrScenario indicates an inconsistent scenario file.
var ErrScenario = errors.New("invalid scenario")

// Scenario describes a simulation: a product catalog, the producers that
// make catalog entries and the consumers that buy them.
type Scenario struct {
	QueueSize int                        `yaml:"queue_size"`
	Products  map[string]product.Product `yaml:"products"`
	Producers []ProducerSpec             `yaml:"producers"`
	Consumers []ConsumerSpec             `yaml:"consumers"`
}

// ProducerSpec is a producer entry of a scenario file.
type ProducerSpec struct {
	RepublishWait time.Duration `yaml:"republish_wait"`
	Supplies      []SupplySpec  `yaml:"supplies"`
}

// SupplySpec references a catalog product.
type SupplySpec struct {
	Product  string        `yaml:"product"`
	Quantity int           `yaml:"quantity"`
	Wait     time.Duration `yaml:"wait"`
}

// ConsumerSpec is a consumer entry of a scenario file.
type ConsumerSpec struct {
	Name      string        `yaml:"name"`
	RetryWait time.Duration `yaml:"retry_wait"`
	Carts     [][]OpSpec    `yaml:"carts"`
}

// OpSpec references a catalog product.
type OpSpec struct {
	Type     OpType `yaml:"type"`
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
}

// LoadScenario reads a YAML scenario from path.
func LoadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, err
	}
	defer f.Close()
	return ParseScenario(f)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(r io.Reader) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return s, nil
}

// Build resolves catalog references into runnable workers.
func (s Scenario) Build() ([]Producer, []Consumer, error) {
	if s.QueueSize <= 0 {
		return nil, nil, fmt.Errorf("%w: queue_size must be positive", ErrScenario)
	}
	for id, p := range s.Products {
		if err := p.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: product %s: %v", ErrScenario, id, err)
		}
	}

	producers := make([]Producer, 0, len(s.Producers))
	for i, ps := range s.Producers {
		if ps.RepublishWait <= 0 {
			return nil, nil, fmt.Errorf("%w: producer %d: republish_wait must be positive", ErrScenario, i)
		}
		p := Producer{RepublishWait: ps.RepublishWait}
		for _, ss := range ps.Supplies {
			prod, err := s.lookup(ss.Product, ss.Quantity)
			if err != nil {
				return nil, nil, fmt.Errorf("producer %d: %w", i, err)
			}
			p.Supplies = append(p.Supplies, Supply{Product: prod, Quantity: ss.Quantity, Wait: ss.Wait})
		}
		producers = append(producers, p)
	}

	consumers := make([]Consumer, 0, len(s.Consumers))
	for i, cs := range s.Consumers {
		name := cs.Name
		if name == "" {
			name = fmt.Sprintf("cons%d", i+1)
		}
		if cs.RetryWait <= 0 {
			return nil, nil, fmt.Errorf("%w: consumer %s: retry_wait must be positive", ErrScenario, name)
		}
		c := Consumer{Name: name, RetryWait: cs.RetryWait}
		for _, cart := range cs.Carts {
			ops := make([]Op, 0, len(cart))
			for _, spec := range cart {
				if spec.Type != OpAdd && spec.Type != OpRemove {
					return nil, nil, fmt.Errorf("%w: consumer %s: unknown operation %q", ErrScenario, name, spec.Type)
				}
				prod, err := s.lookup(spec.Product, spec.Quantity)
				if err != nil {
					return nil, nil, fmt.Errorf("consumer %s: %w", name, err)
				}
				ops = append(ops, Op{Type: spec.Type, Product: prod, Quantity: spec.Quantity})
			}
			c.Carts = append(c.Carts, ops)
		}
		consumers = append(consumers, c)
	}
	return producers, consumers, nil
}

func (s Scenario) lookup(id string, quantity int) (product.Product, error) {
	p, ok := s.Products[id]
	if !ok {
		return product.Product{}, fmt.Errorf("%w: unknown product %q", ErrScenario, id)
	}
	if quantity <= 0 {
		return product.Product{}, fmt.Errorf("%w: product %q: quantity must be positive", ErrScenario, id)
	}
	return p, nil
}
