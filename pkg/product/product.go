// Package product defines the goods traded on the marketplace.
package product

import (
	"errors"
	"fmt"
)

// Kind distinguishes product families.
type Kind string

const (
	KindTea    Kind = "tea"
	KindCoffee Kind = "coffee"
)

// ErrInvalid indicates a product that fails validation.
var ErrInvalid = errors.New("invalid product")

// Product is an immutable, comparable description of one unit. Two units
// are interchangeable when all fields are equal.
type Product struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	Name       string `json:"name" yaml:"name"`
	Price      int    `json:"price" yaml:"price"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Acidity    string `json:"acidity,omitempty" yaml:"acidity,omitempty"`
	RoastLevel string `json:"roast_level,omitempty" yaml:"roast_level,omitempty"`
}

// Tea returns a tea product.
func Tea(name string, price int, teaType string) Product {
	return Product{Kind: KindTea, Name: name, Price: price, Type: teaType}
}

// Coffee returns a coffee product.
func Coffee(name string, price int, acidity, roastLevel string) Product {
	return Product{Kind: KindCoffee, Name: name, Price: price, Acidity: acidity, RoastLevel: roastLevel}
}

// Validate checks the fields required for the product's kind.
func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: negative price %d", ErrInvalid, p.Price)
	}
	switch p.Kind {
	case KindTea:
		if p.Acidity != "" || p.RoastLevel != "" {
			return fmt.Errorf("%w: tea %q has coffee attributes", ErrInvalid, p.Name)
		}
	case KindCoffee:
		if p.Type != "" {
			return fmt.Errorf("%w: coffee %q has a tea type", ErrInvalid, p.Name)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, p.Kind)
	}
	return nil
}

func (p Product) String() string {
	switch p.Kind {
	case KindTea:
		return fmt.Sprintf("Tea(name='%s', price=%d, type='%s')", p.Name, p.Price, p.Type)
	case KindCoffee:
		return fmt.Sprintf("Coffee(name='%s', price=%d, acidity='%s', roast_level='%s')", p.Name, p.Price, p.Acidity, p.RoastLevel)
	}
	return fmt.Sprintf("%s(name='%s', price=%d)", p.Kind, p.Name, p.Price)
}
