package marketplace

// Observer receives the outcome of marketplace operations. Methods are
// called after all locks are released and must be safe for concurrent use.
type Observer interface {
	// Published reports a Publish and whether the unit was accepted.
	Published(producerID string, accepted bool)
	// Reserved reports an AddToCart; producerID is empty on a miss.
	Reserved(cartID int, producerID string, ok bool)
	// Returned reports a unit given back by RemoveFromCart.
	Returned(cartID int, producerID string)
	// OrderPlaced reports a PlaceOrder with its line and unit counts.
	OrderPlaced(cartID int, lines, units int)
}

// NopObserver discards all notifications.
type NopObserver struct{}

// Published does nothing.
func (NopObserver) Published(string, bool) {}

// Reserved does nothing.
func (NopObserver) Reserved(int, string, bool) {}

// Returned does nothing.
func (NopObserver) Returned(int, string) {}

// OrderPlaced does nothing.
func (NopObserver) OrderPlaced(int, int, int) {}
