package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Quantity int
	Discount Money
	Tax      Money
	Total    Money
}

// RoundDiv divides num by den rounding half away from zero.
// Both arguments must be non-negative; den must be positive.
func RoundDiv(num, den Money) Money {
	return (num + den/2) / den
}

// Compute calculates cart totals given the provided inputs. The discount is
// clamped to the subtotal so the taxable base never goes negative, and tax is
// charged on the discounted subtotal at taxBps basis points.
func Compute(items []Item, discount Money, taxBps int) Summary {
	var subtotal Money
	var quantity int
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
		quantity += it.Qty
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	tax := RoundDiv(taxable*Money(taxBps), 10000)
	return Summary{
		Subtotal: subtotal,
		Quantity: quantity,
		Discount: discount,
		Tax:      tax,
		Total:    taxable + tax,
	}
}
