package offer

// ScopeKind identifies which part of the catalog an offer covers.
type ScopeKind uint8

const (
	// ScopeStoreWide covers every product.
	ScopeStoreWide ScopeKind = iota
	// ScopeProduct covers a single product.
	ScopeProduct
	// ScopeCategory covers every product of a category.
	ScopeCategory
)

// String implements fmt.Stringer.
func (k ScopeKind) String() string {
	switch k {
	case ScopeProduct:
		return "product"
	case ScopeCategory:
		return "category"
	default:
		return "store_wide"
	}
}

// Scope is the subset of the catalog an offer may discount. The zero value is
// store-wide.
type Scope struct {
	kind ScopeKind
	id   string
}

// StoreWide returns a scope covering the whole catalog.
func StoreWide() Scope {
	return Scope{kind: ScopeStoreWide}
}

// ProductScope returns a scope covering the given product.
func ProductScope(productID string) Scope {
	return Scope{kind: ScopeProduct, id: productID}
}

// CategoryScope returns a scope covering the given category.
func CategoryScope(categoryID string) Scope {
	return Scope{kind: ScopeCategory, id: categoryID}
}

// NewScope builds a scope from the two optional identifiers a stored offer
// carries. Product scope wins when both are set.
func NewScope(productID, categoryID string) Scope {
	switch {
	case productID != "":
		return ProductScope(productID)
	case categoryID != "":
		return CategoryScope(categoryID)
	default:
		return StoreWide()
	}
}

// Kind returns the scope kind.
func (s Scope) Kind() ScopeKind { return s.kind }

// ProductID returns the product identifier for product scopes.
func (s Scope) ProductID() (string, bool) {
	if s.kind != ScopeProduct {
		return "", false
	}
	return s.id, true
}

// CategoryID returns the category identifier for category scopes.
func (s Scope) CategoryID() (string, bool) {
	if s.kind != ScopeCategory {
		return "", false
	}
	return s.id, true
}

// Matches reports whether the scope covers a product of the given category.
func (s Scope) Matches(productID, categoryID string) bool {
	switch s.kind {
	case ScopeProduct:
		return s.id == productID
	case ScopeCategory:
		return s.id == categoryID
	default:
		return true
	}
}

// Matches reports whether the offer's scope covers the cart line.
func (o *Offer) Matches(line Line) bool {
	return o.Scope.Matches(line.ProductID, line.CategoryID)
}

// MatchesAny reports whether the offer's scope covers at least one line.
func (o *Offer) MatchesAny(lines []Line) bool {
	for _, l := range lines {
		if o.Matches(l) {
			return true
		}
	}
	return false
}
