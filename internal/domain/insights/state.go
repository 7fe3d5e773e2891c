package insights

import (
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// State is the dashboard view over one loaded snapshot: the sales plus the
// active filter and scope. It is a value; the With methods return copies.
type State struct {
	Sales  []sales.Sale
	Filter Filter
	Scope  Scope
}

// NewState starts a view on the newest month present in all.
func NewState(all []sales.Sale) State {
	s := State{Sales: all}
	if months := Months(all); len(months) > 0 {
		s.Filter.Month = months[0]
		s.Scope = Scope{Kind: ScopeMonth, Month: months[0]}
	}
	return s
}

// WithFilter returns a copy using f. A month scope follows the filter month.
func (s State) WithFilter(f Filter) State {
	s.Filter = f
	if s.Scope.Kind == ScopeMonth || s.Scope.Kind == "" {
		s.Scope = Scope{Kind: ScopeMonth, Month: f.Month}
	}
	return s
}

// WithScope returns a copy using sc.
func (s State) WithScope(sc Scope) State {
	s.Scope = sc
	return s
}

// Filtered returns the sales behind the table and its KPIs.
func (s State) Filtered() []sales.Sale {
	return s.Filter.Apply(s.Sales)
}

// Scoped returns the sales behind the charts and the item explorer.
func (s State) Scoped() []sales.Sale {
	return s.Scope.Apply(s.Sales)
}
