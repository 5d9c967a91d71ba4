package tradeengine

import (
	"time"

	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
)

// State is the mutable state of one market trader engine: synthetic
// balances plus the open/closed order books. Ported from
// MarketTraderEngineState in the original source (§4.5 "Trade Engine
// State").
type State struct {
	availableBase  money.Amount
	availableQuote money.Amount
	openOrders     []OpenOrder
	closedOrders   []ClosedOrder
	nextOrderID    int32
	fees           FeeConfig
}

// NewState builds the initial state from the starting base/quote
// balances.
func NewState(startBase, startQuote money.Amount, fees FeeConfig) *State {
	return &State{availableBase: startBase, availableQuote: startQuote, fees: fees}
}

func (s *State) AvailableBase() money.Amount  { return s.availableBase }
func (s *State) AvailableQuote() money.Amount { return s.availableQuote }
func (s *State) OpenOrders() []OpenOrder      { return s.openOrders }
func (s *State) ClosedOrders() []ClosedOrder  { return s.closedOrders }

func (s *State) computeBuyFrom(intensity float64) (money.Amount, error) {
	scaled, err := s.availableQuote.MulScalar(int64(intensity * 100))
	if err != nil {
		return money.Amount{}, err
	}
	return scaled.DivScalar(10000)
}

func (s *State) computeSellVolume(intensity float64) (money.Amount, error) {
	scaled, err := s.availableBase.MulScalar(int64(intensity * 100))
	if err != nil {
		return money.Amount{}, err
	}
	return scaled.DivScalar(10000)
}

func (s *State) nextOrderIDAlloc() int32 {
	s.nextOrderID++
	return s.nextOrderID
}

// placeBuyOrder records a new buy order: reserves `from` from quote,
// credits the fee-adjusted matched base immediately, and either closes
// the order outright (remainingVolume == 0) or opens it.
func (s *State) placeBuyOrder(placedTime time.Time, remainingVolume, price, matchedVolume, from money.Amount, feeType FeeType) error {
	credited, err := s.fees.Apply(matchedVolume, feeType)
	if err != nil {
		return err
	}
	base, err := money.Add(s.availableBase, credited)
	if err != nil {
		return err
	}
	quote, err := money.Sub(s.availableQuote, from)
	if err != nil {
		return err
	}
	s.availableBase, s.availableQuote = base, quote

	id := s.nextOrderIDAlloc()
	if remainingVolume.IsZero() {
		s.closedOrders = append(s.closedOrders, ClosedOrder{
			OrderCommon: OrderCommon{ID: id, MatchedVolume: matchedVolume, Price: price, PlacedTime: placedTime, Side: orderbook.Buy},
			MatchedTime: placedTime,
		})
	} else {
		s.openOrders = append(s.openOrders, OpenOrder{
			OrderCommon:     OrderCommon{ID: id, MatchedVolume: matchedVolume, Price: price, PlacedTime: placedTime, Side: orderbook.Buy},
			RemainingVolume: remainingVolume,
		})
	}
	return nil
}

// placeSellOrder records a new sell order: reserves (remaining+matched)
// from base, credits the fee-adjusted matched notional to quote.
func (s *State) placeSellOrder(placedTime time.Time, remainingVolume, price, matchedVolume money.Amount, feeType FeeType) error {
	reserved, err := money.Add(remainingVolume, matchedVolume)
	if err != nil {
		return err
	}
	base, err := money.Sub(s.availableBase, reserved)
	if err != nil {
		return err
	}
	notional, err := matchedVolume.ConvertTo(price)
	if err != nil {
		return err
	}
	credited, err := s.fees.Apply(notional, feeType)
	if err != nil {
		return err
	}
	quote, err := money.Add(s.availableQuote, credited)
	if err != nil {
		return err
	}
	s.availableBase, s.availableQuote = base, quote

	id := s.nextOrderIDAlloc()
	if remainingVolume.IsZero() {
		s.closedOrders = append(s.closedOrders, ClosedOrder{
			OrderCommon: OrderCommon{ID: id, MatchedVolume: matchedVolume, Price: price, PlacedTime: placedTime, Side: orderbook.Sell},
			MatchedTime: placedTime,
		})
	} else {
		s.openOrders = append(s.openOrders, OpenOrder{
			OrderCommon:     OrderCommon{ID: id, MatchedVolume: matchedVolume, Price: price, PlacedTime: placedTime, Side: orderbook.Sell},
			RemainingVolume: remainingVolume,
		})
	}
	return nil
}

func (s *State) adjustOpenedOrderRemainingVolume(orderID int32, newMatchedVolume money.Amount) error {
	for i := range s.openOrders {
		if s.openOrders[i].ID != orderID {
			continue
		}
		matched, err := money.Add(s.openOrders[i].MatchedVolume, newMatchedVolume)
		if err != nil {
			return err
		}
		remaining, err := money.Sub(s.openOrders[i].RemainingVolume, newMatchedVolume)
		if err != nil {
			return err
		}
		s.openOrders[i].MatchedVolume = matched
		s.openOrders[i].RemainingVolume = remaining
		return nil
	}
	return ErrOrderNotFound
}

// countMatchedPart applies a newly-observed partial (maker) fill of an
// already-open order: credits the fee-adjusted amount at maker rates and
// merges it into the closed-order ledger under the same id (closed
// orders accumulate fills even while the order is still partially open,
// mirroring the original's _closedOrders bookkeeping).
func (s *State) countMatchedPart(matchedOrder OpenOrder, price, newMatchedVolume money.Amount, matchedTime time.Time) error {
	switch matchedOrder.Side {
	case orderbook.Buy:
		credited, err := s.fees.Apply(newMatchedVolume, FeeMaker)
		if err != nil {
			return err
		}
		base, err := money.Add(s.availableBase, credited)
		if err != nil {
			return err
		}
		s.availableBase = base
	case orderbook.Sell:
		notional, err := newMatchedVolume.ConvertTo(price)
		if err != nil {
			return err
		}
		credited, err := s.fees.Apply(notional, FeeMaker)
		if err != nil {
			return err
		}
		quote, err := money.Add(s.availableQuote, credited)
		if err != nil {
			return err
		}
		s.availableQuote = quote
	}

	newClosed := ClosedOrder{
		OrderCommon: OrderCommon{ID: matchedOrder.ID, MatchedVolume: newMatchedVolume, Price: price, PlacedTime: matchedOrder.PlacedTime, Side: matchedOrder.Side},
		MatchedTime: matchedTime,
	}

	for i := len(s.closedOrders) - 1; i >= 0; i-- {
		if s.closedOrders[i].ID == matchedOrder.ID {
			merged, err := s.closedOrders[i].MergeWith(newClosed)
			if err != nil {
				return err
			}
			s.closedOrders[i] = merged
			return nil
		}
	}
	s.closedOrders = append(s.closedOrders, newClosed)
	return nil
}

func (s *State) findOpenOrder(orderID int32) (OpenOrder, int, error) {
	for i := range s.openOrders {
		if s.openOrders[i].ID == orderID {
			return s.openOrders[i], i, nil
		}
	}
	return OpenOrder{}, -1, ErrOrderNotFound
}

func (s *State) adjustAvailableAmountsCancel(o OpenOrder) error {
	switch o.Side {
	case orderbook.Buy:
		refund, err := o.RemainingVolume.ConvertTo(o.Price)
		if err != nil {
			return err
		}
		quote, err := money.Add(s.availableQuote, refund)
		if err != nil {
			return err
		}
		s.availableQuote = quote
	case orderbook.Sell:
		base, err := money.Add(s.availableBase, o.RemainingVolume)
		if err != nil {
			return err
		}
		s.availableBase = base
	}
	return nil
}

func (s *State) cancelOpenOrder(orderID int32) error {
	o, idx, err := s.findOpenOrder(orderID)
	if err != nil {
		return err
	}
	if err := s.adjustAvailableAmountsCancel(o); err != nil {
		return err
	}
	s.openOrders = append(s.openOrders[:idx], s.openOrders[idx+1:]...)
	return nil
}

func (s *State) cancelAllOpenOrders() error {
	for _, o := range s.openOrders {
		if err := s.adjustAvailableAmountsCancel(o); err != nil {
			return err
		}
	}
	s.openOrders = s.openOrders[:0]
	return nil
}

// eraseClosedOpenedOrders removes from the open-orders slice every order
// whose id appears in fullyMatched (it has just become fully matched and
// moved into the closed-order ledger via countMatchedPart).
func (s *State) eraseClosedOpenedOrders(fullyMatched []OpenOrder) {
	if len(fullyMatched) == 0 {
		return
	}
	ids := make(map[int32]struct{}, len(fullyMatched))
	for _, o := range fullyMatched {
		ids[o.ID] = struct{}{}
	}
	kept := s.openOrders[:0]
	for _, o := range s.openOrders {
		if _, gone := ids[o.ID]; gone {
			continue
		}
		kept = append(kept, o)
	}
	s.openOrders = kept
}
