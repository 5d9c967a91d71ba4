package orderbook

import "coincenter-core/internal/money"

// CumulAmountBoughtAt sums the base volume available to buy immediately
// at prices up to and including the given quote price, walking the ask
// side from the top.
func (b *Book) CumulAmountBoughtAt(price money.Amount) money.Amount {
	priceTicks, ok := price.AmountAt(b.priDecimals)
	if !ok {
		return b.amountFromTicks(0)
	}
	var cumul int64
	for i := b.lowestAskPos; i < len(b.lines); i++ {
		if b.lines[i].price > priceTicks {
			break
		}
		cumul += -b.lines[i].amount
	}
	return b.amountFromTicks(cumul)
}

// CumulAmountSoldAt sums the base volume that would be sold immediately
// at prices down to and including the given quote price, walking the
// bid side from the top.
func (b *Book) CumulAmountSoldAt(price money.Amount) money.Amount {
	priceTicks, ok := price.AmountAt(b.priDecimals)
	if !ok {
		return b.amountFromTicks(0)
	}
	var cumul int64
	for i := b.lowestAskPos - 1; i >= 0; i-- {
		if b.lines[i].price < priceTicks {
			break
		}
		cumul += b.lines[i].amount
	}
	return b.amountFromTicks(cumul)
}

// MaxPriceToBuy walks the ask side until the cumulative volume reaches
// amount, returning the last price touched, or (zero, false) on
// insufficient depth.
func (b *Book) MaxPriceToBuy(amount money.Amount) (money.Amount, bool) {
	target, ok := amount.AmountAt(b.volDecimals)
	if !ok {
		return money.Amount{}, false
	}
	var cumul int64
	for i := b.lowestAskPos; i < len(b.lines); i++ {
		cumul += -b.lines[i].amount
		if cumul >= target {
			return b.priceFromTicks(b.lines[i].price), true
		}
	}
	return money.Amount{}, false
}

// MinPriceToSell walks the bid side (descending price) until the
// cumulative volume reaches amount, returning the last price touched, or
// (zero, false) on insufficient depth.
func (b *Book) MinPriceToSell(amount money.Amount) (money.Amount, bool) {
	target, ok := amount.AmountAt(b.volDecimals)
	if !ok {
		return money.Amount{}, false
	}
	var cumul int64
	for i := b.lowestAskPos - 1; i >= 0; i-- {
		cumul += b.lines[i].amount
		if cumul >= target {
			return b.priceFromTicks(b.lines[i].price), true
		}
	}
	return money.Amount{}, false
}

// Convert performs a full market-price conversion of amount (either in
// base or quote currency) by walking one side of the book to exhaustion.
// Returns (zero, false) on insufficient depth or an unrecognized
// currency.
func (b *Book) Convert(amount money.Amount) (money.Amount, bool) {
	switch {
	case amount.Currency().Equal(b.mkt.Base()):
		return b.convertBaseToQuote(amount)
	case amount.Currency().Equal(b.mkt.Quote()):
		return b.convertQuoteToBase(amount)
	default:
		return money.Amount{}, false
	}
}

// convertBaseToQuote sells `amount` of base into the bid side, walking
// down from the best bid.
func (b *Book) convertBaseToQuote(amount money.Amount) (money.Amount, bool) {
	remaining := amount
	quoteAccum := money.New(0, b.mkt.Quote(), b.priDecimals)
	for i := b.lowestAskPos - 1; i >= 0 && !remaining.IsZero(); i-- {
		levelVol := b.amountFromTicks(b.lines[i].amount)
		price := b.priceFromTicks(b.lines[i].price)
		consumed := levelVol
		if remaining.Less(levelVol) {
			consumed = remaining
		}
		notional, err := consumed.ConvertTo(price)
		if err != nil {
			return money.Amount{}, false
		}
		quoteAccum, err = money.Add(quoteAccum, notional)
		if err != nil {
			return money.Amount{}, false
		}
		remaining, err = money.Sub(remaining, consumed)
		if err != nil {
			return money.Amount{}, false
		}
	}
	if !remaining.IsZero() {
		return money.Amount{}, false
	}
	return quoteAccum, true
}

// convertQuoteToBase buys base with `amount` of quote, walking up from
// the best ask.
func (b *Book) convertQuoteToBase(amount money.Amount) (money.Amount, bool) {
	remaining := amount
	baseAccum := money.New(0, b.mkt.Base(), b.volDecimals)
	for i := b.lowestAskPos; i < len(b.lines) && !remaining.IsZero(); i++ {
		levelVol := b.amountFromTicks(b.lines[i].amount)
		price := b.priceFromTicks(b.lines[i].price)
		levelNotional, err := levelVol.ConvertTo(price)
		if err != nil {
			return money.Amount{}, false
		}
		fromI := levelNotional
		if remaining.Less(levelNotional) {
			fromI = remaining
		}
		baseMatched, err := money.Div(fromI, price)
		if err != nil {
			return money.Amount{}, false
		}
		baseMatched = baseMatched.WithCurrency(b.mkt.Base())
		baseAccum, err = money.Add(baseAccum, baseMatched)
		if err != nil {
			return money.Amount{}, false
		}
		remaining, err = money.Sub(remaining, fromI)
		if err != nil {
			return money.Amount{}, false
		}
	}
	if !remaining.IsZero() {
		return money.Amount{}, false
	}
	return baseAccum, true
}

// AvgPriceAndMatchedAmountTaker simulates a taker order: walks the
// opposite side of the book (chosen by input's currency) until input is
// exhausted or the book ends, returning the matched volume in the
// opposite currency and the volume-weighted average price. An empty
// book or zero input returns (0, 0).
func (b *Book) AvgPriceAndMatchedAmountTaker(input money.Amount) (matched money.Amount, avgPrice money.Amount) {
	zeroOpp := money.New(0, b.mkt.Base(), b.volDecimals)
	zeroPrice := money.New(0, b.mkt.Quote(), b.priDecimals)
	if input.IsZero() || b.Empty() {
		if input.Currency().Equal(b.mkt.Quote()) {
			return zeroOpp, zeroPrice
		}
		return money.New(0, b.mkt.Quote(), b.priDecimals), zeroPrice
	}
	if input.Currency().Equal(b.mkt.Quote()) {
		remaining := input
		baseMatched := zeroOpp
		weightedQuote := money.New(0, b.mkt.Quote(), b.priDecimals)
		for i := b.lowestAskPos; i < len(b.lines) && !remaining.IsZero(); i++ {
			levelVol := b.amountFromTicks(b.lines[i].amount)
			price := b.priceFromTicks(b.lines[i].price)
			levelNotional, _ := levelVol.ConvertTo(price)
			fromI := levelNotional
			if remaining.Less(levelNotional) {
				fromI = remaining
			}
			baseI, _ := money.Div(fromI, price)
			baseI = baseI.WithCurrency(b.mkt.Base())
			baseMatched, _ = money.Add(baseMatched, baseI)
			weightedQuote, _ = money.Add(weightedQuote, fromI)
			remaining, _ = money.Sub(remaining, fromI)
		}
		if baseMatched.IsZero() {
			return zeroOpp, zeroPrice
		}
		avg, err := money.Div(weightedQuote, baseMatched.ToNeutral())
		if err != nil {
			return zeroOpp, zeroPrice
		}
		return baseMatched, avg.WithCurrency(b.mkt.Quote())
	}

	// input is base currency: taker sell into the bid side.
	remaining := input
	quoteMatched := money.New(0, b.mkt.Quote(), b.priDecimals)
	baseConsumed := zeroOpp
	for i := b.lowestAskPos - 1; i >= 0 && !remaining.IsZero(); i-- {
		levelVol := b.amountFromTicks(b.lines[i].amount)
		price := b.priceFromTicks(b.lines[i].price)
		consumed := levelVol
		if remaining.Less(levelVol) {
			consumed = remaining
		}
		notional, _ := consumed.ConvertTo(price)
		quoteMatched, _ = money.Add(quoteMatched, notional)
		baseConsumed, _ = money.Add(baseConsumed, consumed)
		remaining, _ = money.Sub(remaining, consumed)
	}
	if baseConsumed.IsZero() {
		return quoteMatched, zeroPrice
	}
	avg, err := money.Div(quoteMatched, baseConsumed.ToNeutral())
	if err != nil {
		return quoteMatched, zeroPrice
	}
	return quoteMatched, avg.WithCurrency(b.mkt.Quote())
}

// MatchedPart is one fill a limit or taker order would produce against a
// single price level.
type MatchedPart struct {
	Amount money.Amount
	Price  money.Amount
}

// AvgPriceAndMatchedVolume simulates a limit order of the given side and
// volume (base currency) crossing the book up to limitPrice. Returns the
// total matched base volume and the volume-weighted average price;
// (0, 0) if nothing would match.
func (b *Book) AvgPriceAndMatchedVolume(side Side, volume money.Amount, limitPrice money.Amount) (matched money.Amount, avgPrice money.Amount) {
	parts := b.ComputeMatchedParts(side, volume, limitPrice)
	zeroVol := money.New(0, b.mkt.Base(), b.volDecimals)
	zeroPrice := money.New(0, b.mkt.Quote(), b.priDecimals)
	if len(parts) == 0 {
		return zeroVol, zeroPrice
	}
	totalVol := zeroVol
	weighted := money.New(0, b.mkt.Quote(), b.priDecimals)
	for _, p := range parts {
		totalVol, _ = money.Add(totalVol, p.Amount)
		notional, _ := p.Amount.ConvertTo(p.Price)
		weighted, _ = money.Add(weighted, notional)
	}
	if totalVol.IsZero() {
		return zeroVol, zeroPrice
	}
	avg, err := money.Div(weighted, totalVol.ToNeutral())
	if err != nil {
		return zeroVol, zeroPrice
	}
	return totalVol, avg.WithCurrency(b.mkt.Quote())
}

// ComputeMatchedParts returns the per-level fills a limit order of the
// given side, volume and limit price would produce, stopping once the
// level price crosses the limit, the requested volume is exhausted, or
// (for a synthetic book) the synthetic depth is exceeded.
func (b *Book) ComputeMatchedParts(side Side, volume money.Amount, limitPrice money.Amount) []MatchedPart {
	var parts []MatchedPart
	remaining := volume
	switch side {
	case Buy:
		for i := b.lowestAskPos; i < len(b.lines) && !remaining.IsZero(); i++ {
			price := b.priceFromTicks(b.lines[i].price)
			if price.Less(limitPrice) || price.Equal(limitPrice) {
				levelVol := b.amountFromTicks(b.lines[i].amount)
				consumed := levelVol
				if remaining.Less(levelVol) {
					consumed = remaining
				}
				parts = append(parts, MatchedPart{Amount: consumed, Price: price})
				remaining, _ = money.Sub(remaining, consumed)
				continue
			}
			break
		}
	case Sell:
		for i := b.lowestAskPos - 1; i >= 0 && !remaining.IsZero(); i-- {
			price := b.priceFromTicks(b.lines[i].price)
			if limitPrice.Less(price) || price.Equal(limitPrice) {
				levelVol := b.amountFromTicks(b.lines[i].amount)
				consumed := levelVol
				if remaining.Less(levelVol) {
					consumed = remaining
				}
				parts = append(parts, MatchedPart{Amount: consumed, Price: price})
				remaining, _ = money.Sub(remaining, consumed)
				continue
			}
			break
		}
	}
	return parts
}
