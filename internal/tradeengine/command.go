package tradeengine

import "fmt"

// Strategy picks the price at which a Buy/Sell/UpdatePrice command
// places its order, per spec §4.5 "Placement per strategy".
type Strategy int

const (
	// Maker rests at the same-side best price (highest bid for a buy,
	// lowest ask for a sell); nothing matches immediately.
	Maker Strategy = iota
	// Nibble prices at the opposite-side best price, matching
	// immediately up to the top-of-book volume.
	Nibble
	// Taker walks the book until the requested amount/volume is
	// exhausted or depth runs out.
	Taker
)

func (s Strategy) String() string {
	switch s {
	case Maker:
		return "maker"
	case Nibble:
		return "nibble"
	case Taker:
		return "taker"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// FeeType distinguishes the fee schedule applied to a fill: maker fees
// for resting liquidity, taker fees for crossing it.
type FeeType int

const (
	FeeMaker FeeType = iota
	FeeTaker
)

func (f FeeType) String() string {
	if f == FeeMaker {
		return "maker"
	}
	return "taker"
}

type commandKind int

const (
	kindWait commandKind = iota
	kindBuy
	kindSell
	kindUpdatePrice
	kindCancel
)

// AllOrdersID is the sentinel order id a Cancel command carries to mean
// "cancel every open order", mirroring TraderCommand::kAllOrdersId.
const AllOrdersID int32 = 0

// Command is the tagged variant an algorithm returns from one call to
// trade(): exactly one of Wait, Buy, Sell, UpdatePrice or Cancel. Unlike
// the original C++ enum-plus-fields encoding, the exported constructors
// below are the only way to build one, so a Command read back through
// its accessors always carries a field set consistent with its Kind.
type Command struct {
	kind      commandKind
	intensity float64
	strategy  Strategy
	orderID   int32
}

// Wait builds a no-op command.
func Wait() Command { return Command{kind: kindWait} }

// BuyCommand builds a Buy(intensity%) command. intensity must be in
// (0, 100].
func BuyCommand(intensity float64, strategy Strategy) (Command, error) {
	if intensity <= 0 || intensity > 100 {
		return Command{}, ErrInvalidIntensity
	}
	return Command{kind: kindBuy, intensity: intensity, strategy: strategy}, nil
}

// SellCommand builds a Sell(intensity%) command. intensity must be in
// (0, 100].
func SellCommand(intensity float64, strategy Strategy) (Command, error) {
	if intensity <= 0 || intensity > 100 {
		return Command{}, ErrInvalidIntensity
	}
	return Command{kind: kindSell, intensity: intensity, strategy: strategy}, nil
}

// UpdatePriceCommand builds a command that cancels orderID and
// immediately replaces it with a fresh order of the same remaining
// volume and side, priced by strategy.
func UpdatePriceCommand(orderID int32, strategy Strategy) Command {
	return Command{kind: kindUpdatePrice, orderID: orderID, strategy: strategy}
}

// CancelCommand builds a command cancelling a single open order by id.
func CancelCommand(orderID int32) Command {
	return Command{kind: kindCancel, orderID: orderID}
}

// CancelAllCommand builds a command cancelling every open order.
func CancelAllCommand() Command {
	return Command{kind: kindCancel, orderID: AllOrdersID}
}

func (c Command) IsWait() bool        { return c.kind == kindWait }
func (c Command) IsBuy() bool         { return c.kind == kindBuy }
func (c Command) IsSell() bool        { return c.kind == kindSell }
func (c Command) IsUpdatePrice() bool { return c.kind == kindUpdatePrice }
func (c Command) IsCancel() bool      { return c.kind == kindCancel }
func (c Command) IsCancelAll() bool   { return c.kind == kindCancel && c.orderID == AllOrdersID }

// Intensity returns the Buy/Sell percentage; meaningless for other kinds.
func (c Command) Intensity() float64 { return c.intensity }

// PriceStrategy returns the strategy of a Buy/Sell/UpdatePrice command.
func (c Command) PriceStrategy() Strategy { return c.strategy }

// OrderID returns the target order id of an UpdatePrice or Cancel
// command.
func (c Command) OrderID() int32 { return c.orderID }

func (c Command) String() string {
	switch c.kind {
	case kindWait:
		return "Wait"
	case kindBuy:
		return fmt.Sprintf("Buy(%.2f%%, %s)", c.intensity, c.strategy)
	case kindSell:
		return fmt.Sprintf("Sell(%.2f%%, %s)", c.intensity, c.strategy)
	case kindUpdatePrice:
		return fmt.Sprintf("UpdatePrice(%d, %s)", c.orderID, c.strategy)
	case kindCancel:
		if c.orderID == AllOrdersID {
			return "Cancel(all)"
		}
		return fmt.Sprintf("Cancel(%d)", c.orderID)
	default:
		return "Command(?)"
	}
}
