package domain

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Token identifies an ERC-20 style asset. Identity is (chain, address); symbol and
// decimals are descriptive only and never participate in equality checks.
type Token struct {
	ChainID  ChainID        `json:"chain_id"`
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Equal reports whether two tokens refer to the same on-chain asset.
func (t Token) Equal(other Token) bool {
	return t.ChainID == other.ChainID && t.Address == other.Address
}

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return fmt.Sprintf("%s@%d", t.Address.Hex(), t.ChainID)
}

// TokenPair is a canonically ordered pair of tokens. Base is always the token with
// the lower (chain, address) ordering so that both trade directions map onto one
// pair and therefore one clearing price.
type TokenPair struct {
	Base  Token `json:"base"`
	Quote Token `json:"quote"`
}

// NewTokenPair builds the canonical pair for two tokens regardless of the order
// they are supplied in.
func NewTokenPair(a, b Token) TokenPair {
	if tokenLess(b, a) {
		a, b = b, a
	}
	return TokenPair{Base: a, Quote: b}
}

// Inverted reports whether (sell, buy) runs against the pair's canonical
// direction, i.e. sell is the quote token.
func (p TokenPair) Inverted(sell Token) bool {
	return sell.Equal(p.Quote)
}

// Key returns a stable map key for the pair.
func (p TokenPair) Key() string {
	return fmt.Sprintf("%d:%s-%d:%s", p.Base.ChainID, p.Base.Address.Hex(), p.Quote.ChainID, p.Quote.Address.Hex())
}

func (p TokenPair) String() string {
	return p.Base.String() + "/" + p.Quote.String()
}

func tokenLess(a, b Token) bool {
	if a.ChainID != b.ChainID {
		return a.ChainID < b.ChainID
	}
	return bytes.Compare(a.Address.Bytes(), b.Address.Bytes()) < 0
}
