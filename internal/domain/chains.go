package domain

// ChainID identifies a blockchain network by its canonical numeric id.
type ChainID uint64

const (
	ChainEthereum  ChainID = 1
	ChainOptimism  ChainID = 10
	ChainBSC       ChainID = 56
	ChainPolygon   ChainID = 137
	ChainBase      ChainID = 8453
	ChainArbitrum  ChainID = 42161
	ChainAvalanche ChainID = 43114
)

// Name returns the human-readable network name.
func (c ChainID) Name() string {
	switch c {
	case ChainEthereum:
		return "Ethereum"
	case ChainOptimism:
		return "Optimism"
	case ChainBSC:
		return "Binance Smart Chain"
	case ChainPolygon:
		return "Polygon"
	case ChainBase:
		return "Base"
	case ChainArbitrum:
		return "Arbitrum"
	case ChainAvalanche:
		return "Avalanche"
	default:
		return "Unknown"
	}
}

// NativeSymbol returns the symbol of the chain's native token.
func (c ChainID) NativeSymbol() string {
	switch c {
	case ChainBSC:
		return "BNB"
	case ChainPolygon:
		return "MATIC"
	case ChainAvalanche:
		return "AVAX"
	case ChainEthereum, ChainOptimism, ChainBase, ChainArbitrum:
		return "ETH"
	default:
		return ""
	}
}

// Supported reports whether the chain is one the solver knows about.
func (c ChainID) Supported() bool {
	switch c {
	case ChainEthereum, ChainOptimism, ChainBSC, ChainPolygon, ChainBase, ChainArbitrum, ChainAvalanche:
		return true
	default:
		return false
	}
}
