package dex

import "strings"

// Base mainnet addresses. These are fixed for the chain this sniper targets
// and are not exposed as config knobs.
const (
	ETHNative = "0x0000000000000000000000000000000000000000"
	WETH      = "0x4200000000000000000000000000000000000006"
	USDC      = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	USDbC     = "0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA"

	V3Factory     = "0x33128a8fC17869897dcE68Ed026d694621f6FDfD"
	V3SwapRouter  = "0x2626664c2603336E57B271c5C0b26F421741e481"
	V3QuoterV2    = "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"
	V4PoolManager = "0x498581fF718922c3f8e6A244956aF099B2652b2b"
	V4Quoter      = "0x0d5e0F971ED27FBfF6c2837bf31316121532048D"
)

// EthAddresses holds the address forms that count as "the ETH side" of a
// pool for admission purposes: native ETH and wrapped ETH.
var EthAddresses = map[string]struct{}{
	strings.ToLower(ETHNative): {},
	strings.ToLower(WETH):      {},
}

// IsEthSide reports whether addr is native ETH or WETH.
func IsEthSide(addr string) bool {
	_, ok := EthAddresses[strings.ToLower(addr)]
	return ok
}

// DefaultSafeHooks is the V4 hooks allow-list: pools with a hooks address
// outside this set are treated as carrying unvetted custom logic.
var DefaultSafeHooks = map[string]struct{}{
	strings.ToLower(ETHNative): {}, // zero address: no hooks attached
}

// IsSafeHook reports whether hooks is on the default allow-list.
func IsSafeHook(hooks string) bool {
	_, ok := DefaultSafeHooks[strings.ToLower(hooks)]
	return ok
}

// BuildHookSet turns a configured list of allow-listed hooks addresses into
// a lookup set. An empty list falls back to DefaultSafeHooks.
func BuildHookSet(addrs []string) map[string]struct{} {
	if len(addrs) == 0 {
		return DefaultSafeHooks
	}
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

// DangerousSelectors maps 4-byte function selectors whose presence in a
// token's bytecode indicates owner-controlled rug machinery.
var DangerousSelectors = map[string]string{
	"40c10f19": "mint",
	"44df8e70": "blacklist",
	"e47d6060": "isBlacklisted",
	"3950935e": "setTax",
	"0e83672a": "setMaxTxAmount",
	"c9567bf9": "openTrading",
	"1694505e": "uniswapV2Pair",
	"49bd5a5e": "uniswapV2Router",
}

// ProxyPatterns are hex substrings of well-known minimal-proxy bytecode
// preludes (EIP-1167 and a common UUPS-style variant). A token behind one of
// these delegates its real logic to a contract that was not scanned.
var ProxyPatterns = []string{
	"363d3d373d3d3d363d",
	"5f5f5f5f5f365f5f",
}
