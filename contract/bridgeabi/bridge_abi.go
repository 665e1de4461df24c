package bridgeabi

//nolint:golint
import (
	_ "embed"

	"github.com/gobridge/bridge-points/contract/abi"
)

//go:embed bridge.json
var bridgeJSONABI string

const (
	BridgeInitializedEventName = "BridgeInitialized"
	BridgeFinalizedEventName   = "BridgeFinalized"

	BridgeInitialized = "event BridgeInitialized(bytes32 indexed requestId, uint64 indexed srcChainId, uint64 indexed destChainId, bytes destSwapPath, address srcBridge, uint128 srcNonce, address srcInitiator, address destTo, address srcToken, address destToken, uint256 srcAmountIn, uint256 goUSDBurned, uint256 minAmountOut, uint256 rnkFee, uint256 destFee)"
	BridgeFinalized   = "event BridgeFinalized(bytes32 indexed requestId, address to, address destToken, uint256 amountOut)"
)

var (
	BridgeABI = abi.MustReadABI(bridgeJSONABI)

	BridgeInitializedEventSignature = BridgeABI.Events[BridgeInitializedEventName].ID
	BridgeFinalizedEventSignature   = BridgeABI.Events[BridgeFinalizedEventName].ID
)
