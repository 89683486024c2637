package engineclient

// Engine API and standard execution-API method names, mirroring the
// method-name constants used throughout the Engine-API client ecosystem.
const (
	methodForkchoiceUpdatedV3 = "engine_forkchoiceUpdatedV3"
	methodGetPayloadV3        = "engine_getPayloadV3"
	methodNewPayloadV3        = "engine_newPayloadV3"
	methodGetPayloadBodiesByRangeV1 = "engine_getPayloadBodiesByRangeV1"

	methodGetBlockByNumber = "eth_getBlockByNumber"
	methodChainID          = "eth_chainId"
	methodCall             = "eth_call"
)

// Payload status values returned by the Engine API.
const (
	StatusValid           = "VALID"
	StatusInvalid          = "INVALID"
	StatusSyncing          = "SYNCING"
	StatusAccepted         = "ACCEPTED"
	StatusInvalidBlockHash = "INVALID_BLOCK_HASH"
)
