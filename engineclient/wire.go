package engineclient

// wireWithdrawal mirrors the Engine-API withdrawal object.
type wireWithdrawal struct {
	Index          quantity `json:"index"`
	ValidatorIndex quantity `json:"validatorIndex"`
	Address        hexBytes `json:"address"`
	Amount         quantity `json:"amount"`
}

// wirePayload mirrors engine_getPayloadV3's ExecutionPayloadV3 object.
type wirePayload struct {
	ParentHash    hexBytes         `json:"parentHash"`
	FeeRecipient  hexBytes         `json:"feeRecipient"`
	StateRoot     hexBytes         `json:"stateRoot"`
	ReceiptsRoot  hexBytes         `json:"receiptsRoot"`
	LogsBloom     hexBytes         `json:"logsBloom"`
	PrevRandao    hexBytes         `json:"prevRandao"`
	BlockNumber   quantity         `json:"blockNumber"`
	GasLimit      quantity         `json:"gasLimit"`
	GasUsed       quantity         `json:"gasUsed"`
	Timestamp     quantity         `json:"timestamp"`
	ExtraData     hexBytes         `json:"extraData"`
	BaseFeePerGas hexBytes         `json:"baseFeePerGas"`
	BlockHash     hexBytes         `json:"blockHash"`
	Transactions  []hexBytes       `json:"transactions"`
	Withdrawals   []wireWithdrawal `json:"withdrawals"`
	BlobGasUsed   quantity         `json:"blobGasUsed"`
	ExcessBlobGas quantity         `json:"excessBlobGas"`
}

// wirePayloadBody mirrors ExecutionPayloadBodyV1, returned by
// engine_getPayloadBodiesByRangeV1.
type wirePayloadBody struct {
	Transactions []hexBytes       `json:"transactions"`
	Withdrawals  []wireWithdrawal `json:"withdrawals"`
}

// wireForkchoiceState mirrors ForkchoiceStateV1.
type wireForkchoiceState struct {
	HeadBlockHash      hexBytes `json:"headBlockHash"`
	SafeBlockHash      hexBytes `json:"safeBlockHash"`
	FinalizedBlockHash hexBytes `json:"finalizedBlockHash"`
}

// wirePayloadAttributes mirrors PayloadAttributesV3, used to request
// the EL to begin building a new payload.
type wirePayloadAttributes struct {
	Timestamp             quantity         `json:"timestamp"`
	PrevRandao            hexBytes         `json:"prevRandao"`
	SuggestedFeeRecipient hexBytes         `json:"suggestedFeeRecipient"`
	Withdrawals           []wireWithdrawal `json:"withdrawals"`
	ParentBeaconBlockRoot hexBytes         `json:"parentBeaconBlockRoot"`
}

// wirePayloadStatus mirrors PayloadStatusV1.
type wirePayloadStatus struct {
	Status          string   `json:"status"`
	LatestValidHash hexBytes `json:"latestValidHash,omitempty"`
	ValidationError *string  `json:"validationError"`
}

// wireForkchoiceUpdatedResponse mirrors ForkchoiceUpdatedResult.
type wireForkchoiceUpdatedResponse struct {
	PayloadStatus wirePayloadStatus `json:"payloadStatus"`
	PayloadID     *hexBytes         `json:"payloadId"`
}

// wireBlockHeader is the subset of eth_getBlockByNumber's result used by
// the sync-readiness guard.
type wireBlockHeader struct {
	Number quantity `json:"number"`
	Hash   hexBytes `json:"hash"`
}
