// Package adminpb defines the request/response message types and gRPC
// service descriptor for Emerald's read-only Admin/status service.
//
// Message types implement proto.Message by hand, following the
// teacher's own api/pbft/v1/proto_impl.go pattern: ProtoMessage/Reset/
// String are written directly against the struct, and ProtoReflect
// returns nil rather than a generated reflection descriptor — the
// teacher itself never runs protoc, so neither do we. The service
// descriptor below is likewise hand-written against
// google.golang.org/grpc's grpc.ServiceDesc rather than relying on a
// generated *_grpc.pb.go, which extends the same no-codegen idiom one
// level further.
package adminpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// StatusRequest requests the adapter's current status.
type StatusRequest struct{}

// StatusResponse reports the adapter's current status.
type StatusResponse struct {
	ChainID string
	Height  uint64
	Round   uint64
	Syncing bool
}

// ValidatorSetRequest requests the validator set effective at Height.
// A Height of 0 means the latest known set.
type ValidatorSetRequest struct {
	Height uint64
}

// ValidatorInfo is one validator entry in a ValidatorSetResponse.
type ValidatorInfo struct {
	PublicKey []byte
	Address   []byte
	Power     uint64
}

// ValidatorSetResponse answers a ValidatorSetRequest.
type ValidatorSetResponse struct {
	Height     uint64
	Validators []ValidatorInfo
	TotalPower uint64
}

// DecidedValueRequest requests a previously decided value at Height.
type DecidedValueRequest struct {
	Height uint64
}

// DecidedValueResponse answers a DecidedValueRequest. Found is false
// when Height has no recorded decision (pruned or never decided).
type DecidedValueResponse struct {
	Found            bool
	Height           uint64
	BlockHash        []byte
	CertificateBytes []byte
}

var _ proto.Message = (*StatusRequest)(nil)

func (*StatusRequest) ProtoMessage()               {}
func (x *StatusRequest) Reset()                     { *x = StatusRequest{} }
func (x *StatusRequest) String() string              { return "StatusRequest" }
func (*StatusRequest) ProtoReflect() protoreflect.Message { return nil }

var _ proto.Message = (*StatusResponse)(nil)

func (*StatusResponse) ProtoMessage() {}
func (x *StatusResponse) Reset()      { *x = StatusResponse{} }
func (x *StatusResponse) String() string {
	return fmt.Sprintf("StatusResponse{ChainID:%s, Height:%d, Round:%d, Syncing:%v}", x.ChainID, x.Height, x.Round, x.Syncing)
}
func (*StatusResponse) ProtoReflect() protoreflect.Message { return nil }

var _ proto.Message = (*ValidatorSetRequest)(nil)

func (*ValidatorSetRequest) ProtoMessage() {}
func (x *ValidatorSetRequest) Reset()      { *x = ValidatorSetRequest{} }
func (x *ValidatorSetRequest) String() string {
	return fmt.Sprintf("ValidatorSetRequest{Height:%d}", x.Height)
}
func (*ValidatorSetRequest) ProtoReflect() protoreflect.Message { return nil }

var _ proto.Message = (*ValidatorSetResponse)(nil)

func (*ValidatorSetResponse) ProtoMessage() {}
func (x *ValidatorSetResponse) Reset()      { *x = ValidatorSetResponse{} }
func (x *ValidatorSetResponse) String() string {
	return fmt.Sprintf("ValidatorSetResponse{Height:%d, Validators:%d, TotalPower:%d}", x.Height, len(x.Validators), x.TotalPower)
}
func (*ValidatorSetResponse) ProtoReflect() protoreflect.Message { return nil }

var _ proto.Message = (*DecidedValueRequest)(nil)

func (*DecidedValueRequest) ProtoMessage() {}
func (x *DecidedValueRequest) Reset()      { *x = DecidedValueRequest{} }
func (x *DecidedValueRequest) String() string {
	return fmt.Sprintf("DecidedValueRequest{Height:%d}", x.Height)
}
func (*DecidedValueRequest) ProtoReflect() protoreflect.Message { return nil }

var _ proto.Message = (*DecidedValueResponse)(nil)

func (*DecidedValueResponse) ProtoMessage() {}
func (x *DecidedValueResponse) Reset()      { *x = DecidedValueResponse{} }
func (x *DecidedValueResponse) String() string {
	return fmt.Sprintf("DecidedValueResponse{Found:%v, Height:%d}", x.Found, x.Height)
}
func (*DecidedValueResponse) ProtoReflect() protoreflect.Message { return nil }
