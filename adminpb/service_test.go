package adminpb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type fakeServer struct {
	UnimplementedAdminServer
	status *StatusResponse
}

func (f *fakeServer) GetStatus(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	return f.status, nil
}

func TestServiceDescDispatchesGetStatus(t *testing.T) {
	srv := &fakeServer{status: &StatusResponse{ChainID: "emerald-test", Height: 9}}

	var handler *grpc.MethodDesc
	for i := range ServiceDesc.Methods {
		if ServiceDesc.Methods[i].MethodName == "GetStatus" {
			handler = &ServiceDesc.Methods[i]
		}
	}
	require.NotNil(t, handler, "GetStatus method not registered in ServiceDesc")

	resp, err := handler.Handler(srv, context.Background(), func(v interface{}) error { return nil }, nil)
	require.NoError(t, err)
	require.Equal(t, "emerald-test", resp.(*StatusResponse).ChainID)
	require.Equal(t, uint64(9), resp.(*StatusResponse).Height)
}

func TestServiceDescNamesMatchThreeMethods(t *testing.T) {
	require.Equal(t, "emerald.admin.v1.AdminService", ServiceDesc.ServiceName)
	names := make([]string, len(ServiceDesc.Methods))
	for i, m := range ServiceDesc.Methods {
		names[i] = m.MethodName
	}
	require.ElementsMatch(t, []string{"GetStatus", "GetValidatorSet", "GetDecidedValue"}, names)
}

func TestUnimplementedAdminServerReturnsErrorForEveryMethod(t *testing.T) {
	var u UnimplementedAdminServer

	_, err := u.GetStatus(context.Background(), &StatusRequest{})
	require.Error(t, err)

	_, err = u.GetValidatorSet(context.Background(), &ValidatorSetRequest{})
	require.Error(t, err)

	_, err = u.GetDecidedValue(context.Background(), &DecidedValueRequest{})
	require.Error(t, err)
}

func TestMessageStringersDoNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		_ = (&StatusResponse{ChainID: "x"}).String()
		_ = (&ValidatorSetRequest{Height: 1}).String()
		_ = (&ValidatorSetResponse{Height: 1, TotalPower: 3}).String()
		_ = (&DecidedValueRequest{Height: 1}).String()
		_ = (&DecidedValueResponse{Found: true, Height: 1}).String()
	})
}
