package adapter

import (
	"context"

	"github.com/emerald-consensus/emerald/adminpb"
	"github.com/emerald-consensus/emerald/consensusevents"
)

// AdminServer implements adminpb.Server, answering read-only status
// queries directly against the adapter's in-process state rather than
// by round-tripping through the consensus event channel — these are
// ambient operability queries, not consensus-critical events.
type AdminServer struct {
	adminpb.UnimplementedAdminServer
	adapter *Adapter
}

// NewAdminServer builds an AdminServer backed by a.
func NewAdminServer(a *Adapter) *AdminServer {
	return &AdminServer{adapter: a}
}

func (s *AdminServer) GetStatus(ctx context.Context, req *adminpb.StatusRequest) (*adminpb.StatusResponse, error) {
	s.adapter.mu.Lock()
	height := s.adapter.committedHeight
	round := s.adapter.committedRound
	s.adapter.mu.Unlock()

	return &adminpb.StatusResponse{
		ChainID: s.adapter.cfg.ChainID,
		Height:  uint64(height),
		Round:   uint64(round),
	}, nil
}

func (s *AdminServer) GetValidatorSet(ctx context.Context, req *adminpb.ValidatorSetRequest) (*adminpb.ValidatorSetResponse, error) {
	reply := s.adapter.handleGetValidatorSet(ctx, &consensusevents.GetValidatorSetRequest{Height: heightFromUint64(req.Height)})
	if reply.Err != nil {
		return nil, reply.Err
	}

	resp := &adminpb.ValidatorSetResponse{
		Height:     req.Height,
		TotalPower: uint64(reply.ValidatorSet.TotalPower),
	}
	for _, v := range reply.ValidatorSet.Validators {
		resp.Validators = append(resp.Validators, adminpb.ValidatorInfo{
			PublicKey: v.ID,
			Address:   v.Addr[:],
			Power:     uint64(v.Power),
		})
	}
	return resp, nil
}

func (s *AdminServer) GetDecidedValue(ctx context.Context, req *adminpb.DecidedValueRequest) (*adminpb.DecidedValueResponse, error) {
	reply := s.adapter.handleGetDecidedValue(ctx, &consensusevents.GetDecidedValueRequest{Height: heightFromUint64(req.Height)})
	if reply.Err != nil {
		return nil, reply.Err
	}
	if !reply.Found {
		return &adminpb.DecidedValueResponse{Found: false, Height: req.Height}, nil
	}
	return &adminpb.DecidedValueResponse{
		Found:            true,
		Height:           req.Height,
		BlockHash:        reply.Value.BlockHash[:],
		CertificateBytes: reply.Cert.Bytes,
	}, nil
}
