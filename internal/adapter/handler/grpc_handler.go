package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ltdat/flashstock/internal/adapter/handler/pb"
	"github.com/ltdat/flashstock/internal/core/service"
)

type GRPCHandler struct {
	pb.UnimplementedReservationServiceServer
	reserver Reserver
}

func NewGRPCHandler(reserver Reserver) *GRPCHandler {
	return &GRPCHandler{reserver: reserver}
}

func (h *GRPCHandler) Reserve(ctx context.Context, req *pb.ReserveRequest) (*pb.ReserveResponse, error) {
	if req.GetUserId() == "" || req.GetProductId() <= 0 || req.GetQuantity() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "user_id, product_id and quantity are required")
	}

	reservation, err := h.reserver.Reserve(ctx, req.GetUserId(), req.GetProductId(), req.GetQuantity())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return nil, status.Error(codes.NotFound, "product not found")
		case errors.Is(err, service.ErrInsufficientStock):
			return &pb.ReserveResponse{Success: false, Message: "sold out"}, nil
		case errors.Is(err, service.ErrBusy):
			return &pb.ReserveResponse{Success: false, Message: "stock contended, retry later"}, nil
		case errors.Is(err, service.ErrInconsistent), errors.Is(err, service.ErrUnavailable):
			return nil, status.Error(codes.Unavailable, "service unavailable")
		default:
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	return &pb.ReserveResponse{
		Success:    true,
		Message:    "purchase reserved",
		PurchaseId: reservation.PurchaseID,
		Remaining:  reservation.Remaining,
	}, nil
}
