package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	BalanceServiceName = "tripsplit.v1.BalanceService"

	BalanceServiceGetUserBalanceProcedure   = "/tripsplit.v1.BalanceService/GetUserBalance"
	BalanceServiceGetGroupBalancesProcedure = "/tripsplit.v1.BalanceService/GetGroupBalances"
	BalanceServiceWatchGroupProcedure       = "/tripsplit.v1.BalanceService/WatchGroup"
)

type BalanceServiceHandler interface {
	GetUserBalance(context.Context, *connect.Request[GetUserBalanceRequest]) (*connect.Response[GetUserBalanceResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	// WatchGroup streams a full GroupSnapshot on subscribe and after every change to the group.
	WatchGroup(context.Context, *connect.Request[WatchGroupRequest], *connect.ServerStream[GroupSnapshot]) error
}

func NewBalanceServiceHandler(svc BalanceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	getUserBalance := connect.NewUnaryHandler(BalanceServiceGetUserBalanceProcedure, svc.GetUserBalance, opts...)
	getGroupBalances := connect.NewUnaryHandler(BalanceServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...)
	watchGroup := connect.NewServerStreamHandler(BalanceServiceWatchGroupProcedure, svc.WatchGroup, opts...)

	return "/" + BalanceServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BalanceServiceGetUserBalanceProcedure:
			getUserBalance.ServeHTTP(w, r)
		case BalanceServiceGetGroupBalancesProcedure:
			getGroupBalances.ServeHTTP(w, r)
		case BalanceServiceWatchGroupProcedure:
			watchGroup.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type BalanceServiceClient interface {
	GetUserBalance(context.Context, *connect.Request[GetUserBalanceRequest]) (*connect.Response[GetUserBalanceResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	WatchGroup(context.Context, *connect.Request[WatchGroupRequest]) (*connect.ServerStreamForClient[GroupSnapshot], error)
}

func NewBalanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) BalanceServiceClient {
	opts = clientOptions(opts)
	return &balanceServiceClient{
		getUserBalance:   connect.NewClient[GetUserBalanceRequest, GetUserBalanceResponse](httpClient, baseURL+BalanceServiceGetUserBalanceProcedure, opts...),
		getGroupBalances: connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+BalanceServiceGetGroupBalancesProcedure, opts...),
		watchGroup:       connect.NewClient[WatchGroupRequest, GroupSnapshot](httpClient, baseURL+BalanceServiceWatchGroupProcedure, opts...),
	}
}

type balanceServiceClient struct {
	getUserBalance   *connect.Client[GetUserBalanceRequest, GetUserBalanceResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	watchGroup       *connect.Client[WatchGroupRequest, GroupSnapshot]
}

func (c *balanceServiceClient) GetUserBalance(ctx context.Context, req *connect.Request[GetUserBalanceRequest]) (*connect.Response[GetUserBalanceResponse], error) {
	return c.getUserBalance.CallUnary(ctx, req)
}

func (c *balanceServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *balanceServiceClient) WatchGroup(ctx context.Context, req *connect.Request[WatchGroupRequest]) (*connect.ServerStreamForClient[GroupSnapshot], error) {
	return c.watchGroup.CallServerStream(ctx, req)
}
