package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	ExpenseServiceName = "tripsplit.v1.ExpenseService"

	ExpenseServiceRecordExpenseProcedure    = "/tripsplit.v1.ExpenseService/RecordExpense"
	ExpenseServiceListExpensesProcedure     = "/tripsplit.v1.ExpenseService/ListExpenses"
	ExpenseServiceListTransactionsProcedure = "/tripsplit.v1.ExpenseService/ListTransactions"
)

type ExpenseServiceHandler interface {
	RecordExpense(context.Context, *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
}

func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	recordExpense := connect.NewUnaryHandler(ExpenseServiceRecordExpenseProcedure, svc.RecordExpense, opts...)
	listExpenses := connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...)
	listTransactions := connect.NewUnaryHandler(ExpenseServiceListTransactionsProcedure, svc.ListTransactions, opts...)

	return "/" + ExpenseServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ExpenseServiceRecordExpenseProcedure:
			recordExpense.ServeHTTP(w, r)
		case ExpenseServiceListExpensesProcedure:
			listExpenses.ServeHTTP(w, r)
		case ExpenseServiceListTransactionsProcedure:
			listTransactions.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type ExpenseServiceClient interface {
	RecordExpense(context.Context, *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
}

func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	opts = clientOptions(opts)
	return &expenseServiceClient{
		recordExpense:    connect.NewClient[RecordExpenseRequest, RecordExpenseResponse](httpClient, baseURL+ExpenseServiceRecordExpenseProcedure, opts...),
		listExpenses:     connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		listTransactions: connect.NewClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL+ExpenseServiceListTransactionsProcedure, opts...),
	}
}

type expenseServiceClient struct {
	recordExpense    *connect.Client[RecordExpenseRequest, RecordExpenseResponse]
	listExpenses     *connect.Client[ListExpensesRequest, ListExpensesResponse]
	listTransactions *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
}

func (c *expenseServiceClient) RecordExpense(ctx context.Context, req *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error) {
	return c.recordExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}
