package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
)

// Server implements the LedgerService gRPC server
type Server struct {
	LedgerService *ledger.LedgerService
	ReportService *report.ReportService
}

var _ LedgerServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(ledgerService *ledger.LedgerService, reportService *report.ReportService) *Server {
	return &Server{
		LedgerService: ledgerService,
		ReportService: reportService,
	}
}

func (s *Server) request(in *structpb.Struct) request {
	return newRequest(in, s.ReportService.Location)
}

// CreateEntry handles the CreateEntry RPC.
// Request: amount, kind, optional category, note, occurred_at. Response: the entry.
func (s *Server) CreateEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := s.request(in)

	amount, err := req.decimalField("amount")
	if err != nil {
		return nil, mapError(err)
	}
	kind, err := req.kindField("kind")
	if err != nil {
		return nil, mapError(err)
	}

	input := ledger.CreateEntryInput{Amount: amount, Kind: kind}
	if req.has("category") {
		if input.Category, err = req.categoryField("category"); err != nil {
			return nil, mapError(err)
		}
	}
	if req.has("note") {
		if input.Note, err = req.stringField("note"); err != nil {
			return nil, mapError(err)
		}
	}
	if req.has("occurred_at") {
		at, err := req.timeField("occurred_at")
		if err != nil {
			return nil, mapError(err)
		}
		input.OccurredAt = &at
	}

	entry, err := s.LedgerService.CreateEntry(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(entryFields(entry))
}

// GetEntry handles the GetEntry RPC. Request: id.
func (s *Server) GetEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := s.request(in).uuidField("id")
	if err != nil {
		return nil, mapError(err)
	}

	entry, err := s.LedgerService.GetEntry(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(entryFields(entry))
}

// UpdateEntry handles the UpdateEntry RPC. Request: id plus any of the
// CreateEntry fields; absent fields are left unchanged.
func (s *Server) UpdateEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := s.request(in)

	id, err := req.uuidField("id")
	if err != nil {
		return nil, mapError(err)
	}

	var input ledger.UpdateEntryInput
	if req.has("amount") {
		amount, err := req.decimalField("amount")
		if err != nil {
			return nil, mapError(err)
		}
		input.Amount = &amount
	}
	if req.has("kind") {
		kind, err := req.kindField("kind")
		if err != nil {
			return nil, mapError(err)
		}
		input.Kind = &kind
	}
	if req.has("category") {
		category, err := req.categoryField("category")
		if err != nil {
			return nil, mapError(err)
		}
		input.Category = &category
	}
	if req.has("note") {
		note, err := req.stringField("note")
		if err != nil {
			return nil, mapError(err)
		}
		input.Note = &note
	}
	if req.has("occurred_at") {
		at, err := req.timeField("occurred_at")
		if err != nil {
			return nil, mapError(err)
		}
		input.OccurredAt = &at
	}

	entry, err := s.LedgerService.UpdateEntry(ctx, id, input)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(entryFields(entry))
}

// DeleteEntry handles the DeleteEntry RPC. Request: id. Response: deleted id.
func (s *Server) DeleteEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := s.request(in).uuidField("id")
	if err != nil {
		return nil, mapError(err)
	}

	if err := s.LedgerService.DeleteEntry(ctx, id); err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]any{"id": id.String()})
}

// ListEntries handles the ListEntries RPC. Request: optional page, limit.
func (s *Server) ListEntries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := s.request(in)

	page, err := req.intField("page", 1)
	if err != nil {
		return nil, mapError(err)
	}
	limit, err := req.intField("limit", 0)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.LedgerService.ListPage(ctx, page, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]any{
		"items":         entryList(result.Items),
		"current_page":  result.CurrentPage,
		"total_pages":   result.TotalPages,
		"total_records": result.TotalRecords,
	})
}

// ListRecentEntries handles the ListRecentEntries RPC
func (s *Server) ListRecentEntries(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	entries, err := s.LedgerService.ListRecent(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]any{"items": entryList(entries)})
}

// RecomputeBalances handles the RecomputeBalances RPC. Response: changed.
func (s *Server) RecomputeBalances(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	changed, err := s.LedgerService.RecomputeBalances(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]any{"changed": changed})
}

// GetCurrentBalance handles the GetCurrentBalance RPC. Response: balance.
func (s *Server) GetCurrentBalance(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	balance, err := s.LedgerService.CurrentBalance(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]any{"balance": balance.String()})
}

// SummarizeRange handles the SummarizeRange RPC. Request: start, end (exclusive).
func (s *Server) SummarizeRange(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := s.request(in)

	start, err := req.timeField("start")
	if err != nil {
		return nil, mapError(err)
	}
	end, err := req.timeField("end")
	if err != nil {
		return nil, mapError(err)
	}

	summary, err := s.ReportService.SummarizeRange(ctx, start, end)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(periodFields(summary))
}

// GetDailySummary handles the GetDailySummary RPC. Request: date.
func (s *Server) GetDailySummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	date, err := s.request(in).timeField("date")
	if err != nil {
		return nil, mapError(err)
	}

	summary, err := s.ReportService.Daily(ctx, date)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(periodFields(summary))
}

// GetWeeklySummary handles the GetWeeklySummary RPC. Request: start.
func (s *Server) GetWeeklySummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	start, err := s.request(in).timeField("start")
	if err != nil {
		return nil, mapError(err)
	}

	summary, err := s.ReportService.Weekly(ctx, start)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(periodFields(summary))
}

// GetMonthlySummary handles the GetMonthlySummary RPC. Request: year, month.
func (s *Server) GetMonthlySummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := s.request(in)

	year, err := req.requiredInt("year")
	if err != nil {
		return nil, mapError(err)
	}
	month, err := req.requiredInt("month")
	if err != nil {
		return nil, mapError(err)
	}

	summary, err := s.ReportService.Monthly(ctx, year, month)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(periodFields(summary))
}

// GetYearlySummary handles the GetYearlySummary RPC. Request: year.
func (s *Server) GetYearlySummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	year, err := s.request(in).requiredInt("year")
	if err != nil {
		return nil, mapError(err)
	}

	summary, err := s.ReportService.Yearly(ctx, year)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(periodFields(summary))
}

// GetTotalSummary handles the GetTotalSummary RPC
func (s *Server) GetTotalSummary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	total, err := s.ReportService.Total(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]any{
		"total_income":    total.TotalIncome.String(),
		"total_expense":   total.TotalExpense.String(),
		"net_balance":     total.NetBalance.String(),
		"entry_count":     total.EntryCount,
		"current_balance": total.CurrentBalance.String(),
	})
}

// GetCurrentMonthOverview handles the GetCurrentMonthOverview RPC
func (s *Server) GetCurrentMonthOverview(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	overview, err := s.ReportService.CurrentMonthOverview(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(overviewFields(overview))
}

// GetCurrentYearOverview handles the GetCurrentYearOverview RPC
func (s *Server) GetCurrentYearOverview(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	overview, err := s.ReportService.CurrentYearOverview(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(overviewFields(overview))
}

// ListMonthlySummaries handles the ListMonthlySummaries RPC. Request: optional page, page_size.
func (s *Server) ListMonthlySummaries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.paginated(ctx, in, s.ReportService.PaginatedMonthly)
}

// ListYearlySummaries handles the ListYearlySummaries RPC. Request: optional page, page_size.
func (s *Server) ListYearlySummaries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.paginated(ctx, in, s.ReportService.PaginatedYearly)
}

func (s *Server) paginated(
	ctx context.Context,
	in *structpb.Struct,
	fetch func(ctx context.Context, page, pageSize int) (*domain.SummaryPage, error),
) (*structpb.Struct, error) {
	req := s.request(in)

	page, err := req.intField("page", 1)
	if err != nil {
		return nil, mapError(err)
	}
	pageSize, err := req.intField("page_size", 0)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := fetch(ctx, page, pageSize)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(summaryPageFields(result))
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, domain.ErrStorage):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
