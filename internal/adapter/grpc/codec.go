package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// request reads typed fields out of a Struct message. Parse failures are
// validation errors naming the offending field.
type request struct {
	fields map[string]*structpb.Value
	loc    *time.Location
}

func newRequest(in *structpb.Struct, loc *time.Location) request {
	return request{fields: in.GetFields(), loc: loc}
}

func (r request) has(key string) bool {
	v, ok := r.fields[key]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func (r request) stringField(key string) (string, error) {
	if !r.has(key) {
		return "", domain.NewValidationError(key, "is required")
	}
	s, ok := r.fields[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", domain.NewValidationError(key, "must be a string")
	}
	return s.StringValue, nil
}

func (r request) uuidField(key string) (uuid.UUID, error) {
	s, err := r.stringField(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(key, "must be a UUID")
	}
	return id, nil
}

// decimalField accepts a decimal string or a JSON number.
func (r request) decimalField(key string) (decimal.Decimal, error) {
	if !r.has(key) {
		return decimal.Zero, domain.NewValidationError(key, "is required")
	}
	switch v := r.fields[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(v.StringValue)
		if err != nil {
			return decimal.Zero, domain.NewValidationError(key, fmt.Sprintf("invalid amount format %q", v.StringValue))
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(v.NumberValue), nil
	default:
		return decimal.Zero, domain.NewValidationError(key, "must be a string or a number")
	}
}

// timeField accepts RFC 3339 or a bare date, which is read in the ledger location.
func (r request) timeField(key string) (time.Time, error) {
	s, err := r.stringField(key)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, r.loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(key, "must be an RFC 3339 timestamp or YYYY-MM-DD")
	}
	return t, nil
}

// intField returns def when key is absent.
func (r request) intField(key string, def int) (int, error) {
	if !r.has(key) {
		return def, nil
	}
	n, ok := r.fields[key].GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return int(n.NumberValue), nil
}

func (r request) requiredInt(key string) (int, error) {
	if !r.has(key) {
		return 0, domain.NewValidationError(key, "is required")
	}
	return r.intField(key, 0)
}

func (r request) kindField(key string) (domain.Kind, error) {
	s, err := r.stringField(key)
	if err != nil {
		return 0, err
	}
	return domain.ParseKind(s)
}

func (r request) categoryField(key string) (domain.Category, error) {
	s, err := r.stringField(key)
	if err != nil {
		return "", err
	}
	return domain.ParseCategory(s)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func entryFields(e *domain.Entry) map[string]any {
	return map[string]any{
		"id":          e.ID.String(),
		"amount":      e.Amount.String(),
		"kind":        e.Kind.String(),
		"category":    string(e.Category),
		"note":        e.Note,
		"occurred_at": formatTime(e.OccurredAt),
		"balance":     e.Balance.String(),
		"created_at":  formatTime(e.CreatedAt),
		"updated_at":  formatTime(e.UpdatedAt),
	}
}

func entryList(entries []*domain.Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = entryFields(e)
	}
	return out
}

func periodFields(p *domain.PeriodSummary) map[string]any {
	fields := map[string]any{
		"label":         p.Label,
		"start":         formatTime(p.Start),
		"end":           formatTime(p.End),
		"year":          p.Year,
		"total_income":  p.TotalIncome.String(),
		"total_expense": p.TotalExpense.String(),
		"net_balance":   p.NetBalance.String(),
		"entry_count":   p.EntryCount,
	}
	if p.Month != 0 {
		fields["month"] = p.Month
		fields["month_name"] = p.MonthName
	}
	return fields
}

func overviewFields(o *domain.BalanceOverview) map[string]any {
	return map[string]any{
		"period":          periodFields(&o.Period),
		"current_balance": o.CurrentBalance.String(),
	}
}

func summaryPageFields(p *domain.SummaryPage) map[string]any {
	items := make([]any, len(p.Items))
	for i := range p.Items {
		items[i] = periodFields(&p.Items[i])
	}
	skipped := make([]any, len(p.SkippedPeriods))
	for i, label := range p.SkippedPeriods {
		skipped[i] = label
	}
	return map[string]any{
		"items":           items,
		"current_page":    p.CurrentPage,
		"total_pages":     p.TotalPages,
		"total_records":   p.TotalRecords,
		"has_next":        p.HasNext,
		"has_previous":    p.HasPrevious,
		"skipped_periods": skipped,
	}
}

func respond(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}
