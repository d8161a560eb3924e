package workflow

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// LocalItem is one line item as the client knows it before submission,
// together with the receipt files attached to it locally. CorrelationKey is
// the client-generated identifier sent with the submission payload.
type LocalItem struct {
	CorrelationKey string
	Position       int
	Category       string
	Description    string
	Amount         decimal.Decimal
	ReceiptPaths   []string
}

// Match methods, in order of preference
const (
	MatchByKey       = "correlation_key"
	MatchByPosition  = "position"
	MatchByAttribute = "attribute"
)

// Match is the resolved pairing of a local item to a server-assigned detail
type Match struct {
	Item     LocalItem
	DetailID int64
	Via      string
	Matched  bool
}

// Matcher joins local line items to the details the server persisted for
// them. The primary join is the echoed correlation key; items without a key
// (or whose key the server did not echo) fall back to position, and finally
// to attribute equality.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a new receipt matcher
func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// amountEpsilon tolerates rounding drift when matching by attributes
var amountEpsilon = decimal.New(1, -2) // 0.01

// Match pairs every local item with a persisted detail where possible.
// Results come back in local-item order; unmatched items are flagged rather
// than dropped so their receipts can be reported as failed uploads.
func (m *Matcher) Match(items []LocalItem, details []*report.ExpenseDetail) []Match {
	byKey := make(map[string]*report.ExpenseDetail, len(details))
	for _, d := range details {
		if d.CorrelationKey != "" {
			byKey[d.CorrelationKey] = d
		}
	}

	claimed := make(map[int64]bool, len(details))
	results := make([]Match, 0, len(items))

	for _, item := range items {
		if d := m.resolve(item, byKey, details, claimed); d != nil {
			claimed[d.ID] = true
			via := MatchByKey
			if item.CorrelationKey == "" || byKey[item.CorrelationKey] != d {
				via = m.fallbackVia(item, d)
			}
			results = append(results, Match{Item: item, DetailID: d.ID, Via: via, Matched: true})
			continue
		}

		m.logger.Warn("No persisted detail matches local item",
			zap.String("correlation_key", item.CorrelationKey),
			zap.Int("position", item.Position),
			zap.String("description", item.Description))
		results = append(results, Match{Item: item})
	}
	return results
}

func (m *Matcher) resolve(item LocalItem, byKey map[string]*report.ExpenseDetail, details []*report.ExpenseDetail, claimed map[int64]bool) *report.ExpenseDetail {
	if item.CorrelationKey != "" {
		if d, ok := byKey[item.CorrelationKey]; ok && !claimed[d.ID] {
			return d
		}
	}

	// The server drops incomplete items and renumbers positions, so a
	// positional hit is only trusted when the attributes also line up.
	for _, d := range details {
		if claimed[d.ID] || d.Position != item.Position {
			continue
		}
		if m.attributesAgree(item, d) {
			m.logger.Warn("Matched receipt by position",
				zap.Int("position", item.Position),
				zap.Int64("detail_id", d.ID))
			return d
		}
	}

	for _, d := range details {
		if claimed[d.ID] {
			continue
		}
		if m.attributesAgree(item, d) {
			m.logger.Warn("Matched receipt by attributes",
				zap.Int64("detail_id", d.ID),
				zap.String("description", item.Description))
			return d
		}
	}
	return nil
}

func (m *Matcher) fallbackVia(item LocalItem, d *report.ExpenseDetail) string {
	if d.Position == item.Position {
		return MatchByPosition
	}
	return MatchByAttribute
}

func (m *Matcher) attributesAgree(item LocalItem, d *report.ExpenseDetail) bool {
	if item.Description != d.Description || item.Category != d.Category {
		return false
	}
	return item.Amount.Sub(d.Amount).Abs().LessThanOrEqual(amountEpsilon)
}
