package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/payload"
)

const filterPath = "query.bool.filter.bool"

// Compiler turns one criteria into the ordered payloads of its applicable rules.
type Compiler struct {
	logger *zap.Logger
}

// NewCompiler creates a compiler.
func NewCompiler(logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{logger: logger}
}

// Compile builds one payload per applicable rule, in rule order.
//
// Explicit criteria rules take precedence over the record type's rules. Without
// any rule a single match_all payload is produced. When rules exist but none
// applies the result is empty.
func (c *Compiler) Compile(
	ctx context.Context, cr *criteria.Criteria, rt *record.Type, opts engine.Options,
) ([]*payload.Payload, error) {
	rules := cr.Rules()
	if len(rules) == 0 && rt != nil {
		rules = rt.Rules
	}

	var payloads []*payload.Payload
	if len(rules) == 0 {
		payloads = append(payloads, payload.New().SetIfNotEmpty("query.bool.must.match_all", struct{}{}))
	}

	for i, r := range rules {
		if !r.Applicable(cr) {
			c.logger.Debug("Rule not applicable",
				zap.String("type", cr.RecordType()), zap.Int("rule", i))
			continue
		}
		q, err := r.Query(ctx, cr)
		if err != nil {
			return nil, fmt.Errorf("rule %d query: %w", i, err)
		}
		p := payload.New().SetIfNotEmpty("query.bool", q)
		if opts.Highlight {
			p.SetIfNotEmpty("highlight", r.Highlight(cr))
		}
		payloads = append(payloads, p)
	}

	for i, p := range payloads {
		decorate(p, cr, opts)
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("compile payload %d: %w", i, err)
		}
	}
	return payloads, nil
}

// decorate applies the criteria-wide sections shared by every payload.
func decorate(p *payload.Payload, cr *criteria.Criteria, opts engine.Options) {
	p.SetIfNotEmpty("_source", cr.Selects()).
		SetIfNotEmpty("collapse.field", cr.Collapse()).
		SetIfNotEmpty("sort", cr.SortClauses()).
		SetIfNotEmpty("aggregations", cr.Aggregations()).
		SetIfNotEmpty("explain", opts.Explain).
		SetIfNotEmpty("profile", opts.Profile).
		SetIfNotNull("from", deref(cr.Offset())).
		SetIfNotNull("size", deref(cr.Limit())).
		SetIfNotEmpty(filterPath+".minimum_should_match", cr.MinimumShouldMatch())

	filters := cr.Filters()
	for _, op := range filter.Operators {
		p.SetIfNotEmpty(filterPath+"."+string(op), filters.Clauses(op))
	}
}

func deref(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
