package bootstrap

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/searchbridge/internal/config"
	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/rule"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
)

// ErrNoEmbedder is returned for a vector rule when no embedder is configured.
var ErrNoEmbedder = errors.New("vector rule requires an embedder")

// BuildTypes turns type declarations into record types. embedder may be nil
// when no vector rule is declared.
func BuildTypes(decls []config.TypeConfig, embedder domain.Embedder) ([]record.Type, error) {
	types := make([]record.Type, 0, len(decls))
	for _, d := range decls {
		rt := record.Type{
			Name:            d.Name,
			Index:           d.Index,
			Table:           d.Table,
			KeyField:        d.KeyField,
			SoftDeletes:     d.SoftDeletes,
			SoftDeleteField: d.SoftDeleteField,
		}
		for i, rc := range d.Rules {
			r, err := buildRule(rc, embedder)
			if err != nil {
				return nil, fmt.Errorf("types.%s.rules[%d]: %w", d.Name, i, err)
			}
			rt.Rules = append(rt.Rules, r)
		}
		for _, sc := range d.Scopes {
			ext, err := buildScope(sc)
			if err != nil {
				return nil, fmt.Errorf("types.%s.scopes.%s: %w", d.Name, sc.Name, err)
			}
			rt.Scopes = append(rt.Scopes, ext)
		}
		types = append(types, rt)
	}
	return types, nil
}

func buildRule(rc config.RuleConfig, embedder domain.Embedder) (criteria.Rule, error) {
	switch rc.Kind {
	case config.RuleQueryString:
		return &rule.QueryString{
			Fields:          rc.Fields,
			DefaultOperator: rc.DefaultOperator,
			HighlightFields: rc.HighlightFields,
		}, nil
	case config.RuleMultiMatch:
		return &rule.MultiMatch{
			Fields:          rc.Fields,
			Type:            rc.Type,
			Fuzziness:       rc.Fuzziness,
			Operator:        rc.Operator,
			HighlightFields: rc.HighlightFields,
		}, nil
	case config.RuleVector:
		if embedder == nil {
			return nil, ErrNoEmbedder
		}
		return &rule.Vector{
			Embedder:      embedder,
			Field:         rc.Field,
			NumCandidates: rc.NumCandidates,
			Similarity:    rc.Similarity,
		}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rc.Kind)
	}
}

func buildScope(sc config.ScopeConfig) (scope.Extension, error) {
	op, err := filter.ParseOperator(sc.Operator)
	if err != nil {
		return scope.Extension{}, fmt.Errorf("parse operator: %w", err)
	}
	return scope.Extension{Name: sc.Name, Fn: scope.Filter(op, sc.Field, sc.Value)}, nil
}
